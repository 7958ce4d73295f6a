package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MatchType string

const (
	MatchTypeInvoice  MatchType = "invoice"
	MatchTypeProforma MatchType = "proforma"
	MatchTypeOrder    MatchType = "order"
)

func (m MatchType) IsValid() bool {
	switch m {
	case MatchTypeInvoice, MatchTypeProforma, MatchTypeOrder:
		return true
	}
	return false
}

const (
	MatchStatusSuggested = "suggested"
	MatchStatusConfirmed = "confirmed"
	MatchStatusRejected  = "rejected"
)

// ManualConfidence is the score of every human-confirmed match.
const ManualConfidence = 100

type PaymentMatch struct {
	ID                uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	BankTransactionID uuid.UUID       `gorm:"type:char(36);index;not null" json:"bank_transaction_id"`
	MatchType         MatchType       `gorm:"size:16;not null" json:"match_type"`
	CandidateID       uuid.UUID       `gorm:"type:char(36);not null" json:"candidate_id"`
	DocumentNumber    string          `gorm:"size:64" json:"document_number,omitempty"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Confidence        int             `json:"confidence"`
	Status            string          `gorm:"size:16;not null" json:"status"`
	ChangedBy         string          `gorm:"size:120" json:"changed_by"`
	ChangedAt         time.Time       `json:"changed_at"`
	CreatedAt         time.Time       `json:"created_at"`
}
