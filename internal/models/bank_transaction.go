package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionStatusUnmatched = "unmatched"
	TransactionStatusMatched   = "matched"
)

// BankTransaction is one parsed statement line. Amount is signed: positive is an incoming credit.
type BankTransaction struct {
	ID                uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	StatementImportID uuid.UUID       `gorm:"type:char(36);index;not null" json:"statement_import_id"`
	BankAccountID     uuid.UUID       `gorm:"type:char(36);not null;index:idx_bank_transactions_account_status,priority:1" json:"bank_account_id"`
	ValueDate         time.Time       `gorm:"type:date;index" json:"value_date"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency          string          `gorm:"type:char(3)" json:"currency"`
	Description       string          `gorm:"type:text" json:"description"`
	Reference         string          `gorm:"size:140" json:"reference,omitempty"`
	CounterpartyName  string          `gorm:"size:140" json:"counterparty_name,omitempty"`
	CounterpartyIBAN  string          `gorm:"size:34" json:"counterparty_iban,omitempty"`
	Fingerprint       string          `gorm:"size:64;index;not null" json:"fingerprint"`
	Status            string          `gorm:"size:16;not null;index:idx_bank_transactions_account_status,priority:2" json:"status"`
	ConfirmedMatchID  *uuid.UUID      `gorm:"type:char(36)" json:"confirmed_match_id,omitempty"`
	RawText           string          `gorm:"type:text" json:"raw_text,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// IsIncoming reports whether the transaction is a credit eligible for receivable matching.
func (t *BankTransaction) IsIncoming() bool {
	return t.Amount.IsPositive()
}
