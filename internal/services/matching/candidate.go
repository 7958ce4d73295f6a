package matching

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"statement-reconciliation-backend/internal/models"
)

// CandidateQuery bounds a search for open documents that could explain a payment.
type CandidateQuery struct {
	Amount    decimal.Decimal
	Tolerance decimal.Decimal
	Currency  string
	DateFrom  time.Time
	DateTo    time.Time
	// Reference is the document number pulled from the transaction, if any.
	Reference string
}

// MinAmount and MaxAmount are the inclusive amount bounds of the query.
func (q CandidateQuery) MinAmount() decimal.Decimal { return q.Amount.Sub(q.Tolerance) }
func (q CandidateQuery) MaxAmount() decimal.Decimal { return q.Amount.Add(q.Tolerance) }

// MatchCandidate is an invoice, proforma or order in the shape the matcher understands.
type MatchCandidate struct {
	ID             uuid.UUID        `json:"id"`
	SourceType     models.MatchType `json:"source_type"`
	DocumentNumber string           `json:"document_number"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	Status         string           `json:"status"`
	PartyName      string           `json:"party_name,omitempty"`
	DocumentDate   time.Time        `json:"document_date"`
}

// CandidateSource searches one billing domain for documents that are not fully paid.
type CandidateSource interface {
	Name() models.MatchType
	FindCandidates(ctx context.Context, q CandidateQuery) ([]MatchCandidate, error)
}

// TransactionFinder loads the transactions a batch suggestion runs over.
type TransactionFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error)
	ListUnmatchedIncoming(ctx context.Context, accountID *uuid.UUID, limit int) ([]models.BankTransaction, error)
}
