package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/services/matching"
)

// candidateLimit caps each source so a round amount cannot flood the ranking.
const candidateLimit = 200

// Invoice statuses that mean nothing is left to collect.
var closedInvoiceStatuses = []string{"paid", "cancelled"}

// InvoiceRepository reads the billing invoices table and serves it as a candidate source.
type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Expose DB if needed
func (r *InvoiceRepository) DB() *gorm.DB {
	return r.db
}

func (r *InvoiceRepository) Name() models.MatchType {
	return models.MatchTypeInvoice
}

// FindCandidates returns open invoices within the amount tolerance, issued inside the window.
func (r *InvoiceRepository) FindCandidates(ctx context.Context, q matching.CandidateQuery) ([]matching.MatchCandidate, error) {
	var invoices []models.Invoice

	query := r.db.WithContext(ctx).
		Where("status NOT IN ?", closedInvoiceStatuses).
		Where("total_amount BETWEEN ? AND ?", q.MinAmount(), q.MaxAmount()).
		Where("issue_date BETWEEN ? AND ?", q.DateFrom, q.DateTo).
		Order("issue_date DESC").
		Limit(candidateLimit)
	if q.Currency != "" {
		query = query.Where("currency = ?", strings.ToUpper(q.Currency))
	}

	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}

	out := make([]matching.MatchCandidate, 0, len(invoices))
	for i := range invoices {
		out = append(out, invoiceCandidate(&invoices[i]))
	}
	return out, nil
}

// GetCandidate loads one invoice by id in candidate form.
func (r *InvoiceRepository) GetCandidate(ctx context.Context, id uuid.UUID) (*matching.MatchCandidate, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, apperrors.CodeCandidateNotFound, "invoice", id)
	}
	c := invoiceCandidate(&invoice)
	return &c, nil
}

// SearchInvoices is the manual lookup reviewers use when no suggestion fits.
func (r *InvoiceRepository) SearchInvoices(ctx context.Context, text string, amount decimal.Decimal, statuses []string) ([]models.Invoice, error) {
	var invoices []models.Invoice

	dbQuery := r.db.WithContext(ctx).Model(&models.Invoice{})

	if text != "" {
		like := "%" + strings.ToLower(text) + "%"
		dbQuery = dbQuery.Where("LOWER(customer_name) LIKE ? OR LOWER(invoice_number) LIKE ?", like, like)
	}
	if amount.IsPositive() {
		dbQuery = dbQuery.Where("total_amount = ?", amount)
	}
	if len(statuses) > 0 {
		dbQuery = dbQuery.Where("status IN ?", statuses)
	}

	err := dbQuery.Order("issue_date DESC").Limit(candidateLimit).Find(&invoices).Error
	return invoices, err
}

func invoiceCandidate(inv *models.Invoice) matching.MatchCandidate {
	return matching.MatchCandidate{
		ID:             inv.ID,
		SourceType:     models.MatchTypeInvoice,
		DocumentNumber: inv.InvoiceNumber,
		TotalAmount:    inv.TotalAmount,
		Status:         inv.Status,
		PartyName:      inv.CustomerName,
		DocumentDate:   inv.IssueDate,
	}
}
