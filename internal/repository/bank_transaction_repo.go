package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/models"
)

const (
	insertBatchSize      = 500
	fingerprintChunkSize = 500
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) DB() *gorm.DB {
	return r.db
}

// WithTx binds the repository to an open transaction.
func (r *BankTransactionRepository) WithTx(tx *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: tx}
}

// CreateBatch bulk-inserts parsed transactions.
func (r *BankTransactionRepository) CreateBatch(ctx context.Context, txs []models.BankTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(txs, insertBatchSize).Error; err != nil {
		return apperrors.Internal("store transactions", err)
	}
	return nil
}

// ExistingFingerprints returns which of fingerprints are already stored for the account.
func (r *BankTransactionRepository) ExistingFingerprints(ctx context.Context, accountID uuid.UUID, fingerprints []string) (map[string]bool, error) {
	found := make(map[string]bool)
	for start := 0; start < len(fingerprints); start += fingerprintChunkSize {
		end := start + fingerprintChunkSize
		if end > len(fingerprints) {
			end = len(fingerprints)
		}

		var chunk []string
		err := r.db.WithContext(ctx).Model(&models.BankTransaction{}).
			Where("bank_account_id = ? AND fingerprint IN ?", accountID, fingerprints[start:end]).
			Distinct().
			Pluck("fingerprint", &chunk).Error
		if err != nil {
			return nil, apperrors.Internal("check fingerprints", err)
		}
		for _, fp := range chunk {
			found[fp] = true
		}
	}
	return found, nil
}

func (r *BankTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, apperrors.CodeTransactionNotFound, "transaction", id)
	}
	return &tx, nil
}

func (r *BankTransactionRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.BankTransaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperrors.Internal("check transaction", err)
	}
	return count > 0, nil
}

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	ImportID      *uuid.UUID
	BankAccountID *uuid.UUID
	Status        string
	DateFrom      *time.Time
	DateTo        *time.Time
	Search        string
	Cursor        string
	Limit         int
}

const cursorDateLayout = "2006-01-02"

// PageCursor is the (value_date, id) key of the last row on a page.
type PageCursor struct {
	ValueDate time.Time
	ID        uuid.UUID
}

func (c PageCursor) String() string {
	return c.ValueDate.UTC().Format(cursorDateLayout) + "_" + c.ID.String()
}

// ParseCursor reads a cursor produced by PageCursor.String.
func ParseCursor(s string) (PageCursor, error) {
	date, id, ok := strings.Cut(s, "_")
	if !ok {
		return PageCursor{}, fmt.Errorf("malformed cursor %q", s)
	}
	valueDate, err := time.ParseInLocation(cursorDateLayout, date, time.UTC)
	if err != nil {
		return PageCursor{}, fmt.Errorf("malformed cursor date %q", date)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return PageCursor{}, fmt.Errorf("malformed cursor id %q", id)
	}
	return PageCursor{ValueDate: valueDate, ID: parsed}, nil
}

// List returns one page ordered by value date then id, plus the cursor of the next page ("" when
// there is none).
func (r *BankTransactionRepository) List(ctx context.Context, f TransactionFilter) ([]models.BankTransaction, string, error) {
	query := r.db.WithContext(ctx).
		Order("value_date ASC, id ASC").
		Limit(f.Limit + 1)

	if f.ImportID != nil {
		query = query.Where("statement_import_id = ?", *f.ImportID)
	}
	if f.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *f.BankAccountID)
	}
	if f.Status != "" && f.Status != "all" {
		query = query.Where("status = ?", f.Status)
	}
	if f.DateFrom != nil {
		query = query.Where("value_date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		query = query.Where("value_date <= ?", *f.DateTo)
	}
	if f.Cursor != "" {
		after, err := ParseCursor(f.Cursor)
		if err != nil {
			return nil, "", apperrors.Validation("invalid cursor: %v", err)
		}
		query = query.Where("value_date > ? OR (value_date = ? AND id > ?)", after.ValueDate, after.ValueDate, after.ID)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where(
			"LOWER(description) LIKE ? OR LOWER(counterparty_name) LIKE ? OR LOWER(reference) LIKE ?",
			like, like, like,
		)
	}

	var txs []models.BankTransaction
	if err := query.Find(&txs).Error; err != nil {
		return nil, "", apperrors.Internal("list transactions", err)
	}

	var nextCursor string
	if len(txs) > f.Limit {
		txs = txs[:f.Limit]
		last := txs[f.Limit-1]
		nextCursor = PageCursor{ValueDate: last.ValueDate, ID: last.ID}.String()
	}
	return txs, nextCursor, nil
}

// ListUnmatchedIncoming returns credits still waiting for a match, oldest first.
func (r *BankTransactionRepository) ListUnmatchedIncoming(ctx context.Context, accountID *uuid.UUID, limit int) ([]models.BankTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND amount > 0", models.TransactionStatusUnmatched).
		Order("value_date ASC, id ASC").
		Limit(limit)
	if accountID != nil {
		query = query.Where("bank_account_id = ?", *accountID)
	}

	var txs []models.BankTransaction
	if err := query.Find(&txs).Error; err != nil {
		return nil, apperrors.Internal("list unmatched transactions", err)
	}
	return txs, nil
}

// MarkMatched links the transaction to its confirmed match. It only succeeds while no confirmed
// match is linked yet; false means the row is missing or already matched.
func (r *BankTransactionRepository) MarkMatched(ctx context.Context, txID, matchID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.BankTransaction{}).
		Where("id = ? AND confirmed_match_id IS NULL", txID).
		Updates(map[string]interface{}{
			"status":             models.TransactionStatusMatched,
			"confirmed_match_id": matchID,
		})
	if res.Error != nil {
		return false, apperrors.Internal("mark transaction matched", res.Error)
	}
	return res.RowsAffected == 1, nil
}

type StatusTotals struct {
	Count int64           `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
}

type ImportStats struct {
	Total       int64           `json:"total"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Incoming    StatusTotals    `json:"incoming"`
	Outgoing    StatusTotals    `json:"outgoing"`
	Unmatched   StatusTotals    `json:"unmatched"`
	Matched     StatusTotals    `json:"matched"`
}

type statRow struct {
	Status   string
	Incoming bool
	Count    int64
	Sum      decimal.Decimal
}

// StatsByImport aggregates counts and sums per status for one import.
func (r *BankTransactionRepository) StatsByImport(ctx context.Context, importID uuid.UUID) (ImportStats, error) {
	stats := ImportStats{}
	var rows []statRow

	err := r.db.WithContext(ctx).Model(&models.BankTransaction{}).
		Where("statement_import_id = ?", importID).
		Select("status, amount > 0 AS incoming, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum").
		Group("status, amount > 0").
		Scan(&rows).Error
	if err != nil {
		return stats, apperrors.Internal("compute import stats", err)
	}

	for _, row := range rows {
		stats.Total += row.Count
		row.Sum = row.Sum.Round(2)
		stats.TotalAmount = stats.TotalAmount.Add(row.Sum)

		direction := &stats.Outgoing
		if row.Incoming {
			direction = &stats.Incoming
		}
		direction.add(row)

		switch row.Status {
		case models.TransactionStatusUnmatched:
			stats.Unmatched.add(row)
		case models.TransactionStatusMatched:
			stats.Matched.add(row)
		}
	}
	return stats, nil
}

func (t *StatusTotals) add(row statRow) {
	t.Count += row.Count
	t.Sum = t.Sum.Add(row.Sum)
}
