package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/models"
)

type PaymentMatchRepository struct {
	db *gorm.DB
}

func NewPaymentMatchRepository(db *gorm.DB) *PaymentMatchRepository {
	return &PaymentMatchRepository{db: db}
}

func (r *PaymentMatchRepository) DB() *gorm.DB {
	return r.db
}

// WithTx binds the repository to an open transaction.
func (r *PaymentMatchRepository) WithTx(tx *gorm.DB) *PaymentMatchRepository {
	return &PaymentMatchRepository{db: tx}
}

func (r *PaymentMatchRepository) Create(ctx context.Context, m *models.PaymentMatch) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return apperrors.Internal("create payment match", err)
	}
	return nil
}

func (r *PaymentMatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentMatch, error) {
	var m models.PaymentMatch
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, apperrors.CodeMatchNotFound, "payment match", id)
	}
	return &m, nil
}

// FindSuggested returns the newest persisted suggestion for the triple, or nil.
func (r *PaymentMatchRepository) FindSuggested(ctx context.Context, txID uuid.UUID, matchType models.MatchType, candidateID uuid.UUID) (*models.PaymentMatch, error) {
	var m models.PaymentMatch
	err := r.db.WithContext(ctx).
		Where("bank_transaction_id = ? AND match_type = ? AND candidate_id = ? AND status = ?",
			txID, matchType, candidateID, models.MatchStatusSuggested).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("find suggested match", err)
	}
	return &m, nil
}

func (r *PaymentMatchRepository) ListByTransaction(ctx context.Context, txID uuid.UUID) ([]models.PaymentMatch, error) {
	var matches []models.PaymentMatch
	err := r.db.WithContext(ctx).
		Where("bank_transaction_id = ?", txID).
		Order("created_at ASC, id ASC").
		Find(&matches).Error
	if err != nil {
		return nil, apperrors.Internal("list payment matches", err)
	}
	return matches, nil
}

// TransitionStatus moves a match from one status to another. It reports false when the row is no
// longer in the expected status, so two reviewers cannot both win.
func (r *PaymentMatchRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to, actor string, at time.Time) (bool, error) {
	return r.transition(ctx, id, from, map[string]interface{}{
		"status":     to,
		"changed_by": actor,
		"changed_at": at,
	})
}

// ConfirmSuggested promotes a stored suggestion to confirmed with manual confidence. Like
// TransitionStatus it reports false when the row is no longer a suggestion.
func (r *PaymentMatchRepository) ConfirmSuggested(ctx context.Context, id uuid.UUID, actor string, at time.Time) (bool, error) {
	return r.transition(ctx, id, models.MatchStatusSuggested, map[string]interface{}{
		"status":     models.MatchStatusConfirmed,
		"confidence": models.ManualConfidence,
		"changed_by": actor,
		"changed_at": at,
	})
}

func (r *PaymentMatchRepository) transition(ctx context.Context, id uuid.UUID, from string, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentMatch{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, apperrors.Internal("update payment match status", res.Error)
	}
	return res.RowsAffected == 1, nil
}
