package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/services/matching"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Name() models.MatchType {
	return models.MatchTypeOrder
}

// FindCandidates returns orders still awaiting payment, placed inside the window.
func (r *OrderRepository) FindCandidates(ctx context.Context, q matching.CandidateQuery) ([]matching.MatchCandidate, error) {
	var orders []models.Order

	query := r.db.WithContext(ctx).
		Where("payment_status <> ?", "paid").
		Where("status <> ?", "cancelled").
		Where("total_amount BETWEEN ? AND ?", q.MinAmount(), q.MaxAmount()).
		Where("placed_at BETWEEN ? AND ?", q.DateFrom, q.DateTo).
		Order("placed_at DESC").
		Limit(candidateLimit)
	if q.Currency != "" {
		query = query.Where("currency = ?", strings.ToUpper(q.Currency))
	}

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}

	out := make([]matching.MatchCandidate, 0, len(orders))
	for i := range orders {
		out = append(out, orderCandidate(&orders[i]))
	}
	return out, nil
}

func (r *OrderRepository) GetCandidate(ctx context.Context, id uuid.UUID) (*matching.MatchCandidate, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, apperrors.CodeCandidateNotFound, "order", id)
	}
	c := orderCandidate(&o)
	return &c, nil
}

func orderCandidate(o *models.Order) matching.MatchCandidate {
	return matching.MatchCandidate{
		ID:             o.ID,
		SourceType:     models.MatchTypeOrder,
		DocumentNumber: o.OrderNumber,
		TotalAmount:    o.TotalAmount,
		Status:         o.PaymentStatus,
		PartyName:      o.CustomerName,
		DocumentDate:   o.PlacedAt,
	}
}
