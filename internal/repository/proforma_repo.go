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

// A converted proforma has become an invoice and is matched through it.
var closedProformaStatuses = []string{"paid", "converted", "cancelled"}

type ProformaRepository struct {
	db *gorm.DB
}

func NewProformaRepository(db *gorm.DB) *ProformaRepository {
	return &ProformaRepository{db: db}
}

func (r *ProformaRepository) Name() models.MatchType {
	return models.MatchTypeProforma
}

func (r *ProformaRepository) FindCandidates(ctx context.Context, q matching.CandidateQuery) ([]matching.MatchCandidate, error) {
	var proformas []models.Proforma

	query := r.db.WithContext(ctx).
		Where("status NOT IN ?", closedProformaStatuses).
		Where("total_amount BETWEEN ? AND ?", q.MinAmount(), q.MaxAmount()).
		Where("issue_date BETWEEN ? AND ?", q.DateFrom, q.DateTo).
		Order("issue_date DESC").
		Limit(candidateLimit)
	if q.Currency != "" {
		query = query.Where("currency = ?", strings.ToUpper(q.Currency))
	}

	if err := query.Find(&proformas).Error; err != nil {
		return nil, err
	}

	out := make([]matching.MatchCandidate, 0, len(proformas))
	for i := range proformas {
		out = append(out, proformaCandidate(&proformas[i]))
	}
	return out, nil
}

func (r *ProformaRepository) GetCandidate(ctx context.Context, id uuid.UUID) (*matching.MatchCandidate, error) {
	var pf models.Proforma
	if err := r.db.WithContext(ctx).First(&pf, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, apperrors.CodeCandidateNotFound, "proforma", id)
	}
	c := proformaCandidate(&pf)
	return &c, nil
}

func proformaCandidate(pf *models.Proforma) matching.MatchCandidate {
	return matching.MatchCandidate{
		ID:             pf.ID,
		SourceType:     models.MatchTypeProforma,
		DocumentNumber: pf.ProformaNumber,
		TotalAmount:    pf.TotalAmount,
		Status:         pf.Status,
		PartyName:      pf.CustomerName,
		DocumentDate:   pf.IssueDate,
	}
}
