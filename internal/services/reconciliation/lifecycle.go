package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/audit"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/services/matching"
	"statement-reconciliation-backend/pkg/logger"
)

// ConfirmRequest identifies the match being confirmed. MatchID is optional; without it a stored
// suggestion for the same transaction and candidate is reused, or a new row is created.
type ConfirmRequest struct {
	MatchID       *uuid.UUID       `json:"match_id,omitempty"`
	TransactionID uuid.UUID        `json:"transaction_id"`
	MatchType     models.MatchType `json:"match_type"`
	CandidateID   uuid.UUID        `json:"candidate_id"`
	Amount        decimal.Decimal  `json:"amount"`
	Actor         string           `json:"-"`
}

// SuggestionRequest persists one suggestion so it can later be confirmed or rejected by id.
type SuggestionRequest struct {
	TransactionID uuid.UUID        `json:"transaction_id"`
	MatchType     models.MatchType `json:"match_type"`
	CandidateID   uuid.UUID        `json:"candidate_id"`
	Amount        decimal.Decimal  `json:"amount"`
	Confidence    int              `json:"confidence"`
	Actor         string           `json:"-"`
}

type matchState struct {
	Match             *models.PaymentMatch `json:"match,omitempty"`
	TransactionStatus string               `json:"transaction_status"`
}

// ConfirmMatch confirms a match and marks its transaction matched in one database transaction.
// A transaction can hold at most one confirmed match; a second one is MATCH_CONFLICT.
func (s *ReconciliationService) ConfirmMatch(ctx context.Context, req ConfirmRequest) (uuid.UUID, error) {
	actor := actorOrSystem(req.Actor)
	if req.TransactionID == uuid.Nil {
		return uuid.Nil, apperrors.Validation("transaction_id is required")
	}

	existing, err := s.existingMatch(ctx, &req)
	if err != nil {
		return uuid.Nil, err
	}

	bankTx, err := s.transactionRepo.GetByID(ctx, req.TransactionID)
	if err != nil {
		return uuid.Nil, err
	}

	if existing != nil {
		switch existing.Status {
		case models.MatchStatusRejected:
			return uuid.Nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "a rejected match cannot be confirmed")
		case models.MatchStatusConfirmed:
			if bankTx.ConfirmedMatchID != nil && *bankTx.ConfirmedMatchID == existing.ID {
				return existing.ID, nil
			}
			return uuid.Nil, apperrors.Conflict(apperrors.CodeMatchConflict, "match %s is already confirmed", existing.ID)
		}
	}
	if bankTx.ConfirmedMatchID != nil {
		return uuid.Nil, apperrors.Conflict(apperrors.CodeMatchConflict, "transaction %s already has a confirmed match", bankTx.ID)
	}

	documentNumber := ""
	if existing == nil {
		candidate, err := s.resolveCandidate(ctx, req.MatchType, req.CandidateID)
		if err != nil {
			return uuid.Nil, err
		}
		if candidate != nil {
			documentNumber = candidate.DocumentNumber
		}
	}

	now := time.Now().UTC()
	var before *models.PaymentMatch
	var confirmed models.PaymentMatch
	if existing != nil {
		snapshot := *existing
		before = &snapshot
		confirmed = *existing
	} else {
		confirmed = models.PaymentMatch{
			ID:                uuid.New(),
			BankTransactionID: req.TransactionID,
			MatchType:         req.MatchType,
			CandidateID:       req.CandidateID,
			DocumentNumber:    documentNumber,
			Amount:            req.Amount,
			CreatedAt:         now,
		}
	}
	confirmed.Status = models.MatchStatusConfirmed
	confirmed.Confidence = models.ManualConfidence
	confirmed.ChangedBy = actor
	confirmed.ChangedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.transactionRepo.WithTx(tx)
		ok, err := txRepo.MarkMatched(ctx, req.TransactionID, confirmed.ID)
		if err != nil {
			return err
		}
		if !ok {
			exists, err := txRepo.Exists(ctx, req.TransactionID)
			if err != nil {
				return err
			}
			if !exists {
				return apperrors.NotFound(apperrors.CodeTransactionNotFound, "transaction", req.TransactionID)
			}
			return apperrors.Conflict(apperrors.CodeMatchConflict, "transaction %s already has a confirmed match", req.TransactionID)
		}

		matchRepo := s.matchRepo.WithTx(tx)
		if existing == nil {
			return matchRepo.Create(ctx, &confirmed)
		}
		// The suggestion may have been rejected since it was read; returning an error rolls back MarkMatched.
		ok, err = matchRepo.ConfirmSuggested(ctx, existing.ID, actor, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict(apperrors.CodeInvalidTransition, "match %s is no longer a suggestion", existing.ID)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, apperrors.WrapIfNeeded(err, "confirm match")
	}

	s.log.WithFields(logger.Fields{
		"match_id":       confirmed.ID,
		"transaction_id": req.TransactionID,
		"match_type":     confirmed.MatchType,
		"actor":          actor,
	}).Infof("match confirmed")

	s.sink.Record(ctx, audit.Event{
		Action:       audit.ActionMatchConfirm,
		ResourceType: "payment_match",
		ResourceID:   confirmed.ID.String(),
		BeforeState:  matchState{Match: before, TransactionStatus: bankTx.Status},
		AfterState:   matchState{Match: &confirmed, TransactionStatus: models.TransactionStatusMatched},
		ActorID:      actor,
		Timestamp:    now,
	})
	return confirmed.ID, nil
}

// existingMatch resolves the row a confirm refers to and fills in what the request left out.
func (s *ReconciliationService) existingMatch(ctx context.Context, req *ConfirmRequest) (*models.PaymentMatch, error) {
	if req.MatchID != nil {
		m, err := s.matchRepo.GetByID(ctx, *req.MatchID)
		if err != nil {
			return nil, err
		}
		if m.BankTransactionID != req.TransactionID {
			return nil, apperrors.Validation("match %s does not belong to transaction %s", m.ID, req.TransactionID)
		}
		if req.MatchType != "" && req.MatchType != m.MatchType {
			return nil, apperrors.Validation("match %s is a %s match", m.ID, m.MatchType)
		}
		if req.CandidateID != uuid.Nil && req.CandidateID != m.CandidateID {
			return nil, apperrors.Validation("match %s points to another candidate", m.ID)
		}
		return m, nil
	}

	if err := validateTarget(req.MatchType, req.CandidateID, req.Amount); err != nil {
		return nil, err
	}
	return s.matchRepo.FindSuggested(ctx, req.TransactionID, req.MatchType, req.CandidateID)
}

// RejectMatch closes a suggestion. The transaction stays unmatched.
func (s *ReconciliationService) RejectMatch(ctx context.Context, matchID uuid.UUID, actor string) (uuid.UUID, error) {
	actor = actorOrSystem(actor)

	m, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return uuid.Nil, err
	}
	if m.Status != models.MatchStatusSuggested {
		return uuid.Nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "a %s match cannot be rejected", m.Status)
	}

	now := time.Now().UTC()
	ok, err := s.matchRepo.TransitionStatus(ctx, matchID, models.MatchStatusSuggested, models.MatchStatusRejected, actor, now)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "match %s changed concurrently", matchID)
	}

	before := *m
	after := *m
	after.Status = models.MatchStatusRejected
	after.ChangedBy = actor
	after.ChangedAt = now

	s.log.WithFields(logger.Fields{"match_id": matchID, "actor": actor}).Infof("match rejected")
	s.sink.Record(ctx, audit.Event{
		Action:       audit.ActionMatchReject,
		ResourceType: "payment_match",
		ResourceID:   matchID.String(),
		BeforeState:  before,
		AfterState:   after,
		ActorID:      actor,
		Timestamp:    now,
	})
	return matchID, nil
}

// RecordSuggestion stores a suggestion. Recording the same open suggestion twice returns the first row.
func (s *ReconciliationService) RecordSuggestion(ctx context.Context, req SuggestionRequest) (*models.PaymentMatch, error) {
	actor := actorOrSystem(req.Actor)
	if req.TransactionID == uuid.Nil {
		return nil, apperrors.Validation("transaction_id is required")
	}
	if err := validateTarget(req.MatchType, req.CandidateID, req.Amount); err != nil {
		return nil, err
	}
	if req.Confidence < 0 || req.Confidence > matching.MaxSuggestedScore {
		return nil, apperrors.Validation("confidence must be between 0 and %d", matching.MaxSuggestedScore)
	}

	bankTx, err := s.transactionRepo.GetByID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if bankTx.Status == models.TransactionStatusMatched {
		return nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "transaction %s is already matched", bankTx.ID)
	}

	if existing, err := s.matchRepo.FindSuggested(ctx, req.TransactionID, req.MatchType, req.CandidateID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	candidate, err := s.resolveCandidate(ctx, req.MatchType, req.CandidateID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &models.PaymentMatch{
		ID:                uuid.New(),
		BankTransactionID: req.TransactionID,
		MatchType:         req.MatchType,
		CandidateID:       req.CandidateID,
		Amount:            req.Amount,
		Confidence:        req.Confidence,
		Status:            models.MatchStatusSuggested,
		ChangedBy:         actor,
		ChangedAt:         now,
		CreatedAt:         now,
	}
	if candidate != nil {
		m.DocumentNumber = candidate.DocumentNumber
	}
	if err := s.matchRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, audit.Event{
		Action:       audit.ActionMatchSuggest,
		ResourceType: "payment_match",
		ResourceID:   m.ID.String(),
		AfterState:   m,
		ActorID:      actor,
		Timestamp:    now,
	})
	return m, nil
}

// resolveCandidate returns nil without error when no resolver serves the match type.
func (s *ReconciliationService) resolveCandidate(ctx context.Context, t models.MatchType, id uuid.UUID) (*matching.MatchCandidate, error) {
	r, ok := s.resolvers[t]
	if !ok {
		return nil, nil
	}
	return r.GetCandidate(ctx, id)
}

func validateTarget(t models.MatchType, candidateID uuid.UUID, amount decimal.Decimal) error {
	switch {
	case !t.IsValid():
		return apperrors.Validation("match_type must be invoice, proforma or order")
	case candidateID == uuid.Nil:
		return apperrors.Validation("candidate_id is required")
	case !amount.IsPositive():
		return apperrors.Validation("amount must be positive")
	}
	return nil
}
