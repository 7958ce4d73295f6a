package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/config"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/pkg/logger"
)

// ScoredCandidate is one ranked suggestion for a transaction.
type ScoredCandidate struct {
	MatchType      models.MatchType `json:"match_type"`
	CandidateID    uuid.UUID        `json:"candidate_id"`
	DocumentNumber string           `json:"document_number"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	Status         string           `json:"status"`
	PartyName      string           `json:"party_name,omitempty"`
	DocumentDate   time.Time        `json:"document_date"`
	Score          int              `json:"score"`
	Signals        Signals          `json:"signals"`
	NameSimilarity float64          `json:"name_similarity"`
}

// SourceError reports a candidate source that failed while the others still answered.
type SourceError struct {
	Source  models.MatchType `json:"source"`
	Message string           `json:"message"`
}

// Suggestion groups the ranked candidates for one transaction.
type Suggestion struct {
	TransactionID uuid.UUID         `json:"transaction_id"`
	Reference     *Reference        `json:"reference,omitempty"`
	Suggestions   []ScoredCandidate `json:"suggestions"`
	SourceErrors  []SourceError     `json:"source_errors,omitempty"`
}

// BatchFilter selects the transactions SuggestBatch runs over.
type BatchFilter struct {
	BankAccountID *uuid.UUID `json:"bank_account_id,omitempty"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	Limit         int        `json:"limit"`
}

// Service suggests invoices, proformas and orders for incoming payments. It never writes.
type Service struct {
	sources      []CandidateSource
	transactions TransactionFinder
	rules        []ReferenceRule
	cfg          config.MatchingConfig
	tolerance    decimal.Decimal
	log          logger.Logger
}

func NewService(cfg config.MatchingConfig, transactions TransactionFinder, log logger.Logger, sources ...CandidateSource) *Service {
	return &Service{
		sources:      sources,
		transactions: transactions,
		rules:        DefaultReferenceRules,
		cfg:          cfg,
		tolerance:    cfg.Tolerance(),
		log:          log.WithComponent("matching"),
	}
}

// WithRules replaces the reference extraction rules.
func (s *Service) WithRules(rules []ReferenceRule) *Service {
	s.rules = rules
	return s
}

// Suggest ranks candidates for tx. Outgoing and already matched payments get an empty suggestion.
func (s *Service) Suggest(ctx context.Context, tx *models.BankTransaction) Suggestion {
	out := Suggestion{TransactionID: tx.ID, Suggestions: []ScoredCandidate{}}
	if !tx.IsIncoming() || tx.Status == models.TransactionStatusMatched {
		return out
	}

	if ref, ok := ExtractReference(s.rules, tx.Description, tx.Reference); ok {
		out.Reference = &ref
	}

	q := CandidateQuery{
		Amount:    tx.Amount,
		Tolerance: s.tolerance,
		Currency:  tx.Currency,
		DateFrom:  tx.ValueDate.AddDate(0, 0, -s.cfg.LookbackDays),
		DateTo:    tx.ValueDate.AddDate(0, 0, s.cfg.LookaheadDays),
	}
	if out.Reference != nil {
		q.Reference = out.Reference.Number
	}

	candidates, sourceErrors := s.collect(ctx, q)
	out.SourceErrors = sourceErrors

	for _, c := range candidates {
		// Sources filter in SQL; the decimal check keeps the tolerance exact across drivers.
		if c.TotalAmount.Sub(tx.Amount).Abs().GreaterThan(s.tolerance) {
			continue
		}
		signals := EvaluateSignals(tx.Amount, tx.ValueDate, out.Reference, c, s.cfg.DateProximityDays)
		out.Suggestions = append(out.Suggestions, ScoredCandidate{
			MatchType:      c.SourceType,
			CandidateID:    c.ID,
			DocumentNumber: c.DocumentNumber,
			TotalAmount:    c.TotalAmount,
			Status:         c.Status,
			PartyName:      c.PartyName,
			DocumentDate:   c.DocumentDate,
			Score:          Score(signals),
			Signals:        signals,
			NameSimilarity: NameSimilarity(tx.CounterpartyName, c.PartyName),
		})
	}

	rank(out.Suggestions)
	return out
}

// collect queries every source in parallel. A failing source is logged and reported, never fatal.
func (s *Service) collect(ctx context.Context, q CandidateQuery) ([]MatchCandidate, []SourceError) {
	type result struct {
		candidates []MatchCandidate
		err        error
	}

	results := make([]result, len(s.sources))
	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(i int, src CandidateSource) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i].err = apperrors.Upstream(string(src.Name()), panicError{r})
				}
			}()
			results[i].candidates, results[i].err = src.FindCandidates(ctx, q)
		}(i, src)
	}
	wg.Wait()

	var candidates []MatchCandidate
	var sourceErrors []SourceError
	for i, r := range results {
		name := s.sources[i].Name()
		if r.err != nil {
			s.log.WithError(r.err).WithField("source", name).Warnf("candidate source failed")
			sourceErrors = append(sourceErrors, SourceError{Source: name, Message: apperrors.Upstream(string(name), r.err).Message})
			continue
		}
		for _, c := range r.candidates {
			if c.SourceType == "" {
				c.SourceType = name
			}
			candidates = append(candidates, c)
		}
	}
	return candidates, sourceErrors
}

// rank orders by score, then counterparty similarity, then document number.
func rank(list []ScoredCandidate) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.NameSimilarity != b.NameSimilarity {
			return a.NameSimilarity > b.NameSimilarity
		}
		return a.DocumentNumber < b.DocumentNumber
	})
}

// SuggestBatch runs Suggest over one transaction or the unmatched incoming transactions of an account.
func (s *Service) SuggestBatch(ctx context.Context, filter BatchFilter) ([]Suggestion, error) {
	if filter.TransactionID != nil {
		tx, err := s.transactions.GetByID(ctx, *filter.TransactionID)
		if err != nil {
			return nil, err
		}
		return []Suggestion{s.Suggest(ctx, tx)}, nil
	}

	limit, err := s.limit(filter.Limit)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions.ListUnmatchedIncoming(ctx, filter.BankAccountID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(txs))
	for i := range txs {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Internal("suggest matches", err)
		}
		out = append(out, s.Suggest(ctx, &txs[i]))
	}
	s.log.WithFields(logger.Fields{"transactions": len(txs), "limit": limit}).Debugf("batch suggestion done")
	return out, nil
}

func (s *Service) limit(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, apperrors.Validation("limit cannot be negative")
	case requested == 0:
		return s.cfg.DefaultBatchLimit, nil
	case requested > s.cfg.MaxBatchLimit:
		return s.cfg.MaxBatchLimit, nil
	}
	return requested, nil
}

type panicError struct{ v interface{} }

func (p panicError) Error() string {
	return "source panicked"
}
