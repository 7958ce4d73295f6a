// Package reconciliation is the boundary the transports call: accounts, imports, transaction
// listing, match suggestion and the confirm/reject workflow.
package reconciliation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/audit"
	"statement-reconciliation-backend/internal/config"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/repository"
	"statement-reconciliation-backend/internal/services/importer"
	"statement-reconciliation-backend/internal/services/matching"
	"statement-reconciliation-backend/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// CandidateResolver loads one billing document so a confirmed match can carry its number.
type CandidateResolver interface {
	Name() models.MatchType
	GetCandidate(ctx context.Context, id uuid.UUID) (*matching.MatchCandidate, error)
}

type ReconciliationService struct {
	db              *gorm.DB
	accountRepo     *repository.BankAccountRepository
	importRepo      *repository.StatementImportRepository
	transactionRepo *repository.BankTransactionRepository
	matchRepo       *repository.PaymentMatchRepository
	invoiceRepo     *repository.InvoiceRepository
	importer        *importer.Manager
	matcher         *matching.Service
	resolvers       map[models.MatchType]CandidateResolver
	sink            audit.Sink
	log             logger.Logger
}

// NewReconciliationService wires repositories, the importer and the matcher over one database.
func NewReconciliationService(db *gorm.DB, cfg *config.Config, sink audit.Sink, log logger.Logger) *ReconciliationService {
	accountRepo := repository.NewBankAccountRepository(db)
	importRepo := repository.NewStatementImportRepository(db)
	transactionRepo := repository.NewBankTransactionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	proformaRepo := repository.NewProformaRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	s := &ReconciliationService{
		db:              db,
		accountRepo:     accountRepo,
		importRepo:      importRepo,
		transactionRepo: transactionRepo,
		matchRepo:       repository.NewPaymentMatchRepository(db),
		invoiceRepo:     invoiceRepo,
		importer:        importer.NewManager(accountRepo, importRepo, transactionRepo, sink, cfg.Import, log),
		matcher:         matching.NewService(cfg.Matching, transactionRepo, log, invoiceRepo, proformaRepo, orderRepo),
		sink:            sink,
		log:             log.WithComponent("reconciliation"),
	}
	s.WithResolvers(invoiceRepo, proformaRepo, orderRepo)
	return s
}

// WithMatcher swaps the matching service, e.g. to plug in other candidate sources.
func (s *ReconciliationService) WithMatcher(m *matching.Service) *ReconciliationService {
	s.matcher = m
	return s
}

// WithResolvers replaces the candidate lookups used when confirming.
func (s *ReconciliationService) WithResolvers(resolvers ...CandidateResolver) *ReconciliationService {
	s.resolvers = make(map[models.MatchType]CandidateResolver, len(resolvers))
	for _, r := range resolvers {
		s.resolvers[r.Name()] = r
	}
	return s
}

// ImportStatement hands the upload to the import manager.
func (s *ReconciliationService) ImportStatement(ctx context.Context, req importer.Request) (*importer.Result, error) {
	return s.importer.Import(ctx, req)
}

func (s *ReconciliationService) GetImport(ctx context.Context, id uuid.UUID) (*models.StatementImport, error) {
	return s.importRepo.GetByID(ctx, id)
}

// ImportStats summarizes the transactions of one import by status and direction.
func (s *ReconciliationService) ImportStats(ctx context.Context, id uuid.UUID) (repository.ImportStats, error) {
	if _, err := s.importRepo.GetByID(ctx, id); err != nil {
		return repository.ImportStats{}, err
	}
	return s.transactionRepo.StatsByImport(ctx, id)
}

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

type TransactionPage struct {
	Items      []models.BankTransaction `json:"items"`
	NextCursor string                   `json:"next_cursor,omitempty"`
	HasMore    bool                     `json:"has_more"`
}

func (s *ReconciliationService) ListTransactions(ctx context.Context, f TransactionFilter) (*TransactionPage, error) {
	switch f.Status {
	case "", "all", models.TransactionStatusUnmatched, models.TransactionStatusMatched:
	default:
		return nil, apperrors.Validation("unknown status %q", f.Status)
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return nil, apperrors.Validation("date_to is before date_from")
	}
	if f.Cursor != "" {
		if _, err := repository.ParseCursor(f.Cursor); err != nil {
			return nil, apperrors.Validation("invalid cursor")
		}
	}
	switch {
	case f.Limit < 0:
		return nil, apperrors.Validation("limit cannot be negative")
	case f.Limit == 0:
		f.Limit = defaultPageSize
	case f.Limit > maxPageSize:
		f.Limit = maxPageSize
	}

	items, next, err := s.transactionRepo.List(ctx, repository.TransactionFilter{
		ImportID:      f.ImportID,
		BankAccountID: f.BankAccountID,
		Status:        f.Status,
		DateFrom:      f.DateFrom,
		DateTo:        f.DateTo,
		Search:        strings.TrimSpace(f.Search),
		Cursor:        f.Cursor,
		Limit:         f.Limit,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.BankTransaction{}
	}
	return &TransactionPage{Items: items, NextCursor: next, HasMore: next != ""}, nil
}

// SuggestMatches ranks candidates for the selected transactions. Nothing is stored.
func (s *ReconciliationService) SuggestMatches(ctx context.Context, filter matching.BatchFilter) ([]matching.Suggestion, error) {
	if filter.BankAccountID != nil {
		if _, err := s.accountRepo.GetByID(ctx, *filter.BankAccountID); err != nil {
			return nil, err
		}
	}
	return s.matcher.SuggestBatch(ctx, filter)
}

// ListMatches returns every match row recorded for a transaction.
func (s *ReconciliationService) ListMatches(ctx context.Context, transactionID uuid.UUID) ([]models.PaymentMatch, error) {
	exists, err := s.transactionRepo.Exists(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFound(apperrors.CodeTransactionNotFound, "transaction", transactionID)
	}
	matches, err := s.matchRepo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []models.PaymentMatch{}
	}
	return matches, nil
}

// SearchInvoices is the manual invoice lookup for reviewers.
func (s *ReconciliationService) SearchInvoices(ctx context.Context, text string, amount decimal.Decimal, statuses []string) ([]models.Invoice, error) {
	invoices, err := s.invoiceRepo.SearchInvoices(ctx, strings.TrimSpace(text), amount, statuses)
	if err != nil {
		return nil, apperrors.Internal("search invoices", err)
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	return invoices, nil
}

func (s *ReconciliationService) DB() *gorm.DB {
	return s.db
}

func actorOrSystem(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return "system"
}
