// Package importer turns an uploaded statement file into stored bank transactions.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/audit"
	"statement-reconciliation-backend/internal/config"
	"statement-reconciliation-backend/internal/extract"
	"statement-reconciliation-backend/internal/fingerprint"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/repository"
	"statement-reconciliation-backend/internal/statement"
	"statement-reconciliation-backend/pkg/logger"
)

type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Request struct {
	FileBytes      []byte
	Filename       string
	BankCode       string
	BankAccountID  uuid.UUID
	DeclaredPeriod *Period
	Actor          string
}

type Result struct {
	ImportID              uuid.UUID `json:"import_id"`
	TransactionsProcessed int       `json:"transactions_processed"`
	DuplicatesSkipped     int       `json:"duplicates_skipped"`
	ParseErrors           []string  `json:"parse_errors"`
}

type Manager struct {
	db           *gorm.DB
	accounts     *repository.BankAccountRepository
	imports      *repository.StatementImportRepository
	transactions *repository.BankTransactionRepository
	sink         audit.Sink
	cfg          config.ImportConfig
	log          logger.Logger
}

func NewManager(
	accounts *repository.BankAccountRepository,
	imports *repository.StatementImportRepository,
	transactions *repository.BankTransactionRepository,
	sink audit.Sink,
	cfg config.ImportConfig,
	log logger.Logger,
) *Manager {
	return &Manager{
		db:           imports.DB(),
		accounts:     accounts,
		imports:      imports,
		transactions: transactions,
		sink:         sink,
		cfg:          cfg,
		log:          log.WithComponent("importer"),
	}
}

// Import stores every new transaction of one statement file. Nothing is written unless the
// whole import succeeds.
func (m *Manager) Import(ctx context.Context, req Request) (*Result, error) {
	if err := m.validate(req); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(req.FileBytes)
	hash := hex.EncodeToString(sum[:])

	exists, err := m.imports.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.DuplicateImport(hash)
	}

	account, err := m.accounts.GetByID(ctx, req.BankAccountID)
	if err != nil {
		return nil, err
	}

	code, err := statement.ParseBankCode(req.BankCode)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryValidation, apperrors.CodeUnsupportedBank,
			"bank "+strings.TrimSpace(req.BankCode)+" is not supported")
	}
	parser, err := statement.NewParser(code)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryValidation, apperrors.CodeUnsupportedBank, "bank is not supported")
	}

	text, err := extract.Text(req.FileBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryParse, apperrors.CodeParse, "statement file could not be read")
	}
	parsed := statement.Parse(parser, text, account.ID)

	rows, skipped, err := m.buildRows(ctx, account, parsed.Transactions)
	if err != nil {
		return nil, err
	}

	imp := &models.StatementImport{
		ID:                uuid.New(),
		BankAccountID:     account.ID,
		Filename:          req.Filename,
		FileHash:          hash,
		BankCode:          string(code),
		Status:            models.ImportStatusProcessed,
		ImportedBy:        req.Actor,
		ImportedAt:        time.Now().UTC(),
		TransactionCount:  len(rows),
		DuplicatesSkipped: skipped,
		ParseErrors:       errorsJSON(parsed.Errors),
	}
	switch {
	case req.DeclaredPeriod != nil:
		imp.PeriodStart, imp.PeriodEnd = &req.DeclaredPeriod.Start, &req.DeclaredPeriod.End
	case parsed.AccountInfo != nil:
		imp.PeriodStart, imp.PeriodEnd = &parsed.AccountInfo.PeriodStart, &parsed.AccountInfo.PeriodEnd
	}
	for i := range rows {
		rows[i].StatementImportID = imp.ID
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.imports.WithTx(tx).Create(ctx, imp); err != nil {
			return err
		}
		return m.transactions.WithTx(tx).CreateBatch(ctx, rows)
	})
	if err != nil {
		return nil, apperrors.WrapIfNeeded(err, "import statement")
	}

	parseErrors := parsed.Errors
	if parseErrors == nil {
		parseErrors = []string{}
	}

	m.log.WithFields(logger.Fields{
		"import_id":    imp.ID,
		"account_id":   account.ID,
		"bank":         code,
		"transactions": len(rows),
		"duplicates":   skipped,
		"parse_errors": len(parseErrors),
	}).Infof("statement imported")

	m.sink.Record(ctx, audit.Event{
		Action:       audit.ActionStatementImport,
		ResourceType: "statement_import",
		ResourceID:   imp.ID.String(),
		AfterState: map[string]interface{}{
			"bank_account_id":    account.ID,
			"filename":           req.Filename,
			"transaction_count":  len(rows),
			"duplicates_skipped": skipped,
			"parse_errors":       parseErrors,
		},
		ActorID:   req.Actor,
		Timestamp: imp.ImportedAt,
	})

	return &Result{
		ImportID:              imp.ID,
		TransactionsProcessed: len(rows),
		DuplicatesSkipped:     skipped,
		ParseErrors:           parseErrors,
	}, nil
}

func (m *Manager) validate(req Request) error {
	switch {
	case len(req.FileBytes) == 0:
		return apperrors.Validation("statement file is empty")
	case int64(len(req.FileBytes)) > m.cfg.MaxFileBytes:
		return apperrors.Validation("statement file exceeds %d bytes", m.cfg.MaxFileBytes)
	case req.BankAccountID == uuid.Nil:
		return apperrors.Validation("bank_account_id is required")
	case strings.TrimSpace(req.BankCode) == "":
		return apperrors.Validation("bank_code is required")
	case req.DeclaredPeriod != nil && req.DeclaredPeriod.End.Before(req.DeclaredPeriod.Start):
		return apperrors.Validation("period end is before period start")
	}
	return nil
}

// buildRows fingerprints parsed transactions and drops those already stored for the account or
// repeated within the file.
func (m *Manager) buildRows(ctx context.Context, account *models.BankAccount, parsed []statement.RawTransaction) ([]models.BankTransaction, int, error) {
	rows := make([]models.BankTransaction, 0, len(parsed))
	fps := make([]string, 0, len(parsed))

	for _, raw := range parsed {
		currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
		if currency == "" {
			currency = account.Currency
		}
		fp := fingerprint.Compute(fingerprint.Fields{
			Date:             raw.ValueDate,
			Amount:           raw.Amount,
			Currency:         currency,
			Description:      raw.Description,
			Reference:        raw.Reference,
			CounterpartyIBAN: raw.CounterpartyIBAN,
		})
		fps = append(fps, fp)
		rows = append(rows, models.BankTransaction{
			ID:               uuid.New(),
			BankAccountID:    account.ID,
			ValueDate:        raw.ValueDate,
			Amount:           raw.Amount.Round(2),
			Currency:         currency,
			Description:      raw.Description,
			Reference:        raw.Reference,
			CounterpartyName: raw.CounterpartyName,
			CounterpartyIBAN: raw.CounterpartyIBAN,
			Fingerprint:      fp,
			Status:           models.TransactionStatusUnmatched,
			RawText:          raw.RawText,
		})
	}

	if !m.cfg.SkipDuplicateTransactions {
		return rows, 0, nil
	}

	stored, err := m.transactions.ExistingFingerprints(ctx, account.ID, fps)
	if err != nil {
		return nil, 0, err
	}

	kept := rows[:0]
	seen := make(map[string]bool, len(rows))
	skipped := 0
	for _, row := range rows {
		if stored[row.Fingerprint] || seen[row.Fingerprint] {
			skipped++
			continue
		}
		seen[row.Fingerprint] = true
		kept = append(kept, row)
	}
	return kept, skipped, nil
}

func errorsJSON(errs []string) datatypes.JSON {
	if len(errs) == 0 {
		return nil
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
