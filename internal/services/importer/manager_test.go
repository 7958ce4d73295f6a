package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/audit"
	"statement-reconciliation-backend/internal/config"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/repository"
	"statement-reconciliation-backend/internal/testutil"
	"statement-reconciliation-backend/pkg/logger"
)

const januaryStatement = `Extras de cont
Perioada: 01/01/2024 - 31/01/2024
Data;Descriere;Referinta;Debit;Credit;Contrapartida;IBAN contrapartida
08/01/2024;Factura INV-2024001 plata;OP123;;4.500,00;SC ACME SRL;RO49AAAA1B31007593840000
09/01/2024;Comision administrare;;12,50;;;
not a transaction
`

// Overlaps January by one transaction.
const februaryStatement = `Perioada: 09/01/2024 - 29/02/2024
09/01/2024;Comision administrare;;12,50;;;
02/02/2024;Plata CMD-100;;;100,00;Ion Popescu;
02/02/2024;Plata CMD-100;;;100,00;Ion Popescu;
`

type fixture struct {
	db       *gorm.DB
	manager  *Manager
	recorder *audit.Recorder
	account  *models.BankAccount
}

func newFixture(t *testing.T, mutate ...func(*config.ImportConfig)) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := config.Default().Import
	for _, fn := range mutate {
		fn(&cfg)
	}
	rec := &audit.Recorder{}
	m := NewManager(
		repository.NewBankAccountRepository(db),
		repository.NewStatementImportRepository(db),
		repository.NewBankTransactionRepository(db),
		rec,
		cfg,
		logger.Discard(),
	)
	return &fixture{db: db, manager: m, recorder: rec, account: testutil.SeedAccount(t, db, "RO49BTRL0000000000000001")}
}

func (f *fixture) request(body string) Request {
	return Request{
		FileBytes:     []byte(body),
		Filename:      "extras.txt",
		BankCode:      "bt",
		BankAccountID: f.account.ID,
		Actor:         "alice",
	}
}

func (f *fixture) countTransactions(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&models.BankTransaction{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestImportStoresTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.manager.Import(ctx, f.request(januaryStatement))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.TransactionsProcessed != 2 || res.DuplicatesSkipped != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(res.ParseErrors) != 1 || !strings.HasPrefix(res.ParseErrors[0], "line 6:") {
		t.Errorf("parse errors = %v", res.ParseErrors)
	}

	var imp models.StatementImport
	if err := f.db.First(&imp, "id = ?", res.ImportID).Error; err != nil {
		t.Fatalf("load import: %v", err)
	}
	if imp.Status != models.ImportStatusProcessed || imp.TransactionCount != 2 || imp.ImportedBy != "alice" {
		t.Errorf("unexpected import row %+v", imp)
	}
	if imp.PeriodStart == nil || imp.PeriodStart.Day() != 1 || imp.PeriodEnd.Day() != 31 {
		t.Errorf("period not stored: %v - %v", imp.PeriodStart, imp.PeriodEnd)
	}

	var txs []models.BankTransaction
	f.db.Order("value_date ASC").Find(&txs, "statement_import_id = ?", res.ImportID)
	if len(txs) != 2 {
		t.Fatalf("expected 2 stored transactions, got %d", len(txs))
	}
	for _, tx := range txs {
		if tx.Status != models.TransactionStatusUnmatched || len(tx.Fingerprint) != 64 {
			t.Errorf("unexpected stored row %+v", tx)
		}
		if tx.Currency != "RON" {
			t.Errorf("currency should default to the account's, got %q", tx.Currency)
		}
	}

	if got := f.recorder.Actions(); len(got) != 1 || got[0] != audit.ActionStatementImport {
		t.Errorf("audit actions = %v", got)
	}
}

func TestImportDuplicateFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.manager.Import(ctx, f.request(januaryStatement)); err != nil {
		t.Fatalf("first import: %v", err)
	}
	before := f.countTransactions(t)

	_, err := f.manager.Import(ctx, f.request(januaryStatement))
	if !apperrors.HasCode(err, apperrors.CodeDuplicateImport) {
		t.Fatalf("expected DUPLICATE_IMPORT, got %v", err)
	}
	if after := f.countTransactions(t); after != before {
		t.Errorf("transaction count changed from %d to %d", before, after)
	}

	var imports int64
	f.db.Model(&models.StatementImport{}).Count(&imports)
	if imports != 1 {
		t.Errorf("expected exactly one import row, got %d", imports)
	}
}

func TestImportDuplicateCheckedBeforeAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.manager.Import(ctx, f.request(januaryStatement)); err != nil {
		t.Fatal(err)
	}

	req := f.request(januaryStatement)
	req.BankAccountID = uuid.New()
	if _, err := f.manager.Import(ctx, req); !apperrors.HasCode(err, apperrors.CodeDuplicateImport) {
		t.Errorf("duplicate hash should win over unknown account, got %v", err)
	}
}

func TestImportSkipsKnownTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.manager.Import(ctx, f.request(januaryStatement)); err != nil {
		t.Fatal(err)
	}
	res, err := f.manager.Import(ctx, f.request(februaryStatement))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if res.TransactionsProcessed != 1 || res.DuplicatesSkipped != 2 {
		t.Errorf("expected 1 new and 2 skipped, got %+v", res)
	}
	if n := f.countTransactions(t); n != 3 {
		t.Errorf("expected 3 transactions overall, got %d", n)
	}
}

func TestImportKeepsDuplicatesWhenDisabled(t *testing.T) {
	f := newFixture(t, func(c *config.ImportConfig) { c.SkipDuplicateTransactions = false })

	res, err := f.manager.Import(context.Background(), f.request(februaryStatement))
	if err != nil {
		t.Fatal(err)
	}
	if res.TransactionsProcessed != 3 || res.DuplicatesSkipped != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestImportPreconditions(t *testing.T) {
	f := newFixture(t, func(c *config.ImportConfig) { c.MaxFileBytes = 1024 })
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Request)
		code   apperrors.Code
	}{
		{"empty file", func(r *Request) { r.FileBytes = nil }, apperrors.CodeValidation},
		{"too large", func(r *Request) { r.FileBytes = make([]byte, 2048) }, apperrors.CodeValidation},
		{"missing account", func(r *Request) { r.BankAccountID = uuid.Nil }, apperrors.CodeValidation},
		{"missing bank", func(r *Request) { r.BankCode = " " }, apperrors.CodeValidation},
		{"inverted period", func(r *Request) {
			r.DeclaredPeriod = &Period{Start: testutil.Date(2024, 2, 1), End: testutil.Date(2024, 1, 1)}
		}, apperrors.CodeValidation},
		{"unknown account", func(r *Request) { r.BankAccountID = uuid.New() }, apperrors.CodeAccountNotFound},
		{"unsupported bank", func(r *Request) { r.BankCode = "revolut" }, apperrors.CodeUnsupportedBank},
		{"broken pdf", func(r *Request) { r.FileBytes = []byte("%PDF-1.4 broken") }, apperrors.CodeParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(januaryStatement)
			tt.mutate(&req)
			if _, err := f.manager.Import(ctx, req); !apperrors.HasCode(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}

	if n := f.countTransactions(t); n != 0 {
		t.Errorf("failed imports must not write, found %d transactions", n)
	}
	if len(f.recorder.Events()) != 0 {
		t.Error("failed imports must not be audited")
	}
}

func TestImportEmptyStatementIsValid(t *testing.T) {
	f := newFixture(t)
	res, err := f.manager.Import(context.Background(), f.request("Extras de cont\n"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.TransactionsProcessed != 0 || len(res.ParseErrors) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestImportDeclaredPeriodWins(t *testing.T) {
	f := newFixture(t)
	req := f.request(januaryStatement)
	req.DeclaredPeriod = &Period{Start: testutil.Date(2024, 1, 5), End: testutil.Date(2024, 1, 10)}

	res, err := f.manager.Import(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	var imp models.StatementImport
	f.db.First(&imp, "id = ?", res.ImportID)
	if imp.PeriodStart == nil || imp.PeriodStart.Day() != 5 {
		t.Errorf("declared period should be stored, got %v", imp.PeriodStart)
	}
}

// Text as it comes out of PDF extraction: single spaces, no indentation.
const ingExtractedStatement = `Extras de cont
Perioada: 01.01.2024 - 31.01.2024
08.01.2024 Incasare Factura INV-2024001 plata +4,500.00 RON
Ordonator: SC ACME SRL
IBAN: RO49AAAA1B31007593840000
Referinta: OP123
`

func TestImportINGExtractedText(t *testing.T) {
	f := newFixture(t)
	req := f.request(ingExtractedStatement)
	req.BankCode = "ing"

	res, err := f.manager.Import(context.Background(), req)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.TransactionsProcessed != 1 || len(res.ParseErrors) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	var tx models.BankTransaction
	if err := f.db.First(&tx, "statement_import_id = ?", res.ImportID).Error; err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	if tx.CounterpartyName != "SC ACME SRL" || tx.CounterpartyIBAN != "RO49AAAA1B31007593840000" || tx.Reference != "OP123" {
		t.Errorf("detail lines not stored: %+v", tx)
	}
}
