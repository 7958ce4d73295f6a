package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/config"
	"statement-reconciliation-backend/internal/testutil"
)

const cliStatement = `Perioada: 01/01/2024 - 31/01/2024
Moneda: RON
08/01/2024;Factura INV-2024001 plata;;;4.500,00;SC ACME SRL;
`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dsn := filepath.Join(dir, "recon.db")
	t.Setenv("RECON_DATABASE_DRIVER", "sqlite")
	t.Setenv("RECON_DATABASE_DSN", dsn)
	t.Setenv("RECON_LOG_LEVEL", "error")
	return dsn
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, out interface{}, args ...string) {
	t.Helper()
	stdout, err := run(t, args...)
	if err != nil {
		t.Fatalf("reconctl %s: %v", strings.Join(args, " "), err)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(stdout), out); err != nil {
			t.Fatalf("reconctl %s: decode %q: %v", strings.Join(args, " "), stdout, err)
		}
	}
}

func seedInvoice(t *testing.T, dsn string) string {
	t.Helper()
	db, err := config.InitDB(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	return testutil.SeedInvoice(t, db, "INV-2024001", "4500.00", testutil.Date(2024, 1, 5), "sent").ID.String()
}

func TestCLIWorkflow(t *testing.T) {
	dsn := setupEnv(t)

	out, err := run(t, "migrate")
	if err != nil || !strings.Contains(out, "schema up to date") {
		t.Fatalf("migrate: %q, %v", out, err)
	}
	invoiceID := seedInvoice(t, dsn)

	var account struct {
		ID string `json:"id"`
	}
	mustRun(t, &account, "accounts", "create", "--name", "Operating", "--iban", "RO49 AAAA 1B31 0075 9384 0000", "--bank", "BT")

	file := filepath.Join(t.TempDir(), "extras.txt")
	if err := os.WriteFile(file, []byte(cliStatement), 0o600); err != nil {
		t.Fatal(err)
	}
	var imported struct {
		ImportID              string `json:"import_id"`
		TransactionsProcessed int    `json:"transactions_processed"`
	}
	mustRun(t, &imported, "import", "--file", file, "--bank", "bt", "--account", account.ID, "--actor", "alice")
	if imported.TransactionsProcessed != 1 {
		t.Fatalf("unexpected import result %+v", imported)
	}

	_, err = run(t, "import", "--file", file, "--bank", "bt", "--account", account.ID)
	if !apperrors.HasCode(err, apperrors.CodeDuplicateImport) {
		t.Errorf("re-import should be DUPLICATE_IMPORT, got %v", err)
	}

	var suggestions []struct {
		TransactionID string `json:"transaction_id"`
		Suggestions   []struct {
			CandidateID string `json:"candidate_id"`
		} `json:"suggestions"`
	}
	mustRun(t, &suggestions, "suggest", "--account", account.ID, "--record")
	if len(suggestions) != 1 || len(suggestions[0].Suggestions) == 0 || suggestions[0].Suggestions[0].CandidateID != invoiceID {
		t.Fatalf("unexpected suggestions %+v", suggestions)
	}
	txID := suggestions[0].TransactionID

	var matches []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	mustRun(t, &matches, "matches", "list", txID)
	if len(matches) != 1 || matches[0].Status != "suggested" {
		t.Fatalf("expected one stored suggestion, got %+v", matches)
	}

	var confirmed struct {
		MatchID string `json:"match_id"`
		Status  string `json:"status"`
	}
	mustRun(t, &confirmed, "matches", "confirm", "--transaction", txID, "--match", matches[0].ID, "--actor", "bob")
	if confirmed.MatchID != matches[0].ID || confirmed.Status != "confirmed" {
		t.Errorf("unexpected confirm output %+v", confirmed)
	}

	_, err = run(t, "matches", "reject", confirmed.MatchID)
	if !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		t.Errorf("rejecting a confirmed match should be INVALID_TRANSITION, got %v", err)
	}
}

func TestCLIFlagValidation(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad account id", []string{"import", "--file", "x.txt", "--bank", "bt", "--account", "nope"}},
		{"half period", []string{"import", "--file", "x.txt", "--bank", "bt", "--account", "4f1d5b34-2b63-4bde-9d2a-6a1e0e6c0a11", "--period-start", "2024-01-01"}},
		{"bad suggest account", []string{"suggest", "--account", "nope"}},
		{"bad confirm amount", []string{"matches", "confirm", "--transaction", "4f1d5b34-2b63-4bde-9d2a-6a1e0e6c0a11", "--amount", "lots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected VALIDATION_FAILED, got %v", err)
			}
			var buf bytes.Buffer
			if code := ReportError(&buf, err); code != 2 || !strings.HasPrefix(buf.String(), "Error [VALIDATION_FAILED]") {
				t.Errorf("ReportError = %d %q", code, buf.String())
			}
		})
	}

	var buf bytes.Buffer
	if code := ReportError(&buf, errors.New("boom")); code != 1 || buf.String() != "Error: boom\n" {
		t.Errorf("ReportError(plain) = %d %q", code, buf.String())
	}
}
