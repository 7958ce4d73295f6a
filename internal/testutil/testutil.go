// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/config"
	"statement-reconciliation-backend/internal/models"
)

// NewTestDB opens a private in-memory sqlite database with the full schema.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := config.InitDB(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Amount parses a decimal literal and panics on typos.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustCreate(t testing.TB, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("seed %T: %v", v, err)
	}
}

func SeedAccount(t testing.TB, db *gorm.DB, iban string) *models.BankAccount {
	t.Helper()
	acc := &models.BankAccount{
		ID:       uuid.New(),
		Name:     "Operating account",
		IBAN:     iban,
		BankName: "Banca Transilvania",
		Currency: "RON",
	}
	mustCreate(t, db, acc)
	return acc
}

func SeedImport(t testing.TB, db *gorm.DB, accountID uuid.UUID) *models.StatementImport {
	t.Helper()
	imp := &models.StatementImport{
		ID:            uuid.New(),
		BankAccountID: accountID,
		Filename:      "seed.txt",
		FileHash:      uuid.NewString(),
		BankCode:      "bt",
		Status:        models.ImportStatusProcessed,
		ImportedBy:    "test",
		ImportedAt:    time.Now().UTC(),
	}
	mustCreate(t, db, imp)
	return imp
}

func SeedTransaction(t testing.TB, db *gorm.DB, imp *models.StatementImport, date time.Time, amount, description string) *models.BankTransaction {
	t.Helper()
	tx := &models.BankTransaction{
		ID:                uuid.New(),
		StatementImportID: imp.ID,
		BankAccountID:     imp.BankAccountID,
		ValueDate:         date,
		Amount:            Amount(amount),
		Currency:          "RON",
		Description:       description,
		Fingerprint:       uuid.NewString(),
		Status:            models.TransactionStatusUnmatched,
	}
	mustCreate(t, db, tx)
	return tx
}

func SeedInvoice(t testing.TB, db *gorm.DB, number, amount string, issued time.Time, status string) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		CustomerName:  "SC ACME SRL",
		TotalAmount:   Amount(amount),
		Currency:      "RON",
		Status:        status,
		IssueDate:     issued,
		DueDate:       issued.AddDate(0, 0, 30),
	}
	mustCreate(t, db, inv)
	return inv
}

func SeedProforma(t testing.TB, db *gorm.DB, number, amount string, issued time.Time, status string) *models.Proforma {
	t.Helper()
	pf := &models.Proforma{
		ID:             uuid.New(),
		ProformaNumber: number,
		CustomerName:   "SC ACME SRL",
		TotalAmount:    Amount(amount),
		Currency:       "RON",
		Status:         status,
		IssueDate:      issued,
	}
	mustCreate(t, db, pf)
	return pf
}

func SeedOrder(t testing.TB, db *gorm.DB, number, amount string, placed time.Time, paymentStatus string) *models.Order {
	t.Helper()
	o := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		CustomerName:  "Ion Popescu",
		TotalAmount:   Amount(amount),
		Currency:      "RON",
		Status:        "placed",
		PaymentStatus: paymentStatus,
		PlacedAt:      placed,
	}
	mustCreate(t, db, o)
	return o
}
