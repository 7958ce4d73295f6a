package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Matching.Tolerance().String() != "0.01" {
		t.Errorf("expected tolerance 0.01, got %s", cfg.Matching.Tolerance())
	}
	if !cfg.Import.SkipDuplicateTransactions {
		t.Error("expected per-transaction dedup to default on")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"sqlite without dsn", func(c *Config) { c.Database.Driver = "sqlite"; c.Database.DSN = "" }},
		{"bad tolerance", func(c *Config) { c.Matching.AmountTolerance = "abc" }},
		{"negative tolerance", func(c *Config) { c.Matching.AmountTolerance = "-0.01" }},
		{"negative lookback", func(c *Config) { c.Matching.LookbackDays = -1 }},
		{"max below default", func(c *Config) { c.Matching.MaxBatchLimit = 1 }},
		{"zero file size", func(c *Config) { c.Import.MaxFileBytes = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recon.yaml")
	content := []byte("database:\n  driver: sqlite\n  dsn: \"file::memory:\"\nmatching:\n  lookback_days: 30\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RECON_MATCHING_LOOKAHEAD_DAYS", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %s, want sqlite", cfg.Database.Driver)
	}
	if cfg.Matching.LookbackDays != 30 {
		t.Errorf("lookback = %d, want 30", cfg.Matching.LookbackDays)
	}
	if cfg.Matching.LookaheadDays != 3 {
		t.Errorf("lookahead = %d, want 3 from env", cfg.Matching.LookaheadDays)
	}
}

func TestInitDBSqliteAndMigrate(t *testing.T) {
	db, err := InitDB(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("InitDB() error: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	for _, table := range []string{"bank_accounts", "statement_imports", "bank_transactions", "payment_matches", "audit_logs", "invoices", "proformas", "orders"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("expected table %s", table)
		}
	}
}
