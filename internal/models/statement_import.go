package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ImportStatusProcessed = "processed"
	ImportStatusFailed    = "failed"
)

// StatementImport records one uploaded statement file. FileHash is the whole-file dedup key.
type StatementImport struct {
	ID                uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	BankAccountID     uuid.UUID      `gorm:"type:char(36);index;not null" json:"bank_account_id"`
	Filename          string         `gorm:"size:255" json:"filename"`
	FileHash          string         `gorm:"size:64;uniqueIndex;not null" json:"file_hash"`
	BankCode          string         `gorm:"size:16" json:"bank_code"`
	Status            string         `gorm:"size:16;not null" json:"status"`
	ImportedBy        string         `gorm:"size:120" json:"imported_by"`
	ImportedAt        time.Time      `json:"imported_at"`
	PeriodStart       *time.Time     `gorm:"type:date" json:"period_start,omitempty"`
	PeriodEnd         *time.Time     `gorm:"type:date" json:"period_end,omitempty"`
	TransactionCount  int            `json:"transaction_count"`
	DuplicatesSkipped int            `json:"duplicates_skipped"`
	ParseErrors       datatypes.JSON `json:"parse_errors,omitempty"`
}
