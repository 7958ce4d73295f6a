package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice, Proforma and Order belong to the billing domain. The engine only reads them.
type Invoice struct {
	ID            uuid.UUID       `gorm:"type:char(36);primaryKey"`
	InvoiceNumber string          `gorm:"uniqueIndex;size:64"`
	CustomerName  string          `gorm:"index"`
	CustomerEmail string
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);index"`
	Currency      string          `gorm:"type:char(3)"`
	Status        string          `gorm:"index"`
	IssueDate     time.Time       `gorm:"type:date;index"`
	DueDate       time.Time       `gorm:"type:date"`
	PaidAt        *time.Time
	CreatedAt     time.Time
}
