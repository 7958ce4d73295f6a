package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID            uuid.UUID       `gorm:"type:char(36);primaryKey"`
	OrderNumber   string          `gorm:"uniqueIndex;size:64"`
	CustomerName  string          `gorm:"index"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);index"`
	Currency      string          `gorm:"type:char(3)"`
	Status        string          `gorm:"index"`
	PaymentStatus string          `gorm:"index"`
	PlacedAt      time.Time       `gorm:"type:date;index"`
	CreatedAt     time.Time
}
