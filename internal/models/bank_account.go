package models

import (
	"time"

	"github.com/google/uuid"
)

type BankAccount struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	IBAN      string    `gorm:"size:34;uniqueIndex;not null" json:"iban"`
	BankName  string    `gorm:"size:120" json:"bank_name"`
	Currency  string    `gorm:"type:char(3);not null" json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
