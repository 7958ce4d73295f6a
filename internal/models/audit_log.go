package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLog struct {
	ID           uuid.UUID      `gorm:"type:char(36);primaryKey"`
	Action       string         `gorm:"size:64;index"`
	ResourceType string         `gorm:"size:64"`
	ResourceID   string         `gorm:"size:64;index"`
	BeforeState  datatypes.JSON
	AfterState   datatypes.JSON
	ActorID      string `gorm:"size:120"`
	CreatedAt    time.Time
}
