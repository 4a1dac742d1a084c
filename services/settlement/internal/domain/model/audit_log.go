package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLog is the persisted form of a settlement event.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	EventType  string            `gorm:"type:varchar(64);not null;index" json:"event_type"`
	Severity   string            `gorm:"type:varchar(16);not null" json:"severity"`
	EntityType string            `gorm:"type:varchar(32);not null;index:idx_audit_entity,priority:1" json:"entity_type"`
	EntityID   string            `gorm:"type:varchar(64);not null;index:idx_audit_entity,priority:2" json:"entity_id"`
	FarmerID   *uuid.UUID        `gorm:"type:uuid;index" json:"farmer_id,omitempty"`
	Status     string            `gorm:"type:varchar(20)" json:"status,omitempty"`
	Message    string            `gorm:"type:text" json:"message,omitempty"`
	Data       datatypes.JSONMap `gorm:"type:jsonb" json:"data,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "settlement_audit_logs"
}
