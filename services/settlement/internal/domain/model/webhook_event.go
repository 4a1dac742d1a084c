package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WebhookEventStatus string

const (
	WebhookEventReceived  WebhookEventStatus = "received"
	WebhookEventProcessed WebhookEventStatus = "processed"
	WebhookEventIgnored   WebhookEventStatus = "ignored"
	WebhookEventFailed    WebhookEventStatus = "failed"
)

// WebhookEvent logs every authenticated inbound processor event for operators.
type WebhookEvent struct {
	ID          uuid.UUID          `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Provider    string             `gorm:"type:varchar(20);not null" json:"provider"`
	EventKey    string             `gorm:"type:varchar(255);uniqueIndex;not null" json:"event_key"`
	EventType   string             `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Reference   string             `gorm:"type:varchar(255);index" json:"reference"`
	Payload     datatypes.JSON     `gorm:"type:jsonb" json:"payload"`
	Status      WebhookEventStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Error       string             `gorm:"type:text" json:"error,omitempty"`
	Deliveries  int                `gorm:"not null;default:1" json:"deliveries"`
	ReceivedAt  time.Time          `gorm:"not null" json:"received_at"`
	ProcessedAt *time.Time         `json:"processed_at,omitempty"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
