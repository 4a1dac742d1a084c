// Package eventsink delivers settlement events to the audit store, the
// message brokers and the operator mailbox.
package eventsink

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// AuditSink persists every event as an audit log row.
type AuditSink struct {
	logs repository.AuditLogRepository
}

func NewAuditSink(logs repository.AuditLogRepository) *AuditSink {
	return &AuditSink{logs: logs}
}

func (s *AuditSink) Publish(ctx context.Context, evt event.Event) error {
	entry := &model.AuditLog{
		EventType:  evt.Type,
		Severity:   string(evt.Severity),
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Status:     evt.Status,
		Message:    evt.Message,
		CreatedAt:  evt.OccurredAt,
	}
	if id, err := uuid.Parse(evt.FarmerID); err == nil {
		entry.FarmerID = &id
	}
	if len(evt.Data) > 0 {
		entry.Data = datatypes.JSONMap(evt.Data)
	}
	return s.logs.Create(ctx, entry)
}
