package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	domainRepo "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// webhookEventRepository logs inbound processor events for operators.
type webhookEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewWebhookEventRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WebhookEventRepository {
	return &webhookEventRepository{db: db, logger: logger}
}

// Record inserts the event, or counts another delivery of a known event key.
func (r *webhookEventRepository) Record(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	db := conn(ctx, r.db)

	// Use ON CONFLICT to handle duplicate deliveries
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_key"}},
		DoNothing: true,
	}).Create(event)
	if result.Error != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("event_key", event.EventKey),
			zap.String("event_type", event.EventType),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to save webhook event: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	err := db.Model(&model.WebhookEvent{}).
		Where("event_key = ?", event.EventKey).
		Update("deliveries", gorm.Expr("deliveries + 1")).Error
	if err != nil {
		return false, fmt.Errorf("failed to count webhook delivery: %w", err)
	}
	return false, nil
}

func (r *webhookEventRepository) MarkStatus(ctx context.Context, eventKey string, status model.WebhookEventStatus, errMsg string) error {
	now := time.Now()
	result := conn(ctx, r.db).
		Model(&model.WebhookEvent{}).
		Where("event_key = ?", eventKey).
		Updates(map[string]interface{}{
			"status":       status,
			"error":        errMsg,
			"processed_at": &now,
		})
	if result.Error != nil {
		r.logger.Error("Failed to update webhook event status",
			zap.String("event_key", eventKey),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update webhook event status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainRepo.ErrNotFound
	}
	return nil
}
