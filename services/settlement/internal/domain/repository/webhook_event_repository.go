package repository

import (
	"context"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
)

type WebhookEventRepository interface {
	// Record stores a new event or bumps the delivery count of a known one.
	// It reports whether the event key was seen for the first time.
	Record(ctx context.Context, event *model.WebhookEvent) (bool, error)
	MarkStatus(ctx context.Context, eventKey string, status model.WebhookEventStatus, errMsg string) error
}
