package repository

import (
	"context"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
)

type AuditLogRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
}
