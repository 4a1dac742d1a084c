package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	domainRepo "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) domainRepo.AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create writes on its own connection. An audit row must never share, or hold
// open, the caller's business transaction.
func (r *auditLogRepository) Create(ctx context.Context, log *model.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
