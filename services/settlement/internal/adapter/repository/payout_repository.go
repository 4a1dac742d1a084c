package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	domainRepo "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

type payoutRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPayoutRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PayoutRepository {
	return &payoutRepository{db: db, logger: logger}
}

func (r *payoutRepository) Create(ctx context.Context, payout *model.Payout) error {
	if err := conn(ctx, r.db).Create(payout).Error; err != nil {
		return fmt.Errorf("failed to create payout: %w", translate(err))
	}
	return nil
}

func (r *payoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payout, error) {
	var payout model.Payout
	if err := conn(ctx, r.db).First(&payout, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &payout, nil
}

func (r *payoutRepository) UpdateIfStatus(ctx context.Context, payout *model.Payout, expected model.PayoutStatus) (bool, error) {
	result := conn(ctx, r.db).
		Model(payout).
		Where("status = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(payout)
	if result.Error != nil {
		r.logger.Error("Failed to update payout",
			zap.String("payout_id", payout.ID.String()),
			zap.String("expected_status", string(expected)),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to update payout: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *payoutRepository) ListByFarmer(ctx context.Context, farmerID uuid.UUID, offset, limit int) ([]model.Payout, int64, error) {
	query := conn(ctx, r.db).Model(&model.Payout{}).Where("farmer_id = ?", farmerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payouts: %w", err)
	}

	var payouts []model.Payout
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payouts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list payouts: %w", err)
	}
	return payouts, total, nil
}

func (r *payoutRepository) ListUnsettled(ctx context.Context, limit int) ([]model.Payout, error) {
	var payouts []model.Payout
	err := conn(ctx, r.db).
		Where("status = ? OR needs_reconciliation = ?", model.PayoutStatusProcessing, true).
		Order("updated_at ASC").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled payouts: %w", err)
	}
	return payouts, nil
}
