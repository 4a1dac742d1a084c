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

type paymentTransactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPaymentTransactionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PaymentTransactionRepository {
	return &paymentTransactionRepository{db: db, logger: logger}
}

func (r *paymentTransactionRepository) Create(ctx context.Context, payment *model.PaymentTransaction) error {
	if err := conn(ctx, r.db).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment transaction: %w", translate(err))
	}
	return nil
}

func (r *paymentTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentTransaction, error) {
	var payment model.PaymentTransaction
	if err := conn(ctx, r.db).First(&payment, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

// UpdateIfStatus is a compare-and-set on the status column.
func (r *paymentTransactionRepository) UpdateIfStatus(ctx context.Context, payment *model.PaymentTransaction, expected model.PaymentStatus) (bool, error) {
	result := conn(ctx, r.db).
		Model(payment).
		Where("status = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(payment)
	if result.Error != nil {
		r.logger.Error("Failed to update payment transaction",
			zap.String("payment_id", payment.ID.String()),
			zap.String("expected_status", string(expected)),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to update payment transaction: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *paymentTransactionRepository) ListByFarmer(ctx context.Context, farmerID uuid.UUID, offset, limit int) ([]model.PaymentTransaction, int64, error) {
	query := conn(ctx, r.db).Model(&model.PaymentTransaction{}).Where("farmer_id = ?", farmerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payment transactions: %w", err)
	}

	var payments []model.PaymentTransaction
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list payment transactions: %w", err)
	}
	return payments, total, nil
}
