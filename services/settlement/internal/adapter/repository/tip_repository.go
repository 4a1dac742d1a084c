package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	domainRepo "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

type tipRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTipRepository(db *gorm.DB, logger *zap.Logger) domainRepo.TipRepository {
	return &tipRepository{db: db, logger: logger}
}

func (r *tipRepository) Create(ctx context.Context, tip *model.Tip) error {
	if err := conn(ctx, r.db).Create(tip).Error; err != nil {
		return fmt.Errorf("failed to create tip: %w", translate(err))
	}
	return nil
}

func (r *tipRepository) Update(ctx context.Context, tip *model.Tip) error {
	result := conn(ctx, r.db).Model(tip).Select("*").Omit("id", "created_at").Updates(tip)
	if result.Error != nil {
		r.logger.Error("Failed to update tip",
			zap.String("tip_reference", tip.Reference),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update tip: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainRepo.ErrNotFound
	}
	return nil
}

func (r *tipRepository) GetByReference(ctx context.Context, reference string) (*model.Tip, error) {
	return r.find(conn(ctx, r.db), reference)
}

func (r *tipRepository) LockByReference(ctx context.Context, reference string) (*model.Tip, error) {
	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), reference)
}

func (r *tipRepository) find(db *gorm.DB, reference string) (*model.Tip, error) {
	var tip model.Tip
	err := db.
		Where("reference = ? OR processor_reference = ?", reference, reference).
		First(&tip).Error
	if err != nil {
		return nil, translate(err)
	}
	return &tip, nil
}
