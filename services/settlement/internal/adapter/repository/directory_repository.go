package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	domainRepo "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// Directory reads farmer, lot and quality records owned by other services.
type Directory struct {
	db *gorm.DB
}

// NewDirectoryRepository returns one value serving all three read-only directories.
func NewDirectoryRepository(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

var (
	_ domainRepo.FarmerDirectory  = (*Directory)(nil)
	_ domainRepo.LotDirectory     = (*Directory)(nil)
	_ domainRepo.QualityDirectory = (*Directory)(nil)
)

func (r *Directory) GetFarmer(ctx context.Context, id uuid.UUID) (*model.Farmer, error) {
	var farmer model.Farmer
	if err := conn(ctx, r.db).First(&farmer, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &farmer, nil
}

func (r *Directory) GetLot(ctx context.Context, id uuid.UUID) (*model.Lot, error) {
	var lot model.Lot
	if err := conn(ctx, r.db).First(&lot, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &lot, nil
}

func (r *Directory) RecentAssessments(ctx context.Context, lotID uuid.UUID, limit int) ([]model.QualityAssessment, error) {
	var assessments []model.QualityAssessment
	err := conn(ctx, r.db).
		Where("lot_id = ?", lotID).
		Order("assessed_at DESC").
		Limit(limit).
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}
