package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
)

// Read-only access to records owned by other services.

type FarmerDirectory interface {
	GetFarmer(ctx context.Context, id uuid.UUID) (*model.Farmer, error)
}

type LotDirectory interface {
	GetLot(ctx context.Context, id uuid.UUID) (*model.Lot, error)
}

type QualityDirectory interface {
	// RecentAssessments returns up to limit assessments for the lot, newest first.
	RecentAssessments(ctx context.Context, lotID uuid.UUID, limit int) ([]model.QualityAssessment, error)
}
