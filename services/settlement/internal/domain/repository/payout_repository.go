package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
)

type PayoutRepository interface {
	Create(ctx context.Context, payout *model.Payout) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payout, error)

	// UpdateIfStatus saves payout only while its stored status equals expected.
	UpdateIfStatus(ctx context.Context, payout *model.Payout, expected model.PayoutStatus) (bool, error)

	ListByFarmer(ctx context.Context, farmerID uuid.UUID, offset, limit int) ([]model.Payout, int64, error)

	// ListUnsettled returns processing payouts and payouts flagged for reconciliation.
	ListUnsettled(ctx context.Context, limit int) ([]model.Payout, error)
}
