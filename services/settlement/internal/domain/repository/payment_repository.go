package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
)

type PaymentTransactionRepository interface {
	Create(ctx context.Context, payment *model.PaymentTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentTransaction, error)

	// UpdateIfStatus saves payment only while its stored status equals expected.
	// It reports false when another writer moved the row first.
	UpdateIfStatus(ctx context.Context, payment *model.PaymentTransaction, expected model.PaymentStatus) (bool, error)

	ListByFarmer(ctx context.Context, farmerID uuid.UUID, offset, limit int) ([]model.PaymentTransaction, int64, error)
}
