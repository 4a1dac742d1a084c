package repository

import (
	"context"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
)

type TipRepository interface {
	Create(ctx context.Context, tip *model.Tip) error
	Update(ctx context.Context, tip *model.Tip) error

	// GetByReference matches our reference or the processor's reference.
	GetByReference(ctx context.Context, reference string) (*model.Tip, error)

	// LockByReference is GetByReference with SELECT ... FOR UPDATE. It must be
	// called inside Transactor.WithinTransaction.
	LockByReference(ctx context.Context, reference string) (*model.Tip, error)
}
