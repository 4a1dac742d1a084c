package usecase

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/qraft-Inc/coffeetrace-sub002/pkg/errors"
	domainErrors "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

func invalidArgument(format string, args ...interface{}) error {
	return apperrors.NewAppError(apperrors.ErrInvalidArgument, fmt.Sprintf(format, args...), nil)
}

func notFound(entity, id string) error {
	return apperrors.NewAppError(apperrors.ErrNotFound, fmt.Sprintf("%s %s not found", entity, id), repository.ErrNotFound)
}

func conflict(entity, id, current, action string) error {
	e := domainErrors.NewStateConflictError(entity, id, current, action)
	return apperrors.NewAppError(apperrors.ErrConflict, e.Error(), e)
}

// lookupError converts a repository read error into not-found or internal.
func lookupError(err error, entity, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(entity, id)
	}
	return apperrors.NewAppError(apperrors.ErrInternal, fmt.Sprintf("failed to load %s", entity), err)
}

func internal(msg string, err error) error {
	return apperrors.NewAppError(apperrors.ErrInternal, msg, err)
}

// ledgerError maps ledger domain failures onto stable codes.
func ledgerError(err error) error {
	var insufficient *domainErrors.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		return apperrors.NewAppError(apperrors.ErrInsufficientBalance, insufficient.Error(), err)
	case errors.Is(err, domainErrors.ErrNonPositiveAmount),
		errors.Is(err, domainErrors.ErrCurrencyMismatch),
		errors.Is(err, domainErrors.ErrInvalidEntryType):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, err.Error(), err)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewAppError(apperrors.ErrConflict, "ledger entry reference already used", err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return internal("ledger write failed", err)
}

// externalError classifies an outbound processor failure. Timeouts and
// transport failures become TIMEOUT since the outcome is unknown.
func externalError(msg string, err error) error {
	if errors.Is(err, provider.ErrOutcomeUnknown) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewAppError(apperrors.ErrTimeout, msg+": outcome unknown", err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return apperrors.NewAppError(appErr.Code(), msg, err)
	}
	return apperrors.NewAppError(apperrors.ErrExternalDependency, msg, err)
}
