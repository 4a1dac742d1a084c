package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidSignature means a webhook failed authenticity verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrWebhookSecretMissing means no shared secret is configured, so nothing can be verified.
	ErrWebhookSecretMissing = errors.New("webhook secret not configured")
	// ErrMalformedPayload means an authenticated webhook body could not be parsed.
	ErrMalformedPayload = errors.New("malformed webhook payload")
	// ErrCurrencyMismatch is returned when an entry's currency differs from the wallet's.
	ErrCurrencyMismatch = errors.New("currency does not match wallet currency")
	// ErrNonPositiveAmount is returned for zero or negative ledger amounts.
	ErrNonPositiveAmount = errors.New("amount must be positive")
	// ErrInvalidEntryType is returned for ledger entries that are neither deposit nor withdrawal.
	ErrInvalidEntryType = errors.New("invalid ledger entry type")
	// ErrAmountMismatch means a processor confirmed a different amount or currency than the tip was created for.
	ErrAmountMismatch = errors.New("confirmed amount does not match tip")
)

// InsufficientBalanceError is returned when a debit exceeds the wallet balance
type InsufficientBalanceError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: requested %s, available %s", e.Requested.StringFixed(2), e.Available.StringFixed(2))
}

func NewInsufficientBalanceError(requested, available decimal.Decimal) *InsufficientBalanceError {
	return &InsufficientBalanceError{
		Requested: requested,
		Available: available,
	}
}

// StateConflictError is returned when an operation is attempted from an illegal state.
type StateConflictError struct {
	Entity  string
	ID      string
	Current string
	Action  string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s %s %s: status is %s", e.Action, e.Entity, e.ID, e.Current)
}

func NewStateConflictError(entity, id, current, action string) *StateConflictError {
	return &StateConflictError{Entity: entity, ID: id, Current: current, Action: action}
}
