// Package event defines the settlement event stream every state transition
// reports to. Sinks are injected; the domain never knows where events go.
package event

import (
	"context"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event types.
const (
	PaymentCreated    = "payment.created"
	PaymentApproved   = "payment.approved"
	PaymentProcessing = "payment.processing"
	PaymentCompleted  = "payment.completed"
	PaymentFailed     = "payment.failed"

	PaymentNeedsReconciliation = "payment.needs_reconciliation"

	TipCreated         = "tip.created"
	TipCheckoutStarted = "tip.checkout_started"
	TipCheckoutFailed  = "tip.checkout_failed"
	TipConfirmed       = "tip.confirmed"
	TipFailed          = "tip.failed"

	LedgerCredited = "ledger.credited"
	LedgerDebited  = "ledger.debited"
	LedgerDrift    = "ledger.drift_detected"

	WebhookFailed = "webhook.processing_failed"

	PayoutRequested           = "payout.requested"
	PayoutProcessing          = "payout.processing"
	PayoutCompleted           = "payout.completed"
	PayoutFailed              = "payout.failed"
	PayoutNeedsReconciliation = "payout.needs_reconciliation"
)

// Entity types.
const (
	EntityPayment = "payment_transaction"
	EntityTip     = "tip"
	EntityWallet  = "wallet"
	EntityPayout  = "payout"
	EntityWebhook = "webhook_event"
)

type Event struct {
	Type       string                 `json:"type"`
	Severity   Severity               `json:"severity"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	FarmerID   string                 `json:"farmer_id,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Sink receives settlement events. Implementations must not block for long;
// callers log failures and carry on.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) error { return nil }

// Nop returns a sink that drops every event.
func Nop() Sink { return nopSink{} }
