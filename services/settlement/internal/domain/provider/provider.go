package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

// ProviderType names a checkout processor implementation.
type ProviderType string

const (
	ProviderTypeHosted ProviderType = "hosted"
	ProviderTypeStripe ProviderType = "stripe"
)

// Normalized webhook event names.
const (
	EventPaymentSuccess   = "payment.success"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCancelled = "payment.cancelled"
)

// Customer is the buyer as passed to the processor.
type Customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// CheckoutRequest asks a processor for a hosted checkout page.
type CheckoutRequest struct {
	Reference   string            `json:"reference"`
	Amount      int64             `json:"amount"` // minor units
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	Customer    Customer          `json:"customer"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ReturnURL   string            `json:"return_url"`
	CancelURL   string            `json:"cancel_url"`
	WebhookURL  string            `json:"webhook_url,omitempty"`
}

// CheckoutSession is the processor's answer to CreateCheckout.
type CheckoutSession struct {
	ID        string
	URL       string
	Reference string
}

// WebhookEvent is an authenticated processor event in normalized shape.
type WebhookEvent struct {
	ID            string
	Event         string
	Reference     string
	Amount        int64 // minor units, 0 when not supplied
	Currency      string
	Status        string
	PaymentMethod string
	Timestamp     string
	Metadata      map[string]string
	Provider      ProviderType
	Raw           []byte
}

// Key identifies an event delivery for the inbound log. Processor ids win;
// otherwise the body hash is used so identical redeliveries collapse.
func (e *WebhookEvent) Key() string {
	if e.ID != "" {
		return string(e.Provider) + ":" + e.ID
	}
	sum := sha256.Sum256(e.Raw)
	return string(e.Provider) + ":" + hex.EncodeToString(sum[:])
}

// CheckoutProvider creates hosted checkouts and authenticates their webhooks.
type CheckoutProvider interface {
	Name() ProviderType
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)

	// ParseWebhook verifies authenticity before decoding. It returns
	// domain errors ErrInvalidSignature / ErrWebhookSecretMissing for
	// authenticity failures and ErrMalformedPayload for bad bodies.
	ParseWebhook(payload []byte, headers http.Header) (*WebhookEvent, error)
}

// RailStatus is a payout rail's view of a transfer.
type RailStatus string

const (
	RailStatusProcessing RailStatus = "processing"
	RailStatusCompleted  RailStatus = "completed"
	RailStatusFailed     RailStatus = "failed"
	RailStatusNotFound   RailStatus = "not_found"
)

// PayoutRequest is sent to the payout rail.
type PayoutRequest struct {
	FarmerID          string          `json:"farmerId"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	DestinationMSISDN string          `json:"destination_msisdn"`
	Reference         string          `json:"reference"`
	Description       string          `json:"description,omitempty"`
}

// PayoutResult is the rail's definite answer.
type PayoutResult struct {
	Success      bool
	Status       RailStatus
	PSPReference string
	Error        string
}

// Accepted reports whether the rail took the transfer (in flight or done).
func (r *PayoutResult) Accepted() bool {
	return r.Success && (r.Status == RailStatusProcessing || r.Status == RailStatusCompleted)
}

// ErrOutcomeUnknown wraps timeouts and transport failures after a payout was
// dispatched. The transfer may or may not have happened.
var ErrOutcomeUnknown = errors.New("payout outcome unknown")

// PayoutRail moves money to an external account.
type PayoutRail interface {
	Name() string
	// SendPayout returns a result for definite answers (including rejections)
	// and an error wrapping ErrOutcomeUnknown when the outcome is not known.
	SendPayout(ctx context.Context, req *PayoutRequest) (*PayoutResult, error)
	// PayoutStatus looks up a transfer by our reference.
	PayoutStatus(ctx context.Context, reference string) (*PayoutResult, error)
}

// ProviderError is a definite error reported by an external processor.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
