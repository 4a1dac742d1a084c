// Package stripe implements hosted tip checkout on Stripe Checkout.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	domainErrors "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
)

const SignatureHeader = "Stripe-Signature"

type Provider struct {
	sessions      *checkoutsession.Client
	webhookSecret string
	tolerance     time.Duration
	logger        *zap.Logger
}

// NewProvider uses the default Stripe API backend.
func NewProvider(secretKey, webhookSecret string, logger *zap.Logger) *Provider {
	return NewProviderWithBackend(stripe.GetBackend(stripe.APIBackend), secretKey, webhookSecret, logger)
}

func NewProviderWithBackend(backend stripe.Backend, secretKey, webhookSecret string, logger *zap.Logger) *Provider {
	return &Provider{
		sessions:      &checkoutsession.Client{B: backend, Key: secretKey},
		webhookSecret: webhookSecret,
		tolerance:     webhook.DefaultTolerance,
		logger:        logger,
	}
}

func (p *Provider) Name() provider.ProviderType {
	return provider.ProviderTypeStripe
}

func (p *Provider) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	name := req.Description
	if name == "" {
		name = "Tip " + req.Reference
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(req.Reference),
		SuccessURL:        stripe.String(req.ReturnURL),
		CancelURL:         stripe.String(req.CancelURL),
	}
	if req.Customer.Email != "" {
		params.CustomerEmail = stripe.String(req.Customer.Email)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddMetadata("reference", req.Reference)
	params.SetIdempotencyKey(req.Reference)
	params.Context = ctx

	s, err := p.sessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode > 0 && stripeErr.HTTPStatusCode < 500 {
			p.logger.Warn("stripe checkout rejected",
				zap.String("tip_reference", req.Reference),
				zap.String("stripe_code", string(stripeErr.Code)),
				zap.String("message", stripeErr.Msg))
			return nil, &provider.ProviderError{
				Code:    string(stripeErr.Code),
				Message: stripeErr.Msg,
				Details: string(stripeErr.Type),
			}
		}
		p.logger.Error("stripe checkout request failed",
			zap.String("tip_reference", req.Reference),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", provider.ErrOutcomeUnknown, err)
	}

	return &provider.CheckoutSession{ID: s.ID, URL: s.URL, Reference: req.Reference}, nil
}

// ParseWebhook verifies the Stripe-Signature header and maps checkout
// session events onto the normalized event names.
func (p *Provider) ParseWebhook(payload []byte, headers http.Header) (*provider.WebhookEvent, error) {
	if p.webhookSecret == "" {
		return nil, domainErrors.ErrWebhookSecretMissing
	}

	evt, err := webhook.ConstructEventWithOptions(payload, headers.Get(SignatureHeader), p.webhookSecret,
		webhook.ConstructEventOptions{
			Tolerance:                p.tolerance,
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		if isSignatureError(err) {
			return nil, domainErrors.ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err)
	}

	out := &provider.WebhookEvent{
		ID:        evt.ID,
		Event:     string(evt.Type),
		Timestamp: time.Unix(evt.Created, 0).UTC().Format(time.RFC3339),
		Provider:  provider.ProviderTypeStripe,
		Raw:       payload,
	}

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
	default:
		return out, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err)
	}

	out.Reference = session.ClientReferenceID
	if out.Reference == "" {
		out.Reference = session.Metadata["reference"]
	}
	if out.Reference == "" {
		return nil, fmt.Errorf("%w: checkout session %s has no client_reference_id", domainErrors.ErrMalformedPayload, session.ID)
	}
	out.Amount = session.AmountTotal
	out.Currency = strings.ToUpper(string(session.Currency))
	out.Status = string(session.PaymentStatus)
	out.Metadata = session.Metadata
	if len(session.PaymentMethodTypes) > 0 {
		out.PaymentMethod = session.PaymentMethodTypes[0]
	}

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		// Delayed methods complete the session before the money arrives.
		if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			out.Event = "checkout.session.awaiting_payment"
		} else {
			out.Event = provider.EventPaymentSuccess
		}
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		out.Event = provider.EventPaymentSuccess
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		out.Event = provider.EventPaymentFailed
	case stripe.EventTypeCheckoutSessionExpired:
		out.Event = provider.EventPaymentCancelled
	}
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld)
}
