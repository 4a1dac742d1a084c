// Package hosted talks to a generic hosted-checkout processor: JSON over
// HTTPS for checkout creation and HMAC-signed webhooks.
package hosted

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
)

const (
	SignatureHeader = "Signature"
	TimestampHeader = "Timestamp"
)

type Config struct {
	BaseURL       string
	APIKey        string
	APISecret     string
	WebhookSecret string
	// Tolerance bounds the age of a webhook timestamp. Zero disables the check.
	Tolerance time.Duration
	Timeout   time.Duration
}

type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewProvider(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

func (p *Provider) Name() provider.ProviderType {
	return provider.ProviderTypeHosted
}

type checkoutBody struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	Description string            `json:"description,omitempty"`
	Customer    provider.Customer `json:"customer"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ReturnURL   string            `json:"return_url"`
	CancelURL   string            `json:"cancel_url"`
	WebhookURL  string            `json:"webhook_url,omitempty"`
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	ID          string `json:"id"`
	Reference   string `json:"reference"`
}

// CreateCheckout asks the processor for a hosted payment page.
// POST {base}/checkouts
func (p *Provider) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	jsonBody, err := json.Marshal(checkoutBody{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Reference:   req.Reference,
		Description: req.Description,
		Customer:    req.Customer,
		Metadata:    req.Metadata,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
		WebhookURL:  req.WebhookURL,
	})
	if err != nil {
		return nil, &provider.ProviderError{Code: "MARSHAL_ERROR", Message: "Failed to prepare request", Details: err.Error()}
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/checkouts"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &provider.ProviderError{Code: "REQUEST_ERROR", Message: "Failed to create request", Details: err.Error()}
	}
	auth := base64.StdEncoding.EncodeToString([]byte(p.cfg.APIKey + ":" + p.cfg.APISecret))
	httpReq.Header.Set("Authorization", "Basic "+auth)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.Reference)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Error("hosted checkout request failed",
			zap.String("tip_reference", req.Reference),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", provider.ErrOutcomeUnknown, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.ProviderError{Code: "RESPONSE_ERROR", Message: "Failed to read response", Details: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("hosted checkout rejected",
			zap.String("tip_reference", req.Reference),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)))
		return nil, errorFromBody(resp.StatusCode, respBody)
	}

	var out checkoutResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &provider.ProviderError{Code: "PARSE_ERROR", Message: "Failed to parse response", Details: err.Error()}
	}
	if out.CheckoutURL == "" {
		return nil, &provider.ProviderError{Code: "PARSE_ERROR", Message: "Response has no checkout_url"}
	}
	if out.Reference == "" {
		out.Reference = req.Reference
	}

	return &provider.CheckoutSession{ID: out.ID, URL: out.CheckoutURL, Reference: out.Reference}, nil
}

func errorFromBody(status int, body []byte) *provider.ProviderError {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &errResp)

	pe := &provider.ProviderError{Code: errResp.Code, Message: errResp.Message, Details: string(body)}
	if pe.Code == "" {
		pe.Code = "HTTP_" + strconv.Itoa(status)
	}
	if pe.Message == "" {
		pe.Message = errResp.Error
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(status)
	}
	return pe
}

type webhookBody struct {
	ID            string                 `json:"id"`
	Event         string                 `json:"event"`
	Reference     string                 `json:"reference"`
	Amount        json.Number            `json:"amount"`
	Currency      string                 `json:"currency"`
	Status        string                 `json:"status"`
	PaymentMethod string                 `json:"payment_method"`
	Timestamp     string                 `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// ParseWebhook verifies the HMAC-SHA256 signature over timestamp + "." + body
// before decoding anything.
func (p *Provider) ParseWebhook(payload []byte, headers http.Header) (*provider.WebhookEvent, error) {
	if p.cfg.WebhookSecret == "" {
		return nil, domainErrors.ErrWebhookSecretMissing
	}

	signature := strings.TrimSpace(headers.Get(SignatureHeader))
	timestamp := strings.TrimSpace(headers.Get(TimestampHeader))
	if signature == "" {
		return nil, domainErrors.ErrInvalidSignature
	}
	if !p.validSignature(signature, timestamp, payload) {
		return nil, domainErrors.ErrInvalidSignature
	}
	if p.cfg.Tolerance > 0 && !p.fresh(timestamp) {
		return nil, domainErrors.ErrInvalidSignature
	}

	var body webhookBody
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err)
	}
	if body.Event == "" || body.Reference == "" {
		return nil, fmt.Errorf("%w: event and reference are required", domainErrors.ErrMalformedPayload)
	}

	var amount int64
	if body.Amount != "" {
		v, err := body.Amount.Int64()
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: amount must be a non-negative integer in minor units", domainErrors.ErrMalformedPayload)
		}
		amount = v
	}

	ts := body.Timestamp
	if ts == "" {
		ts = timestamp
	}

	return &provider.WebhookEvent{
		ID:            body.ID,
		Event:         strings.ToLower(body.Event),
		Reference:     body.Reference,
		Amount:        amount,
		Currency:      strings.ToUpper(body.Currency),
		Status:        body.Status,
		PaymentMethod: body.PaymentMethod,
		Timestamp:     ts,
		Metadata:      model.MetadataStrings(body.Metadata),
		Provider:      provider.ProviderTypeHosted,
		Raw:           payload,
	}, nil
}

// Sign returns the hex signature the processor is expected to send.
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (p *Provider) validSignature(signature, timestamp string, payload []byte) bool {
	signature = strings.TrimPrefix(signature, "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(p.cfg.WebhookSecret, timestamp, payload))
	return hmac.Equal(got, want)
}

// fresh accepts unix seconds or RFC 3339 timestamps.
func (p *Provider) fresh(timestamp string) bool {
	var at time.Time
	if secs, err := strconv.ParseInt(timestamp, 10, 64); err == nil {
		at = time.Unix(secs, 0)
	} else if parsed, err := time.Parse(time.RFC3339, timestamp); err == nil {
		at = parsed
	} else {
		return false
	}
	age := p.now().Sub(at)
	if age < 0 {
		age = -age
	}
	return age <= p.cfg.Tolerance
}
