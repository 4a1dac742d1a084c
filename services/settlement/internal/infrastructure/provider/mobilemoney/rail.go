// Package mobilemoney sends farmer payouts to a mobile-money disbursement API.
package mobilemoney

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
)

type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

type Rail struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

func NewRail(cfg Config, logger *zap.Logger) *Rail {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Rail{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (r *Rail) Name() string {
	return "mobile_money"
}

type railResponse struct {
	Success      bool   `json:"success"`
	Status       string `json:"status"`
	PSPReference string `json:"psp_reference"`
	Error        string `json:"error"`
}

// SendPayout dispatches a transfer.
// POST {base}/payouts
//
// 4xx answers are definite rejections. Transport errors, timeouts and 5xx
// answers leave the outcome unknown.
func (r *Rail) SendPayout(ctx context.Context, req *provider.PayoutRequest) (*provider.PayoutResult, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, &provider.ProviderError{Code: "MARSHAL_ERROR", Message: "Failed to prepare request", Details: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint("payouts"), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &provider.ProviderError{Code: "REQUEST_ERROR", Message: "Failed to create request", Details: err.Error()}
	}
	r.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.Reference)

	status, body, err := r.do(httpReq)
	if err != nil {
		r.logger.Error("payout dispatch outcome unknown",
			zap.String("payout_reference", req.Reference),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return nil, err
	}

	if status >= 400 {
		result := &provider.PayoutResult{Success: false, Status: provider.RailStatusFailed, Error: rejection(status, body)}
		r.logger.Warn("payout rejected by rail",
			zap.String("payout_reference", req.Reference),
			zap.Int("status_code", status),
			zap.String("error", result.Error))
		return result, nil
	}

	var resp railResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unreadable rail response: %v", provider.ErrOutcomeUnknown, err)
	}

	result := &provider.PayoutResult{
		Success:      resp.Success,
		Status:       normalizeStatus(resp.Status, resp.Success),
		PSPReference: resp.PSPReference,
		Error:        resp.Error,
	}
	if !result.Success && result.Error == "" {
		result.Error = "payout rejected"
	}

	r.logger.Info("payout dispatched",
		zap.String("payout_reference", req.Reference),
		zap.String("psp_reference", result.PSPReference),
		zap.String("status", string(result.Status)))
	return result, nil
}

// PayoutStatus looks up a transfer by our reference.
// GET {base}/payouts/{reference}
func (r *Rail) PayoutStatus(ctx context.Context, reference string) (*provider.PayoutResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint("payouts", reference), nil)
	if err != nil {
		return nil, &provider.ProviderError{Code: "REQUEST_ERROR", Message: "Failed to create request", Details: err.Error()}
	}
	r.authorize(httpReq)

	status, body, err := r.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &provider.PayoutResult{Status: provider.RailStatusNotFound}, nil
	}
	if status >= 400 {
		return nil, &provider.ProviderError{Code: "HTTP_" + strconv.Itoa(status), Message: rejection(status, body)}
	}

	var resp railResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ProviderError{Code: "PARSE_ERROR", Message: "Failed to parse response", Details: err.Error()}
	}
	st := normalizeStatus(resp.Status, resp.Success)
	return &provider.PayoutResult{
		Success:      st == provider.RailStatusCompleted || st == provider.RailStatusProcessing,
		Status:       st,
		PSPReference: resp.PSPReference,
		Error:        resp.Error,
	}, nil
}

func (r *Rail) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.TrimRight(r.cfg.BaseURL, "/") + "/" + strings.Join(escaped, "/")
}

func (r *Rail) authorize(req *http.Request) {
	auth := base64.StdEncoding.EncodeToString([]byte(r.cfg.APIKey + ":" + r.cfg.APISecret))
	req.Header.Set("Authorization", "Basic "+auth)
}

// do returns an error wrapping ErrOutcomeUnknown for transport failures and 5xx.
func (r *Rail) do(req *http.Request) (int, []byte, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, fmt.Errorf("%w: %w", provider.ErrOutcomeUnknown, err)
		}
		return 0, nil, fmt.Errorf("%w: %v", provider.ErrOutcomeUnknown, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %v", provider.ErrOutcomeUnknown, err)
	}
	if resp.StatusCode >= 500 {
		return 0, nil, fmt.Errorf("%w: rail answered %d", provider.ErrOutcomeUnknown, resp.StatusCode)
	}
	return resp.StatusCode, body, nil
}

func normalizeStatus(status string, success bool) provider.RailStatus {
	switch strings.ToLower(status) {
	case "completed", "successful", "success", "succeeded":
		return provider.RailStatusCompleted
	case "failed", "rejected", "cancelled", "reversed":
		return provider.RailStatusFailed
	case "pending", "processing", "queued", "accepted":
		return provider.RailStatusProcessing
	case "not_found":
		return provider.RailStatusNotFound
	}
	if success {
		return provider.RailStatusProcessing
	}
	return provider.RailStatusFailed
}

func rejection(status int, body []byte) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &errResp)
	switch {
	case errResp.Error != "":
		return errResp.Error
	case errResp.Message != "":
		return errResp.Message
	}
	return fmt.Sprintf("rail answered %d", status)
}
