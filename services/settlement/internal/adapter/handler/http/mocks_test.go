package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/pkg/logger"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/middleware/auth"
)

type MockTipRepository struct{ mock.Mock }

func (m *MockTipRepository) Create(ctx context.Context, tip *model.Tip) error {
	return m.Called(ctx, tip).Error(0)
}

func (m *MockTipRepository) Update(ctx context.Context, tip *model.Tip) error {
	return m.Called(ctx, tip).Error(0)
}

func (m *MockTipRepository) GetByReference(ctx context.Context, reference string) (*model.Tip, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tip), args.Error(1)
}

func (m *MockTipRepository) LockByReference(ctx context.Context, reference string) (*model.Tip, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tip), args.Error(1)
}

type MockWalletRepository struct{ mock.Mock }

func (m *MockWalletRepository) FindByFarmer(ctx context.Context, farmerID uuid.UUID) (*model.Wallet, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Post(ctx context.Context, params model.EntryParams, defaultCurrency string) (*repository.EntryResult, error) {
	args := m.Called(ctx, params, defaultCurrency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.EntryResult), args.Error(1)
}

func (m *MockWalletRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*model.WalletTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletTransaction), args.Error(1)
}

func (m *MockWalletRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, filter repository.TransactionFilter) ([]model.WalletTransaction, int64, error) {
	args := m.Called(ctx, walletID, filter)
	return args.Get(0).([]model.WalletTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletRepository) SumEntries(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, int64, error) {
	args := m.Called(ctx, walletID)
	return args.Get(0).(decimal.Decimal), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletRepository) ListWallets(ctx context.Context, offset, limit int) ([]model.Wallet, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]model.Wallet), args.Error(1)
}

type nopWebhookEvents struct{}

func (nopWebhookEvents) Record(context.Context, *model.WebhookEvent) (bool, error) { return true, nil }
func (nopWebhookEvents) MarkStatus(context.Context, string, model.WebhookEventStatus, string) error {
	return nil
}

type inlineTransactor struct{}

func (inlineTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// stubCheckout returns a fixed parse outcome.
type stubCheckout struct {
	evt *provider.WebhookEvent
	err error
}

func (s *stubCheckout) Name() provider.ProviderType { return provider.ProviderTypeHosted }

func (s *stubCheckout) CreateCheckout(context.Context, *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	return nil, nil
}

func (s *stubCheckout) ParseWebhook([]byte, http.Header) (*provider.WebhookEvent, error) {
	return s.evt, s.err
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	logger.WithEchoLogger(e, zap.NewNop())
	return e
}

// serve runs h through e so that returned errors go through the error handler.
func serve(e *echo.Echo, method, path, body string, user *auth.AuthUser, register func(e *echo.Echo)) *httptest.ResponseRecorder {
	register(e)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
