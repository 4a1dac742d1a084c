package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/qraft-Inc/coffeetrace-sub002/pkg/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/dto"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/usecase"
)

type payoutFixture struct {
	svc     *usecase.PayoutService
	payouts *memPayouts
	wallets *memWallets
	rail    *MockPayoutRail
	sink    *recordingSink
	farmer  *model.Farmer
}

func newPayoutFixture(t *testing.T, balance string) *payoutFixture {
	t.Helper()
	dir := newDirectory()
	f := &payoutFixture{
		payouts: newMemPayouts(),
		wallets: newMemWallets(),
		rail:    new(MockPayoutRail),
		sink:    &recordingSink{},
		farmer:  dir.addFarmer("+256700000001"),
	}
	if balance != "0" {
		f.wallets.seed(f.farmer.ID, dec(balance), "UGX")
	}
	ledger := usecase.NewLedgerService(f.wallets, f.sink, zap.NewNop(), "UGX")
	f.svc = usecase.NewPayoutService(f.payouts, dir, ledger, f.rail, reverseCipher{},
		usecase.PayoutServiceConfig{MinPayout: dec("5000"), DefaultCurrency: "UGX", RailTimeout: time.Second},
		f.sink, zap.NewNop())
	return f
}

func (f *payoutFixture) request(amount string) dto.PayoutRequest {
	return dto.PayoutRequest{FarmerID: f.farmer.ID, Amount: dec(amount)}
}

func TestPayoutService_Request(t *testing.T) {
	ctx := context.Background()

	t.Run("stores an encrypted pending payout", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		p, err := f.svc.Request(ctx, f.request("20000"))
		require.NoError(t, err)

		assert.Equal(t, model.PayoutStatusPending, p.Status)
		assert.True(t, hasPrefix(p.Reference, "PO-"))
		assert.Equal(t, "****0001", p.DestinationMasked)
		assert.NotEqual(t, "+256700000001", p.DestinationCipher)
		assert.Equal(t, model.DestinationMobileMoney, p.DestinationType)
		assert.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("50000")))
		assert.Len(t, f.sink.ofType(event.PayoutRequested), 1)
	})

	tests := []struct {
		name    string
		balance string
		req     func(f *payoutFixture) dto.PayoutRequest
		code    string
	}{
		{"below minimum", "50000", func(f *payoutFixture) dto.PayoutRequest { return f.request("4999") }, apperrors.ErrInvalidArgument},
		{"above balance", "50000", func(f *payoutFixture) dto.PayoutRequest { return f.request("50001") }, apperrors.ErrInsufficientBalance},
		{"no wallet", "0", func(f *payoutFixture) dto.PayoutRequest { return f.request("5000") }, apperrors.ErrInsufficientBalance},
		{"wrong currency", "50000", func(f *payoutFixture) dto.PayoutRequest {
			r := f.request("6000")
			r.Currency = "USD"
			return r
		}, apperrors.ErrInvalidArgument},
		{"unknown farmer", "50000", func(f *payoutFixture) dto.PayoutRequest {
			r := f.request("6000")
			r.FarmerID = uuid.New()
			return r
		}, apperrors.ErrNotFound},
		{"bank account without number", "50000", func(f *payoutFixture) dto.PayoutRequest {
			r := f.request("6000")
			r.DestinationType = string(model.DestinationBankAccount)
			return r
		}, apperrors.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPayoutFixture(t, tt.balance)
			_, err := f.svc.Request(ctx, tt.req(f))
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.Code(err))
			assert.Empty(t, f.payouts.payouts)
		})
	}
}

func TestPayoutService_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("rail success then debit", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		f.rail.On("SendPayout", mock.Anything, mock.MatchedBy(func(r *provider.PayoutRequest) bool {
			return r.DestinationMSISDN == "+256700000001" && r.Amount.Equal(dec("20000"))
		})).Return(&provider.PayoutResult{Success: true, Status: provider.RailStatusCompleted, PSPReference: "PSP-9"}, nil)

		p, err := f.svc.RequestAndExecute(ctx, f.request("20000"))
		require.NoError(t, err)
		assert.Equal(t, model.PayoutStatusCompleted, p.Status)
		assert.Equal(t, "PSP-9", p.ProcessorReference)
		assert.True(t, p.Debited)
		assert.NotNil(t, p.ExecutedAt)
		assert.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("30000")))

		entry, err := f.wallets.GetTransaction(ctx, *p.WalletTransactionID)
		require.NoError(t, err)
		assert.Equal(t, "payout:"+p.ID.String(), entry.Reference)
		assert.Len(t, f.sink.ofType(event.PayoutCompleted), 1)
		f.rail.AssertExpectations(t)
	})

	t.Run("caller cancellation after dispatch still records the debit", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		p, err := f.svc.Request(ctx, f.request("20000"))
		require.NoError(t, err)

		reqCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		f.rail.On("SendPayout", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(&provider.PayoutResult{Success: true, Status: provider.RailStatusCompleted, PSPReference: "PSP-11"}, nil)

		executed, err := f.svc.Execute(reqCtx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PayoutStatusCompleted, executed.Status)

		stored, _ := f.payouts.GetByID(ctx, p.ID)
		assert.Equal(t, model.PayoutStatusCompleted, stored.Status)
		assert.True(t, stored.Debited)
		assert.False(t, stored.NeedsReconciliation)
		assert.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("30000")))
	})

	t.Run("rail still processing keeps the payout open", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		f.rail.On("SendPayout", mock.Anything, mock.Anything).
			Return(&provider.PayoutResult{Success: true, Status: provider.RailStatusProcessing, PSPReference: "PSP-10"}, nil)

		p, err := f.svc.RequestAndExecute(ctx, f.request("20000"))
		require.NoError(t, err)
		assert.Equal(t, model.PayoutStatusProcessing, p.Status)
		assert.True(t, p.Debited)
		assert.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("30000")))
	})

	t.Run("rejection leaves the ledger untouched", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		f.rail.On("SendPayout", mock.Anything, mock.Anything).
			Return(&provider.PayoutResult{Success: false, Status: provider.RailStatusFailed, Error: "invalid msisdn"}, nil)

		p, err := f.svc.RequestAndExecute(ctx, f.request("20000"))
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrExternalDependency))

		stored, _ := f.payouts.GetByID(ctx, p.ID)
		assert.Equal(t, model.PayoutStatusFailed, stored.Status)
		assert.Equal(t, "invalid msisdn", stored.FailureReason)
		assert.False(t, stored.Debited)
		assert.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("50000")))
		assert.Equal(t, 1, f.wallets.entryCount())
	})

	t.Run("timeout flags reconciliation", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		f.rail.On("SendPayout", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: %v", provider.ErrOutcomeUnknown, context.DeadlineExceeded))

		p, err := f.svc.RequestAndExecute(ctx, f.request("20000"))
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrTimeout))

		stored, _ := f.payouts.GetByID(ctx, p.ID)
		assert.Equal(t, model.PayoutStatusProcessing, stored.Status)
		assert.True(t, stored.NeedsReconciliation)
		assert.False(t, stored.Debited)
		assert.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("50000")))

		alerts := f.sink.ofType(event.PayoutNeedsReconciliation)
		require.Len(t, alerts, 1)
		assert.Equal(t, event.SeverityCritical, alerts[0].Severity)
	})

	t.Run("balance spent between request and execute", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		p, err := f.svc.Request(ctx, f.request("40000"))
		require.NoError(t, err)
		ledger := usecase.NewLedgerService(f.wallets, nil, zap.NewNop(), "UGX")
		_, err = ledger.Debit(ctx, usecase.LedgerInput{FarmerID: f.farmer.ID, Amount: dec("20000")})
		require.NoError(t, err)

		_, err = f.svc.Execute(ctx, p.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInsufficientBalance))
		stored, _ := f.payouts.GetByID(ctx, p.ID)
		assert.Equal(t, model.PayoutStatusFailed, stored.Status)
		f.rail.AssertNotCalled(t, "SendPayout", mock.Anything, mock.Anything)
	})

	t.Run("debit failure after rail success flags reconciliation", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		f.rail.On("SendPayout", mock.Anything, mock.Anything).
			Return(&provider.PayoutResult{Success: true, Status: provider.RailStatusCompleted, PSPReference: "PSP-11"}, nil)
		p, err := f.svc.Request(ctx, f.request("20000"))
		require.NoError(t, err)
		f.wallets.postErr = fmt.Errorf("deadlock detected")

		_, err = f.svc.Execute(ctx, p.ID)
		require.Error(t, err)

		stored, _ := f.payouts.GetByID(ctx, p.ID)
		assert.Equal(t, model.PayoutStatusProcessing, stored.Status)
		assert.True(t, stored.NeedsReconciliation)
		assert.False(t, stored.Debited)
		assert.Equal(t, "PSP-11", stored.ProcessorReference)
		assert.Len(t, f.sink.ofType(event.PayoutNeedsReconciliation), 1)
	})

	t.Run("second execute conflicts", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		f.rail.On("SendPayout", mock.Anything, mock.Anything).
			Return(&provider.PayoutResult{Success: true, Status: provider.RailStatusCompleted}, nil).Once()

		p, err := f.svc.RequestAndExecute(ctx, f.request("20000"))
		require.NoError(t, err)
		_, err = f.svc.Execute(ctx, p.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))
		assert.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("30000")))
	})
}

func TestPayoutService_Reconcile(t *testing.T) {
	ctx := context.Background()

	timedOut := func(t *testing.T, f *payoutFixture) *model.Payout {
		t.Helper()
		f.rail.On("SendPayout", mock.Anything, mock.Anything).
			Return(nil, provider.ErrOutcomeUnknown).Once()
		p, err := f.svc.RequestAndExecute(ctx, f.request("20000"))
		require.Error(t, err)
		return p
	}

	t.Run("completed at rail debits once", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		p := timedOut(t, f)
		f.rail.On("PayoutStatus", mock.Anything, p.Reference).
			Return(&provider.PayoutResult{Success: true, Status: provider.RailStatusCompleted, PSPReference: "PSP-20"}, nil)

		done, err := f.svc.Reconcile(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PayoutStatusCompleted, done.Status)
		assert.False(t, done.NeedsReconciliation)
		assert.Equal(t, "PSP-20", done.ProcessorReference)
		assert.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("30000")))

		again, err := f.svc.Reconcile(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PayoutStatusCompleted, again.Status)
		assert.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("30000")))
	})

	t.Run("failed at rail after debit refunds", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		f.rail.On("SendPayout", mock.Anything, mock.Anything).
			Return(&provider.PayoutResult{Success: true, Status: provider.RailStatusProcessing}, nil).Once()
		p, err := f.svc.RequestAndExecute(ctx, f.request("20000"))
		require.NoError(t, err)
		require.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("30000")))

		f.rail.On("PayoutStatus", mock.Anything, p.Reference).
			Return(&provider.PayoutResult{Success: false, Status: provider.RailStatusFailed, Error: "account closed"}, nil)

		done, err := f.svc.Reconcile(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PayoutStatusFailed, done.Status)
		assert.Equal(t, "account closed", done.FailureReason)
		assert.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("50000")))

		v, err := usecase.NewLedgerService(f.wallets, nil, zap.NewNop(), "UGX").Verify(ctx, f.farmer.ID)
		require.NoError(t, err)
		assert.True(t, v.Consistent)
	})

	t.Run("not found and never debited fails", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		p := timedOut(t, f)
		f.rail.On("PayoutStatus", mock.Anything, p.Reference).
			Return(&provider.PayoutResult{Status: provider.RailStatusNotFound}, nil)

		done, err := f.svc.Reconcile(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PayoutStatusFailed, done.Status)
		assert.True(t, f.wallets.balance(f.farmer.ID).Equal(dec("50000")))
	})

	t.Run("lookup error counts a retry", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		p := timedOut(t, f)
		f.rail.On("PayoutStatus", mock.Anything, p.Reference).Return(nil, provider.ErrOutcomeUnknown)

		_, err := f.svc.Reconcile(ctx, p.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrTimeout))
		stored, _ := f.payouts.GetByID(ctx, p.ID)
		assert.Equal(t, 1, stored.RetryCount)
		assert.True(t, stored.NeedsReconciliation)
	})

	t.Run("sweep", func(t *testing.T) {
		f := newPayoutFixture(t, "100000")
		p1 := timedOut(t, f)
		p2 := timedOut(t, f)
		f.rail.On("PayoutStatus", mock.Anything, p1.Reference).
			Return(&provider.PayoutResult{Success: true, Status: provider.RailStatusCompleted}, nil)
		f.rail.On("PayoutStatus", mock.Anything, p2.Reference).
			Return(&provider.PayoutResult{Success: true, Status: provider.RailStatusProcessing}, nil)

		summary, err := f.svc.ReconcileUnsettled(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Checked)
		assert.Equal(t, 1, summary.Completed)
		assert.Equal(t, 1, summary.Open)
		assert.Equal(t, 0, summary.Errors)
	})

	t.Run("pending payouts cannot be reconciled", func(t *testing.T) {
		f := newPayoutFixture(t, "50000")
		p, err := f.svc.Request(ctx, f.request("20000"))
		require.NoError(t, err)
		_, err = f.svc.Reconcile(ctx, p.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))
	})
}
