package usecase_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/qraft-Inc/coffeetrace-sub002/pkg/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/dto"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/entity"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/usecase"
)

func newLedger(wallets *memWallets, sink event.Sink) *usecase.LedgerService {
	return usecase.NewLedgerService(wallets, sink, zap.NewNop(), "UGX")
}

func TestLedgerService_CreditDebit(t *testing.T) {
	ctx := context.Background()
	farmerID := uuid.New()

	t.Run("first credit creates the wallet", func(t *testing.T) {
		wallets := newMemWallets()
		sink := &recordingSink{}
		ledger := newLedger(wallets, sink)

		res, err := ledger.Credit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: dec("9700"), Description: "Tip"})
		require.NoError(t, err)
		assert.True(t, res.Transaction.BalanceBefore.IsZero())
		assert.True(t, res.Transaction.BalanceAfter.Equal(dec("9700")))
		assert.Equal(t, "UGX", res.Wallet.Currency)
		assert.Len(t, sink.ofType(event.LedgerCredited), 1)
	})

	t.Run("debit beyond balance is rejected and leaves nothing behind", func(t *testing.T) {
		wallets := newMemWallets()
		wallets.seed(farmerID, dec("100"), "UGX")
		ledger := newLedger(wallets, nil)

		_, err := ledger.Debit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: dec("100.01")})
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInsufficientBalance))
		assert.True(t, wallets.balance(farmerID).Equal(dec("100")))
		assert.Equal(t, 1, wallets.entryCount())
	})

	t.Run("debit without a wallet is insufficient", func(t *testing.T) {
		ledger := newLedger(newMemWallets(), nil)
		_, err := ledger.Debit(ctx, usecase.LedgerInput{FarmerID: uuid.New(), Amount: dec("1")})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInsufficientBalance))
	})

	t.Run("non-positive amounts are invalid", func(t *testing.T) {
		ledger := newLedger(newMemWallets(), nil)
		for _, amount := range []string{"0", "-5"} {
			_, err := ledger.Credit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: dec(amount)})
			assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidArgument), amount)
		}
	})

	t.Run("currency mismatch is invalid", func(t *testing.T) {
		wallets := newMemWallets()
		wallets.seed(farmerID, dec("100"), "UGX")
		ledger := newLedger(wallets, nil)

		_, err := ledger.Credit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: dec("1"), Currency: "USD"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidArgument))
	})

	t.Run("same reference credits once", func(t *testing.T) {
		wallets := newMemWallets()
		sink := &recordingSink{}
		ledger := newLedger(wallets, sink)
		in := usecase.LedgerInput{FarmerID: farmerID, Amount: dec("50"), Reference: "tip:TIP-1"}

		first, err := ledger.Credit(ctx, in)
		require.NoError(t, err)
		second, err := ledger.Credit(ctx, in)
		require.NoError(t, err)

		assert.True(t, second.Duplicate)
		assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
		assert.True(t, wallets.balance(farmerID).Equal(dec("50")))
		assert.Len(t, sink.ofType(event.LedgerCredited), 1)
	})

	t.Run("reference used by another wallet conflicts", func(t *testing.T) {
		wallets := newMemWallets()
		ledger := newLedger(wallets, nil)
		other := uuid.New()

		_, err := ledger.Credit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: dec("50"), Reference: "tip:TIP-2"})
		require.NoError(t, err)
		_, err = ledger.Credit(ctx, usecase.LedgerInput{FarmerID: other, Amount: dec("50"), Reference: "tip:TIP-2"})

		assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))
		assert.True(t, wallets.balance(other).IsZero())
		assert.Equal(t, 1, wallets.entryCount())
	})
}

func TestLedgerService_BalanceIsReconstructable(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		wallets := newMemWallets()
		ledger := newLedger(wallets, nil)
		farmerID := uuid.New()
		expected := decimal.Zero

		for i := 0; i < 40; i++ {
			amount := decimal.New(rng.Int63n(100000)+1, -2)
			if rng.Intn(3) == 0 {
				_, err := ledger.Debit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: amount})
				if amount.GreaterThan(expected) {
					require.Error(t, err)
					continue
				}
				require.NoError(t, err)
				expected = expected.Sub(amount)
				continue
			}
			_, err := ledger.Credit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: amount})
			require.NoError(t, err)
			expected = expected.Add(amount)
		}

		if expected.IsZero() && wallets.entryCount() == 0 {
			continue
		}
		v, err := ledger.Verify(ctx, farmerID)
		require.NoError(t, err)
		assert.True(t, v.Consistent, "run %d", run)
		assert.True(t, v.CachedBalance.Equal(expected), "run %d", run)
		assert.False(t, v.CachedBalance.IsNegative())
	}
}

func TestLedgerService_ConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWallets()
	farmerID := uuid.New()
	wallets.seed(farmerID, dec("1000"), "UGX")
	ledger := newLedger(wallets, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Debit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: dec("100")}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.True(t, wallets.balance(farmerID).IsZero())
}

func TestLedgerService_Reverse(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWallets()
	ledger := newLedger(wallets, nil)
	farmerID := uuid.New()

	credit, err := ledger.Credit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: dec("300")})
	require.NoError(t, err)

	rev, err := ledger.Reverse(ctx, credit.Transaction.ID, "posted twice")
	require.NoError(t, err)
	assert.Equal(t, model.EntryTypeWithdrawal, rev.Transaction.Type)
	assert.Equal(t, "reversal:"+credit.Transaction.ID.String(), rev.Transaction.Reference)
	assert.True(t, wallets.balance(farmerID).IsZero())

	again, err := ledger.Reverse(ctx, credit.Transaction.ID, "posted twice")
	require.NoError(t, err)
	assert.True(t, again.Duplicate)

	original, err := wallets.GetTransaction(ctx, credit.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, original.Amount.Equal(dec("300")))

	_, err = ledger.Reverse(ctx, uuid.New(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestLedgerService_Queries(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWallets()
	ledger := newLedger(wallets, nil)
	farmerID := uuid.New()

	t.Run("wallet of unknown farmer is zero", func(t *testing.T) {
		w, err := ledger.GetWallet(ctx, farmerID)
		require.NoError(t, err)
		assert.True(t, w.Balance.IsZero())
		assert.Equal(t, "UGX", w.Currency)
	})

	for _, amount := range []string{"100", "200", "300"} {
		_, err := ledger.Credit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: dec(amount)})
		require.NoError(t, err)
	}
	_, err := ledger.Debit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: dec("50")})
	require.NoError(t, err)

	t.Run("history is newest first with running balance", func(t *testing.T) {
		resp, err := ledger.ListTransactions(ctx, farmerID, dto.TransactionFilters{
			PaginationParams: entity.PaginationParams{Page: 1, Limit: 2},
		})
		require.NoError(t, err)
		require.Len(t, resp.Transactions, 2)
		assert.True(t, resp.Balance.Equal(dec("550")))
		assert.Equal(t, "withdrawal", resp.Transactions[0].Type)
		assert.True(t, resp.Transactions[0].BalanceAfter.Equal(dec("550")))
		assert.Equal(t, int64(4), resp.Pagination.Total)
		assert.Equal(t, 2, resp.Pagination.TotalPages)
	})

	t.Run("type filter", func(t *testing.T) {
		resp, err := ledger.ListTransactions(ctx, farmerID, dto.TransactionFilters{Type: "deposit"})
		require.NoError(t, err)
		assert.Len(t, resp.Transactions, 3)
	})

	t.Run("unknown type filter", func(t *testing.T) {
		_, err := ledger.ListTransactions(ctx, farmerID, dto.TransactionFilters{Type: "refund"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidArgument))
	})

	t.Run("verify all", func(t *testing.T) {
		wallets.seed(uuid.New(), dec("5"), "UGX")
		results, err := ledger.VerifyAll(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, results, 2)
		for _, v := range results {
			assert.True(t, v.Consistent)
		}
	})
}

func TestLedgerService_VerifyDetectsDrift(t *testing.T) {
	ctx := context.Background()
	wallets := newMemWallets()
	sink := &recordingSink{}
	ledger := newLedger(wallets, sink)
	farmerID := uuid.New()

	_, err := ledger.Credit(ctx, usecase.LedgerInput{FarmerID: farmerID, Amount: dec("100")})
	require.NoError(t, err)
	wallets.wallets[farmerID].Balance = dec("120")

	v, err := ledger.Verify(ctx, farmerID)
	require.NoError(t, err)
	assert.False(t, v.Consistent)
	assert.True(t, v.Drift.Equal(dec("20")))

	drift := sink.ofType(event.LedgerDrift)
	require.Len(t, drift, 1)
	assert.Equal(t, event.SeverityCritical, drift[0].Severity)
}
