package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/dto"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/entity"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// LedgerInput describes a credit or debit.
type LedgerInput struct {
	FarmerID    uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Description string
	Reference   string
	SourceType  model.SourceType
	SourceID    *uuid.UUID
}

// LedgerService is the only writer of wallet balances.
type LedgerService struct {
	wallets         repository.WalletRepository
	events          publisher
	logger          *zap.Logger
	defaultCurrency string
}

func NewLedgerService(wallets repository.WalletRepository, sink event.Sink, logger *zap.Logger, defaultCurrency string) *LedgerService {
	return &LedgerService{
		wallets:         wallets,
		events:          newPublisher(sink, logger),
		logger:          logger,
		defaultCurrency: model.NormalizeCurrency(defaultCurrency),
	}
}

// Credit adds amount to the farmer's wallet, creating the wallet on first use.
func (s *LedgerService) Credit(ctx context.Context, in LedgerInput) (*repository.EntryResult, error) {
	return s.post(ctx, model.EntryTypeDeposit, in)
}

// Debit subtracts amount from the farmer's wallet. The sufficiency check runs
// against the same locked read that the update uses.
func (s *LedgerService) Debit(ctx context.Context, in LedgerInput) (*repository.EntryResult, error) {
	return s.post(ctx, model.EntryTypeWithdrawal, in)
}

func (s *LedgerService) post(ctx context.Context, entryType model.EntryType, in LedgerInput) (*repository.EntryResult, error) {
	if in.FarmerID == uuid.Nil {
		return nil, invalidArgument("farmer_id is required")
	}
	if !in.Amount.IsPositive() {
		return nil, invalidArgument("amount must be positive")
	}

	currency := model.NormalizeCurrency(in.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	res, err := s.wallets.Post(ctx, model.EntryParams{
		FarmerID:    in.FarmerID,
		Type:        entryType,
		Amount:      in.Amount,
		Currency:    currency,
		Description: in.Description,
		Reference:   in.Reference,
		SourceType:  in.SourceType,
		SourceID:    in.SourceID,
	}, currency)
	if err != nil {
		s.logger.Warn("ledger write rejected",
			zap.String("farmer_id", in.FarmerID.String()),
			zap.String("type", string(entryType)),
			zap.String("amount", in.Amount.String()),
			zap.String("reference", in.Reference),
			zap.Error(err))
		return nil, ledgerError(err)
	}

	if res.Duplicate {
		s.logger.Info("ledger entry already recorded",
			zap.String("farmer_id", in.FarmerID.String()),
			zap.String("reference", in.Reference))
		return res, nil
	}

	ledgerEntriesTotal.WithLabelValues(string(entryType)).Inc()

	evtType := event.LedgerCredited
	if entryType == model.EntryTypeWithdrawal {
		evtType = event.LedgerDebited
	}
	s.events.emit(ctx, event.Event{
		Type:       evtType,
		EntityType: event.EntityWallet,
		EntityID:   res.Wallet.ID.String(),
		FarmerID:   in.FarmerID.String(),
		Message:    in.Description,
		Data: map[string]interface{}{
			"transaction_id": res.Transaction.ID.String(),
			"amount":         res.Transaction.Amount.String(),
			"balance_before": res.Transaction.BalanceBefore.String(),
			"balance_after":  res.Transaction.BalanceAfter.String(),
			"currency":       res.Transaction.Currency,
			"reference":      res.Transaction.Reference,
		},
	})

	return res, nil
}

// Reverse posts an offsetting entry for an existing one. The original entry is
// never modified.
func (s *LedgerService) Reverse(ctx context.Context, transactionID uuid.UUID, reason string) (*repository.EntryResult, error) {
	original, err := s.wallets.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, lookupError(err, "wallet transaction", transactionID.String())
	}

	in := LedgerInput{
		FarmerID:    original.FarmerID,
		Amount:      original.Amount,
		Currency:    original.Currency,
		Description: fmt.Sprintf("Reversal of %s: %s", original.ID, reason),
		Reference:   "reversal:" + original.ID.String(),
		SourceType:  model.SourceTypeReversal,
		SourceID:    &original.ID,
	}
	if original.Type == model.EntryTypeDeposit {
		return s.Debit(ctx, in)
	}
	return s.Credit(ctx, in)
}

// GetWallet returns the farmer's balance; farmers without a wallet have zero.
func (s *LedgerService) GetWallet(ctx context.Context, farmerID uuid.UUID) (*dto.WalletResponse, error) {
	wallet, err := s.wallets.FindByFarmer(ctx, farmerID)
	if errors.Is(err, repository.ErrNotFound) {
		return &dto.WalletResponse{FarmerID: farmerID, Balance: decimal.Zero, Currency: s.defaultCurrency}, nil
	}
	if err != nil {
		return nil, internal("failed to load wallet", err)
	}

	lastUpdated := wallet.LastUpdated
	return &dto.WalletResponse{
		FarmerID:    farmerID,
		Balance:     wallet.Balance,
		Currency:    wallet.Currency,
		LastUpdated: &lastUpdated,
	}, nil
}

// ListTransactions returns a page of wallet history, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, farmerID uuid.UUID, filters dto.TransactionFilters) (*dto.TransactionListResponse, error) {
	filters.Normalize()

	var entryType *model.EntryType
	if filters.Type != "" {
		t := model.EntryType(filters.Type)
		if !t.IsValid() {
			return nil, invalidArgument("unknown transaction type %q", filters.Type)
		}
		entryType = &t
	}

	resp := &dto.TransactionListResponse{
		Balance:      decimal.Zero,
		Currency:     s.defaultCurrency,
		Transactions: []dto.WalletTransactionDTO{},
		Pagination:   entity.NewPaginationMeta(filters.PaginationParams, 0),
	}

	wallet, err := s.wallets.FindByFarmer(ctx, farmerID)
	if errors.Is(err, repository.ErrNotFound) {
		return resp, nil
	}
	if err != nil {
		return nil, internal("failed to load wallet", err)
	}

	entries, total, err := s.wallets.ListTransactions(ctx, wallet.ID, repository.TransactionFilter{
		Type:   entryType,
		Limit:  filters.Limit,
		Offset: filters.Offset(),
	})
	if err != nil {
		s.logger.Error("failed to list wallet transactions",
			zap.String("farmer_id", farmerID.String()),
			zap.Error(err))
		return nil, internal("failed to list wallet transactions", err)
	}

	resp.Balance = wallet.Balance
	resp.Currency = wallet.Currency
	resp.Pagination = entity.NewPaginationMeta(filters.PaginationParams, total)
	resp.Transactions = make([]dto.WalletTransactionDTO, len(entries))
	for i, tx := range entries {
		resp.Transactions[i] = dto.WalletTransactionDTO{
			ID:            tx.ID,
			Type:          string(tx.Type),
			Amount:        tx.Amount,
			BalanceBefore: tx.BalanceBefore,
			BalanceAfter:  tx.BalanceAfter,
			Description:   tx.Description,
			Reference:     tx.Reference,
			SourceType:    string(tx.SourceType),
			SourceID:      tx.SourceID,
			CreatedAt:     tx.CreatedAt,
		}
	}
	return resp, nil
}

// Verify recomputes the balance from entries and compares it with the cached value.
func (s *LedgerService) Verify(ctx context.Context, farmerID uuid.UUID) (*dto.WalletVerification, error) {
	wallet, err := s.wallets.FindByFarmer(ctx, farmerID)
	if err != nil {
		return nil, lookupError(err, "wallet for farmer", farmerID.String())
	}
	return s.verifyWallet(ctx, wallet)
}

// VerifyAll checks every wallet, batchSize at a time.
func (s *LedgerService) VerifyAll(ctx context.Context, batchSize int) ([]dto.WalletVerification, error) {
	if batchSize <= 0 {
		batchSize = 200
	}

	var out []dto.WalletVerification
	for offset := 0; ; offset += batchSize {
		wallets, err := s.wallets.ListWallets(ctx, offset, batchSize)
		if err != nil {
			return out, internal("failed to list wallets", err)
		}
		for i := range wallets {
			v, err := s.verifyWallet(ctx, &wallets[i])
			if err != nil {
				return out, err
			}
			out = append(out, *v)
		}
		if len(wallets) < batchSize {
			return out, nil
		}
	}
}

func (s *LedgerService) verifyWallet(ctx context.Context, wallet *model.Wallet) (*dto.WalletVerification, error) {
	sum, count, err := s.wallets.SumEntries(ctx, wallet.ID)
	if err != nil {
		return nil, internal("failed to sum wallet entries", err)
	}

	v := &dto.WalletVerification{
		FarmerID:        wallet.FarmerID,
		WalletID:        wallet.ID,
		Currency:        wallet.Currency,
		CachedBalance:   wallet.Balance,
		ComputedBalance: sum,
		Drift:           wallet.Balance.Sub(sum),
		Entries:         count,
		Consistent:      wallet.Balance.Equal(sum),
	}

	if !v.Consistent {
		s.logger.Error("wallet balance drift detected",
			zap.String("farmer_id", wallet.FarmerID.String()),
			zap.String("wallet_id", wallet.ID.String()),
			zap.String("cached", wallet.Balance.String()),
			zap.String("computed", sum.String()))
		s.events.emit(ctx, event.Event{
			Type:       event.LedgerDrift,
			Severity:   event.SeverityCritical,
			EntityType: event.EntityWallet,
			EntityID:   wallet.ID.String(),
			FarmerID:   wallet.FarmerID.String(),
			Message:    "cached wallet balance differs from the sum of its entries",
			Data: map[string]interface{}{
				"cached_balance":   wallet.Balance.String(),
				"computed_balance": sum.String(),
			},
		})
	}
	return v, nil
}
