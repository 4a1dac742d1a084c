package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
)

// EntryResult is the outcome of a ledger write.
type EntryResult struct {
	Wallet      model.Wallet
	Transaction model.WalletTransaction
	// Duplicate is true when an entry with the same reference already existed
	// and nothing new was written.
	Duplicate bool
}

// TransactionFilter narrows a wallet history query.
type TransactionFilter struct {
	Type   *model.EntryType
	Limit  int
	Offset int
}

// WalletRepository persists wallets and their append-only entries.
type WalletRepository interface {
	// FindByFarmer returns ErrNotFound when the farmer has no wallet yet.
	FindByFarmer(ctx context.Context, farmerID uuid.UUID) (*model.Wallet, error)

	// Post locks the farmer's wallet row, applies model.PostEntry and persists
	// the wallet and the new entry atomically. Deposits create the wallet on
	// first use with defaultCurrency. A non-empty reference that already exists
	// returns the stored entry with Duplicate set.
	Post(ctx context.Context, params model.EntryParams, defaultCurrency string) (*EntryResult, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*model.WalletTransaction, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, filter TransactionFilter) ([]model.WalletTransaction, int64, error)

	// SumEntries returns the signed sum of all entries and their count.
	SumEntries(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, int64, error)
	ListWallets(ctx context.Context, offset, limit int) ([]model.Wallet, error)
}
