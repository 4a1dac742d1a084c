package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/entity"
)

type WalletResponse struct {
	FarmerID    uuid.UUID       `json:"farmer_id"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	LastUpdated *time.Time      `json:"last_updated,omitempty"`
}

type WalletTransactionDTO struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	SourceType    string          `json:"source_type,omitempty"`
	SourceID      *uuid.UUID      `json:"source_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransactionListResponse is one page of history plus the current balance.
// Each entry's balance_after is the running balance at that point.
type TransactionListResponse struct {
	Balance      decimal.Decimal        `json:"balance"`
	Currency     string                 `json:"currency"`
	Transactions []WalletTransactionDTO `json:"transactions"`
	Pagination   entity.PaginationMeta  `json:"pagination"`
}

// TransactionFilters contains query filters for transaction retrieval
type TransactionFilters struct {
	Type string `query:"type" validate:"omitempty,oneof=deposit withdrawal"`
	entity.PaginationParams
}

// WalletVerification compares the cached balance with the sum of entries.
type WalletVerification struct {
	FarmerID        uuid.UUID       `json:"farmer_id"`
	WalletID        uuid.UUID       `json:"wallet_id"`
	Currency        string          `json:"currency"`
	CachedBalance   decimal.Decimal `json:"cached_balance"`
	ComputedBalance decimal.Decimal `json:"computed_balance"`
	Drift           decimal.Decimal `json:"drift"`
	Entries         int64           `json:"entries"`
	Consistent      bool            `json:"consistent"`
}

type ReverseEntryRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
