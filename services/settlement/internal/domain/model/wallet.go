package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/errors"
)

// Wallet is a farmer's custodial balance. Balance is a materialized view of
// the wallet's entries and is only changed through PostEntry.
type Wallet struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FarmerID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"farmer_id"`
	Currency    string          `gorm:"type:varchar(3);not null" json:"currency"`
	Balance     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	Version     int64           `gorm:"not null;default:0" json:"version"`
	LastUpdated time.Time       `gorm:"not null" json:"last_updated"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// EntryType is the direction of a ledger entry.
type EntryType string

const (
	EntryTypeDeposit    EntryType = "deposit"
	EntryTypeWithdrawal EntryType = "withdrawal"
)

func (t EntryType) IsValid() bool {
	return t == EntryTypeDeposit || t == EntryTypeWithdrawal
}

type EntryStatus string

const EntryStatusCompleted EntryStatus = "completed"

// SourceType links an entry to the record that caused it.
type SourceType string

const (
	SourceTypeTip      SourceType = "tip"
	SourceTypePayment  SourceType = "payment"
	SourceTypePayout   SourceType = "payout"
	SourceTypeReversal SourceType = "reversal"
)

// WalletTransaction is an immutable ledger entry. Amount is always a positive magnitude.
type WalletTransaction struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	WalletID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_wallet_tx_wallet_created,priority:1" json:"wallet_id"`
	FarmerID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"farmer_id"`
	Type          EntryType       `gorm:"type:varchar(20);not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_after"`
	Currency      string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status        EntryStatus     `gorm:"type:varchar(20);not null" json:"status"`
	Description   string          `gorm:"type:text" json:"description"`
	Reference     string          `gorm:"type:varchar(255);uniqueIndex:idx_wallet_tx_reference,where:reference <> ''" json:"reference,omitempty"`
	SourceType    SourceType      `gorm:"type:varchar(20)" json:"source_type,omitempty"`
	SourceID      *uuid.UUID      `gorm:"type:uuid;index" json:"source_id,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;index:idx_wallet_tx_wallet_created,priority:2" json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

// Delta is the signed change this entry applied to the balance.
func (t *WalletTransaction) Delta() decimal.Decimal {
	if t.Type == EntryTypeWithdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}

// EntryParams describes a ledger write.
type EntryParams struct {
	FarmerID    uuid.UUID
	Type        EntryType
	Amount      decimal.Decimal
	Currency    string
	Description string
	Reference   string
	SourceType  SourceType
	SourceID    *uuid.UUID
}

// PostEntry applies params to the wallet snapshot and returns the entry to append.
// The caller must hold the wallet exclusively (row lock) between reading the
// snapshot and persisting both the wallet and the entry.
func PostEntry(w *Wallet, params EntryParams, now time.Time) (*WalletTransaction, error) {
	if !params.Amount.IsPositive() {
		return nil, domainErrors.ErrNonPositiveAmount
	}
	if params.Currency != "" && w.Currency != "" && !strings.EqualFold(params.Currency, w.Currency) {
		return nil, domainErrors.ErrCurrencyMismatch
	}

	amount := RoundMoney(params.Amount)
	before := w.Balance
	var after decimal.Decimal

	switch params.Type {
	case EntryTypeDeposit:
		after = before.Add(amount)
	case EntryTypeWithdrawal:
		if amount.GreaterThan(before) {
			return nil, domainErrors.NewInsufficientBalanceError(amount, before)
		}
		after = before.Sub(amount)
	default:
		return nil, domainErrors.ErrInvalidEntryType
	}

	w.Balance = after
	w.Version++
	w.LastUpdated = now

	return &WalletTransaction{
		ID:            uuid.New(),
		WalletID:      w.ID,
		FarmerID:      w.FarmerID,
		Type:          params.Type,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Currency:      w.Currency,
		Status:        EntryStatusCompleted,
		Description:   params.Description,
		Reference:     params.Reference,
		SourceType:    params.SourceType,
		SourceID:      params.SourceID,
		CreatedAt:     now,
	}, nil
}

// NewWallet returns an empty wallet for a farmer.
func NewWallet(farmerID uuid.UUID, currency string, now time.Time) *Wallet {
	return &Wallet{
		ID:          uuid.New(),
		FarmerID:    farmerID,
		Currency:    NormalizeCurrency(currency),
		Balance:     decimal.Zero,
		LastUpdated: now,
	}
}
