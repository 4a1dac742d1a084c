package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusCompleted || s == PayoutStatusFailed
}

type DestinationType string

const (
	DestinationMobileMoney DestinationType = "mobile_money"
	DestinationBankAccount DestinationType = "bank_account"
)

// Payout is a farmer withdrawal to an external account. The destination
// account is stored encrypted; DestinationMasked is safe to display.
type Payout struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Reference string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"reference"`
	FarmerID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"farmer_id"`
	WalletID  *uuid.UUID      `gorm:"type:uuid" json:"wallet_id,omitempty"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency  string          `gorm:"type:varchar(3);not null" json:"currency"`

	DestinationType   DestinationType `gorm:"type:varchar(20);not null" json:"destination_type"`
	DestinationCipher string          `gorm:"type:text;not null" json:"-"`
	DestinationIV     string          `gorm:"type:varchar(64);not null" json:"-"`
	DestinationMasked string          `gorm:"type:varchar(32)" json:"destination"`
	Description       string          `gorm:"type:text" json:"description,omitempty"`

	Status              PayoutStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ProcessorReference  string       `gorm:"type:varchar(255);index" json:"processor_reference,omitempty"`
	RailStatus          string       `gorm:"type:varchar(20)" json:"rail_status,omitempty"`
	FailureReason       string       `gorm:"type:text" json:"failure_reason,omitempty"`
	RetryCount          int          `gorm:"not null;default:0" json:"retry_count"`
	NeedsReconciliation bool         `gorm:"not null;default:false;index" json:"needs_reconciliation"`
	Debited             bool         `gorm:"not null;default:false" json:"debited"`

	WalletTransactionID *uuid.UUID `gorm:"type:uuid" json:"wallet_transaction_id,omitempty"`
	InitiatedAt         time.Time  `gorm:"not null" json:"initiated_at"`
	ExecutedAt          *time.Time `json:"executed_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	FailedAt            *time.Time `json:"failed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (Payout) TableName() string {
	return "payouts"
}

// MaskAccount keeps the last four characters of an account identifier.
func MaskAccount(account string) string {
	if len(account) <= 4 {
		return "****"
	}
	return "****" + account[len(account)-4:]
}
