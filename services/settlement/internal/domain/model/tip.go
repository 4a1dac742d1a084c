package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TipStatus of a buyer tip routed through hosted checkout.
type TipStatus string

const (
	TipStatusPending    TipStatus = "pending"
	TipStatusProcessing TipStatus = "processing"
	TipStatusConfirmed  TipStatus = "confirmed"
	TipStatusFailed     TipStatus = "failed"
)

// Tip is a voluntary buyer payment to a farmer.
type Tip struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Reference string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"reference"`
	FarmerID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"farmer_id"`
	LotID     *uuid.UUID `gorm:"type:uuid;index" json:"lot_id,omitempty"`

	GrossAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"gross_amount"`
	PlatformFee decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"platform_fee"`
	NetAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"net_amount"`
	Currency    string          `gorm:"type:varchar(3);not null" json:"currency"`

	Provider           string    `gorm:"type:varchar(20);not null" json:"provider"`
	CheckoutSessionID  string    `gorm:"type:varchar(255);index" json:"checkout_session_id,omitempty"`
	CheckoutURL        string    `gorm:"type:text" json:"checkout_url,omitempty"`
	ProcessorReference string    `gorm:"type:varchar(255);index" json:"processor_reference,omitempty"`
	PaymentMethod      string    `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	Status             TipStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	FailureReason      string    `gorm:"type:text" json:"failure_reason,omitempty"`

	BuyerName    string            `gorm:"type:varchar(255)" json:"buyer_name,omitempty"`
	BuyerEmail   string            `gorm:"type:varchar(255)" json:"buyer_email,omitempty"`
	BuyerMessage string            `gorm:"type:text" json:"buyer_message,omitempty"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`

	WalletTransactionID *uuid.UUID `gorm:"type:uuid" json:"wallet_transaction_id,omitempty"`
	ConfirmedAt         *time.Time `json:"confirmed_at,omitempty"`
	FailedAt            *time.Time `json:"failed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (Tip) TableName() string {
	return "tips"
}

// SplitTipAmount returns the platform fee (rounded to cents) and the farmer's net.
func SplitTipAmount(gross, feeRate decimal.Decimal) (fee, net decimal.Decimal) {
	fee = RoundMoney(gross.Mul(feeRate))
	return fee, gross.Sub(fee)
}

// Metadata bounds for buyer-supplied key/value pairs.
const (
	MaxMetadataKeys     = 20
	MaxMetadataKeyLen   = 64
	MaxMetadataValueLen = 500
)

// SanitizeMetadata keeps only scalar values within the bounds above.
// Nested objects and arrays are dropped.
func SanitizeMetadata(in map[string]interface{}) datatypes.JSONMap {
	if len(in) == 0 {
		return nil
	}
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := datatypes.JSONMap{}
	for _, k := range keys {
		v := in[k]
		if len(out) >= MaxMetadataKeys {
			break
		}
		if k == "" || len(k) > MaxMetadataKeyLen {
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = truncateUTF8(val, MaxMetadataValueLen)
		case bool, float64, float32, int, int32, int64, json.Number:
			out[k] = val
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MetadataStrings sanitizes in and renders every kept value as a string, the
// shape processors accept for checkout metadata.
func MetadataStrings(in map[string]interface{}) map[string]string {
	clean := SanitizeMetadata(in)
	if clean == nil {
		return nil
	}
	out := make(map[string]string, len(clean))
	for k, v := range clean {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
