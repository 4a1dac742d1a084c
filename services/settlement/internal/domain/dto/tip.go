package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateTipRequest struct {
	FarmerID   uuid.UUID              `json:"farmer_id" validate:"required"`
	LotID      *uuid.UUID             `json:"lot_id,omitempty"`
	Amount     decimal.Decimal        `json:"amount"`
	Currency   string                 `json:"currency" validate:"omitempty,len=3"`
	BuyerName  string                 `json:"buyer_name,omitempty" validate:"max=255"`
	BuyerEmail string                 `json:"buyer_email,omitempty" validate:"omitempty,email"`
	Message    string                 `json:"message,omitempty" validate:"max=500"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

type TipResponse struct {
	ID          uuid.UUID       `json:"id"`
	Reference   string          `json:"reference"`
	Status      string          `json:"status"`
	CheckoutURL string          `json:"checkout_url,omitempty"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	Currency    string          `json:"currency"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
}
