package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest is the buyer's input for a sale payment. Either
// BaseAmount or Quantity and PricePerUnit must be given.
type CreatePaymentRequest struct {
	FarmerID      uuid.UUID        `json:"farmer_id" validate:"required"`
	BuyerID       uuid.UUID        `json:"buyer_id"`
	LotID         uuid.UUID        `json:"lot_id" validate:"required"`
	Type          string           `json:"type" validate:"required,oneof=sale advance bonus"`
	Currency      string           `json:"currency" validate:"omitempty,len=3"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	PricePerUnit  *decimal.Decimal `json:"price_per_unit,omitempty"`
	BaseAmount    *decimal.Decimal `json:"base_amount,omitempty"`
	PaymentMethod string           `json:"payment_method" validate:"required,oneof=wallet mobile_money bank_transfer"`
	Deductions    []DeductionInput `json:"deductions,omitempty" validate:"dive"`
	Notes         string           `json:"notes,omitempty" validate:"max=2000"`
}

type DeductionInput struct {
	Reason string          `json:"reason" validate:"required,max=255"`
	Amount decimal.Decimal `json:"amount"`
}
