package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutRequest is a farmer's withdrawal request. When DestinationAccount is
// empty the phone number on the farmer profile is used.
type PayoutRequest struct {
	FarmerID           uuid.UUID       `json:"farmer_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency" validate:"omitempty,len=3"`
	DestinationType    string          `json:"destination_type" validate:"omitempty,oneof=mobile_money bank_account"`
	DestinationAccount string          `json:"destination_account,omitempty" validate:"omitempty,max=64"`
	Description        string          `json:"description,omitempty" validate:"max=255"`
}
