package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// SettlementResult is what a payment method reports after settling.
type SettlementResult struct {
	ProcessorReference  string
	WalletTransactionID *uuid.UUID
}

// MethodHandler settles a payment through one payment method. Adding a method
// means registering another handler with the PaymentService.
type MethodHandler interface {
	Method() model.PaymentMethod
	Settle(ctx context.Context, payment *model.PaymentTransaction) (*SettlementResult, error)
}

// WalletSettlement credits the farmer's wallet with the net amount.
type WalletSettlement struct {
	ledger *LedgerService
}

func NewWalletSettlement(ledger *LedgerService) *WalletSettlement {
	return &WalletSettlement{ledger: ledger}
}

func (h *WalletSettlement) Method() model.PaymentMethod { return model.PaymentMethodWallet }

func (h *WalletSettlement) Settle(ctx context.Context, p *model.PaymentTransaction) (*SettlementResult, error) {
	lot := p.LotCode
	if lot == "" {
		lot = p.LotID.String()
	}
	res, err := h.ledger.Credit(ctx, LedgerInput{
		FarmerID:    p.FarmerID,
		Amount:      p.NetAmount,
		Currency:    p.Currency,
		Description: fmt.Sprintf("Sale of lot %s", lot),
		Reference:   "payment:" + p.ID.String(),
		SourceType:  model.SourceTypePayment,
		SourceID:    &p.ID,
	})
	if err != nil {
		return nil, err
	}
	txID := res.Transaction.ID
	return &SettlementResult{WalletTransactionID: &txID}, nil
}

// MobileMoneySettlement pushes the net amount to the farmer's phone through
// the payout rail. Without a rail it records a placeholder reference and the
// transfer is settled out of band.
type MobileMoneySettlement struct {
	rail    provider.PayoutRail
	farmers repository.FarmerDirectory
	logger  *zap.Logger
}

func NewMobileMoneySettlement(rail provider.PayoutRail, farmers repository.FarmerDirectory, logger *zap.Logger) *MobileMoneySettlement {
	return &MobileMoneySettlement{rail: rail, farmers: farmers, logger: logger}
}

func (h *MobileMoneySettlement) Method() model.PaymentMethod { return model.PaymentMethodMobileMoney }

func (h *MobileMoneySettlement) Settle(ctx context.Context, p *model.PaymentTransaction) (*SettlementResult, error) {
	if h.rail == nil {
		return placeholderSettlement()
	}

	farmer, err := h.farmers.GetFarmer(ctx, p.FarmerID)
	if err != nil {
		return nil, lookupError(err, "farmer", p.FarmerID.String())
	}
	if farmer.Phone == "" {
		h.logger.Info("farmer has no phone on file, settling mobile money out of band",
			zap.String("payment_id", p.ID.String()))
		return placeholderSettlement()
	}

	res, err := h.rail.SendPayout(ctx, &provider.PayoutRequest{
		FarmerID:          p.FarmerID.String(),
		Amount:            p.NetAmount,
		Currency:          p.Currency,
		DestinationMSISDN: farmer.Phone,
		Reference:         "payment-" + p.ID.String(),
		Description:       "Coffee sale payment",
	})
	if err != nil {
		return nil, externalError("mobile money transfer failed", err)
	}
	if !res.Accepted() {
		return nil, externalError("mobile money transfer rejected", &provider.ProviderError{Code: string(res.Status), Message: "transfer rejected", Details: res.Error})
	}
	return &SettlementResult{ProcessorReference: res.PSPReference}, nil
}

// BankTransferSettlement has no live integration and records a placeholder
// reference for the finance team.
type BankTransferSettlement struct{}

func (BankTransferSettlement) Method() model.PaymentMethod { return model.PaymentMethodBankTransfer }

func (BankTransferSettlement) Settle(context.Context, *model.PaymentTransaction) (*SettlementResult, error) {
	return placeholderSettlement()
}

func placeholderSettlement() (*SettlementResult, error) {
	ref, err := newReference("PENDING-")
	if err != nil {
		return nil, internal("failed to generate processor reference", err)
	}
	return &SettlementResult{ProcessorReference: ref}, nil
}
