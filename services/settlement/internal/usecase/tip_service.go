package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/dto"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// TipServiceConfig holds fee and redirect settings for tip checkouts.
type TipServiceConfig struct {
	PlatformFeeRate decimal.Decimal
	DefaultCurrency string
	ReturnURL       string
	CancelURL       string
	WebhookURL      string
}

// TipService creates hosted checkouts for buyer tips.
type TipService struct {
	tips     repository.TipRepository
	farmers  repository.FarmerDirectory
	lots     repository.LotDirectory
	checkout provider.CheckoutProvider
	cfg      TipServiceConfig
	events   publisher
	logger   *zap.Logger
	now      func() time.Time
}

func NewTipService(
	tips repository.TipRepository,
	farmers repository.FarmerDirectory,
	lots repository.LotDirectory,
	checkout provider.CheckoutProvider,
	cfg TipServiceConfig,
	sink event.Sink,
	logger *zap.Logger,
) *TipService {
	cfg.DefaultCurrency = model.NormalizeCurrency(cfg.DefaultCurrency)
	return &TipService{
		tips:     tips,
		farmers:  farmers,
		lots:     lots,
		checkout: checkout,
		cfg:      cfg,
		events:   newPublisher(sink, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// CreateCheckout stores a pending tip and opens a checkout session for it.
// The tip row is kept when the processor call fails.
func (s *TipService) CreateCheckout(ctx context.Context, req dto.CreateTipRequest) (*model.Tip, error) {
	if req.FarmerID == uuid.Nil {
		return nil, invalidArgument("farmer_id is required")
	}
	currency := model.NormalizeCurrency(req.Currency)
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	gross := req.Amount
	if !model.FromMinorUnits(model.ToMinorUnits(gross, currency), currency).Equal(gross) {
		return nil, invalidArgument("amount has more decimal places than %s allows", currency)
	}
	if model.ToMinorUnits(gross, currency) <= 0 {
		return nil, invalidArgument("amount must be positive")
	}

	farmer, err := s.farmers.GetFarmer(ctx, req.FarmerID)
	if err != nil {
		return nil, lookupError(err, "farmer", req.FarmerID.String())
	}
	if req.LotID != nil {
		lot, err := s.lots.GetLot(ctx, *req.LotID)
		if err != nil {
			return nil, lookupError(err, "lot", req.LotID.String())
		}
		if lot.FarmerID != farmer.ID {
			return nil, invalidArgument("lot %s does not belong to farmer %s", lot.ID, farmer.ID)
		}
	}

	reference, err := newReference("TIP-")
	if err != nil {
		return nil, internal("failed to generate tip reference", err)
	}

	fee, net := model.SplitTipAmount(gross, s.cfg.PlatformFeeRate)
	tip := &model.Tip{
		ID:           uuid.New(),
		Reference:    reference,
		FarmerID:     farmer.ID,
		LotID:        req.LotID,
		GrossAmount:  gross,
		PlatformFee:  fee,
		NetAmount:    net,
		Currency:     currency,
		Provider:     string(s.checkout.Name()),
		Status:       model.TipStatusPending,
		BuyerName:    req.BuyerName,
		BuyerEmail:   req.BuyerEmail,
		BuyerMessage: req.Message,
		Metadata:     model.SanitizeMetadata(req.Metadata),
	}
	if err := s.tips.Create(ctx, tip); err != nil {
		s.logger.Error("failed to create tip",
			zap.String("farmer_id", farmer.ID.String()),
			zap.Error(err))
		return nil, internal("failed to create tip", err)
	}
	s.emitTip(ctx, event.TipCreated, event.SeverityInfo, tip, "")

	session, err := s.checkout.CreateCheckout(ctx, &provider.CheckoutRequest{
		Reference:   tip.Reference,
		Amount:      model.ToMinorUnits(gross, currency),
		Currency:    currency,
		Description: fmt.Sprintf("Tip for %s", farmer.Name),
		Customer:    provider.Customer{Name: req.BuyerName, Email: req.BuyerEmail},
		Metadata:    checkoutMetadata(tip),
		ReturnURL:   s.cfg.ReturnURL,
		CancelURL:   s.cfg.CancelURL,
		WebhookURL:  s.cfg.WebhookURL,
	})
	if err != nil {
		now := s.now().UTC()
		tip.Status = model.TipStatusFailed
		tip.FailureReason = err.Error()
		tip.FailedAt = &now
		if uerr := s.tips.Update(ctx, tip); uerr != nil {
			s.logger.Error("failed to record checkout failure",
				zap.String("tip_reference", tip.Reference),
				zap.Error(uerr))
		}
		s.logger.Warn("checkout creation failed",
			zap.String("tip_reference", tip.Reference),
			zap.String("provider", tip.Provider),
			zap.Error(err))
		s.emitTip(ctx, event.TipCheckoutFailed, event.SeverityWarning, tip, err.Error())
		return tip, externalError("checkout creation failed", err)
	}

	tip.CheckoutSessionID = session.ID
	tip.CheckoutURL = session.URL
	tip.ProcessorReference = session.Reference
	tip.Status = model.TipStatusProcessing
	if err := s.tips.Update(ctx, tip); err != nil {
		s.logger.Error("failed to store checkout session",
			zap.String("tip_reference", tip.Reference),
			zap.Error(err))
		return nil, internal("failed to store checkout session", err)
	}

	s.logger.Info("tip checkout created",
		zap.String("tip_reference", tip.Reference),
		zap.String("farmer_id", tip.FarmerID.String()),
		zap.String("amount", gross.String()),
		zap.String("currency", currency))
	s.emitTip(ctx, event.TipCheckoutStarted, event.SeverityInfo, tip, "")

	return tip, nil
}

// checkoutMetadata carries the buyer's sanitized metadata plus the keys the
// dashboard reconciles on. Our keys win on collision.
func checkoutMetadata(tip *model.Tip) map[string]string {
	meta := model.MetadataStrings(tip.Metadata)
	if meta == nil {
		meta = map[string]string{}
	}
	meta["tip_id"] = tip.ID.String()
	meta["farmer_id"] = tip.FarmerID.String()
	if tip.LotID != nil {
		meta["lot_id"] = tip.LotID.String()
	}
	if tip.BuyerMessage != "" {
		meta["message"] = model.MetadataStrings(map[string]interface{}{"message": tip.BuyerMessage})["message"]
	}
	return meta
}

// GetByReference finds a tip by our reference or the processor's.
func (s *TipService) GetByReference(ctx context.Context, reference string) (*model.Tip, error) {
	tip, err := s.tips.GetByReference(ctx, reference)
	if err != nil {
		return nil, lookupError(err, "tip", reference)
	}
	return tip, nil
}

func (s *TipService) emitTip(ctx context.Context, evtType string, severity event.Severity, tip *model.Tip, msg string) {
	s.events.emit(ctx, tipEvent(evtType, severity, tip, msg))
}

func tipEvent(evtType string, severity event.Severity, tip *model.Tip, msg string) event.Event {
	return event.Event{
		Type:       evtType,
		Severity:   severity,
		EntityType: event.EntityTip,
		EntityID:   tip.Reference,
		FarmerID:   tip.FarmerID.String(),
		Status:     string(tip.Status),
		Message:    msg,
		Data: map[string]interface{}{
			"gross_amount": tip.GrossAmount.String(),
			"net_amount":   tip.NetAmount.String(),
			"currency":     tip.Currency,
			"provider":     tip.Provider,
		},
	}
}

// ToTipResponse is the public view of a tip.
func ToTipResponse(tip *model.Tip) dto.TipResponse {
	return dto.TipResponse{
		ID:          tip.ID,
		Reference:   tip.Reference,
		Status:      string(tip.Status),
		CheckoutURL: tip.CheckoutURL,
		GrossAmount: tip.GrossAmount,
		PlatformFee: tip.PlatformFee,
		NetAmount:   tip.NetAmount,
		Currency:    tip.Currency,
		ConfirmedAt: tip.ConfirmedAt,
	}
}
