package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "github.com/qraft-Inc/coffeetrace-sub002/pkg/errors"
	domainErrors "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// WebhookService applies authenticated checkout events to tips and the ledger.
type WebhookService struct {
	tips       repository.TipRepository
	webhooks   repository.WebhookEventRepository
	transactor repository.Transactor
	ledger     *LedgerService
	events     publisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewWebhookService(
	tips repository.TipRepository,
	webhooks repository.WebhookEventRepository,
	transactor repository.Transactor,
	ledger *LedgerService,
	sink event.Sink,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		tips:       tips,
		webhooks:   webhooks,
		transactor: transactor,
		ledger:     ledger,
		events:     newPublisher(sink, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Handle dispatches one authenticated event. A NOT_FOUND error means no tip
// matches the event's reference; any other error has already been recorded
// and reported to operators.
func (s *WebhookService) Handle(ctx context.Context, evt *provider.WebhookEvent) error {
	key := evt.Key()
	s.record(ctx, key, evt)

	var err error
	outcome := "processed"
	switch evt.Event {
	case provider.EventPaymentSuccess, provider.EventPaymentCompleted:
		outcome, err = s.confirm(ctx, evt)
	case provider.EventPaymentFailed, provider.EventPaymentCancelled:
		outcome, err = s.fail(ctx, evt)
	default:
		outcome, err = s.ignore(ctx, evt)
	}

	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			s.markStatus(ctx, key, model.WebhookEventFailed, err.Error())
			webhookEventsTotal.WithLabelValues(evt.Event, "not_found").Inc()
			s.logger.Warn("webhook references unknown tip",
				zap.String("event", evt.Event),
				zap.String("tip_reference", evt.Reference))
			return err
		}
		s.reportFailure(ctx, key, evt, err)
		return err
	}

	status := model.WebhookEventProcessed
	if outcome == "ignored" {
		status = model.WebhookEventIgnored
	}
	s.markStatus(ctx, key, status, "")
	webhookEventsTotal.WithLabelValues(evt.Event, outcome).Inc()
	return nil
}

// ignore acknowledges an event type with no tip transition. A reference, when
// present, must still name a known tip; account-level events carry none.
func (s *WebhookService) ignore(ctx context.Context, evt *provider.WebhookEvent) (string, error) {
	if evt.Reference != "" {
		if _, err := s.tips.GetByReference(ctx, evt.Reference); err != nil {
			return "", lookupError(err, "tip", evt.Reference)
		}
	}
	s.logger.Info("ignoring unhandled webhook event",
		zap.String("event", evt.Event),
		zap.String("tip_reference", evt.Reference))
	return "ignored", nil
}

// confirm credits the farmer once and marks the tip confirmed. The lock on the
// tip row serializes concurrent deliveries of the same event.
func (s *WebhookService) confirm(ctx context.Context, evt *provider.WebhookEvent) (string, error) {
	if _, err := s.tips.GetByReference(ctx, evt.Reference); err != nil {
		return "", lookupError(err, "tip", evt.Reference)
	}

	var confirmed *model.Tip
	alreadyConfirmed := false
	err := inTransaction(ctx, s.transactor, func(txCtx context.Context) error {
		tip, err := s.tips.LockByReference(txCtx, evt.Reference)
		if err != nil {
			return lookupError(err, "tip", evt.Reference)
		}
		if tip.Status == model.TipStatusConfirmed {
			alreadyConfirmed = true
			confirmed = tip
			return nil
		}
		if err := matchesTip(tip, evt); err != nil {
			return err
		}

		if tip.Status == model.TipStatusFailed {
			s.logger.Warn("confirming previously failed tip",
				zap.String("tip_reference", tip.Reference),
				zap.String("failure_reason", tip.FailureReason))
		}

		res, err := s.ledger.Credit(txCtx, LedgerInput{
			FarmerID:    tip.FarmerID,
			Amount:      tip.NetAmount,
			Currency:    tip.Currency,
			Description: tipDescription(tip),
			Reference:   "tip:" + tip.Reference,
			SourceType:  model.SourceTypeTip,
			SourceID:    &tip.ID,
		})
		if err != nil {
			return err
		}

		now := s.now().UTC()
		txID := res.Transaction.ID
		tip.Status = model.TipStatusConfirmed
		tip.ConfirmedAt = &now
		tip.FailedAt = nil
		tip.FailureReason = ""
		tip.WalletTransactionID = &txID
		if evt.PaymentMethod != "" {
			tip.PaymentMethod = evt.PaymentMethod
		}
		if tip.ProcessorReference == "" && evt.ID != "" {
			tip.ProcessorReference = evt.ID
		}
		if err := s.tips.Update(txCtx, tip); err != nil {
			return internal("failed to confirm tip", err)
		}
		confirmed = tip
		return nil
	})
	if err != nil {
		return "", err
	}

	if alreadyConfirmed {
		s.logger.Info("tip already confirmed, skipping credit",
			zap.String("tip_reference", confirmed.Reference))
		return "duplicate", nil
	}

	s.logger.Info("tip confirmed",
		zap.String("tip_reference", confirmed.Reference),
		zap.String("farmer_id", confirmed.FarmerID.String()),
		zap.String("amount", confirmed.NetAmount.String()))
	s.events.emit(ctx, tipEvent(event.TipConfirmed, event.SeverityInfo, confirmed, ""))
	return "processed", nil
}

// matchesTip checks the confirmed amount and currency when the processor
// supplies them.
func matchesTip(tip *model.Tip, evt *provider.WebhookEvent) error {
	if evt.Currency != "" && model.NormalizeCurrency(evt.Currency) != tip.Currency {
		return apperrors.NewAppError(apperrors.ErrInvalidArgument,
			fmt.Sprintf("tip %s: currency %s does not match %s", tip.Reference, evt.Currency, tip.Currency),
			domainErrors.ErrAmountMismatch)
	}
	if evt.Amount != 0 {
		expected := model.ToMinorUnits(tip.GrossAmount, tip.Currency)
		if evt.Amount != expected {
			return apperrors.NewAppError(apperrors.ErrInvalidArgument,
				fmt.Sprintf("tip %s: amount %d does not match %d", tip.Reference, evt.Amount, expected),
				domainErrors.ErrAmountMismatch)
		}
	}
	return nil
}

func tipDescription(tip *model.Tip) string {
	if tip.BuyerName != "" {
		return fmt.Sprintf("Tip from %s", tip.BuyerName)
	}
	return fmt.Sprintf("Tip %s", tip.Reference)
}

func (s *WebhookService) fail(ctx context.Context, evt *provider.WebhookEvent) (string, error) {
	tip, err := s.tips.GetByReference(ctx, evt.Reference)
	if err != nil {
		return "", lookupError(err, "tip", evt.Reference)
	}

	outcome := "processed"
	err = inTransaction(ctx, s.transactor, func(txCtx context.Context) error {
		locked, err := s.tips.LockByReference(txCtx, tip.Reference)
		if err != nil {
			return lookupError(err, "tip", tip.Reference)
		}
		if locked.Status == model.TipStatusConfirmed {
			outcome = "stale"
			tip = locked
			return nil
		}
		now := s.now().UTC()
		locked.Status = model.TipStatusFailed
		locked.FailedAt = &now
		locked.FailureReason = failureReason(evt)
		if err := s.tips.Update(txCtx, locked); err != nil {
			return internal("failed to mark tip failed", err)
		}
		tip = locked
		return nil
	})
	if err != nil {
		return "", err
	}

	if outcome == "stale" {
		s.logger.Warn("ignoring failure event for confirmed tip",
			zap.String("tip_reference", tip.Reference),
			zap.String("event", evt.Event))
		return outcome, nil
	}

	s.logger.Info("tip marked failed",
		zap.String("tip_reference", tip.Reference),
		zap.String("reason", tip.FailureReason))
	s.events.emit(ctx, tipEvent(event.TipFailed, event.SeverityWarning, tip, tip.FailureReason))
	return outcome, nil
}

func failureReason(evt *provider.WebhookEvent) string {
	if evt.Event == provider.EventPaymentCancelled {
		return "payment cancelled"
	}
	if evt.Status != "" {
		return "payment failed: " + evt.Status
	}
	return "payment failed"
}

func (s *WebhookService) record(ctx context.Context, key string, evt *provider.WebhookEvent) {
	payload := datatypes.JSON(evt.Raw)
	if !json.Valid(evt.Raw) {
		payload = nil
	}
	isNew, err := s.webhooks.Record(ctx, &model.WebhookEvent{
		Provider:   string(evt.Provider),
		EventKey:   key,
		EventType:  evt.Event,
		Reference:  evt.Reference,
		Payload:    payload,
		Status:     model.WebhookEventReceived,
		Deliveries: 1,
		ReceivedAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to record webhook event",
			zap.String("event_key", key),
			zap.Error(err))
		return
	}
	if !isNew {
		s.logger.Info("webhook event redelivered",
			zap.String("event_key", key),
			zap.String("event", evt.Event))
	}
}

func (s *WebhookService) markStatus(ctx context.Context, key string, status model.WebhookEventStatus, errMsg string) {
	if err := s.webhooks.MarkStatus(ctx, key, status, errMsg); err != nil {
		s.logger.Error("failed to update webhook event status",
			zap.String("event_key", key),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// reportFailure records a downstream failure and raises an operator alert.
func (s *WebhookService) reportFailure(ctx context.Context, key string, evt *provider.WebhookEvent, err error) {
	s.markStatus(ctx, key, model.WebhookEventFailed, err.Error())
	webhookEventsTotal.WithLabelValues(evt.Event, "failed").Inc()

	outcome := "processing_error"
	if errors.Is(err, domainErrors.ErrAmountMismatch) {
		outcome = "amount_mismatch"
	}
	apperrors.LogError(s.logger, err, "webhook processing failed",
		zap.String("event", evt.Event),
		zap.String("event_key", key),
		zap.String("tip_reference", evt.Reference))

	s.events.emit(ctx, event.Event{
		Type:       event.WebhookFailed,
		Severity:   event.SeverityCritical,
		EntityType: event.EntityWebhook,
		EntityID:   key,
		Status:     string(model.WebhookEventFailed),
		Message:    err.Error(),
		Data: map[string]interface{}{
			"event":     evt.Event,
			"reference": evt.Reference,
			"provider":  string(evt.Provider),
			"reason":    outcome,
		},
	})
}
