package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/qraft-Inc/coffeetrace-sub002/pkg/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/dto"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/entity"
	domainErrors "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// DestinationCipher encrypts payout destinations at rest.
type DestinationCipher interface {
	Encrypt(plaintext string) (ciphertext, iv string, err error)
	Decrypt(ciphertext, iv string) (plaintext string, err error)
}

type PayoutServiceConfig struct {
	MinPayout       decimal.Decimal
	DefaultCurrency string
	RailTimeout     time.Duration
}

// PayoutService moves wallet balance out through the payout rail. The ledger
// is debited only after the rail accepts the transfer.
type PayoutService struct {
	payouts repository.PayoutRepository
	farmers repository.FarmerDirectory
	ledger  *LedgerService
	rail    provider.PayoutRail
	cipher  DestinationCipher
	cfg     PayoutServiceConfig
	events  publisher
	logger  *zap.Logger
	now     func() time.Time
}

func NewPayoutService(
	payouts repository.PayoutRepository,
	farmers repository.FarmerDirectory,
	ledger *LedgerService,
	rail provider.PayoutRail,
	cipher DestinationCipher,
	cfg PayoutServiceConfig,
	sink event.Sink,
	logger *zap.Logger,
) *PayoutService {
	if cfg.RailTimeout <= 0 {
		cfg.RailTimeout = 30 * time.Second
	}
	cfg.DefaultCurrency = model.NormalizeCurrency(cfg.DefaultCurrency)
	return &PayoutService{
		payouts: payouts,
		farmers: farmers,
		ledger:  ledger,
		rail:    rail,
		cipher:  cipher,
		cfg:     cfg,
		events:  newPublisher(sink, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// Request validates a withdrawal against the current balance and stores it
// as pending. Nothing is debited yet.
func (s *PayoutService) Request(ctx context.Context, req dto.PayoutRequest) (*model.Payout, error) {
	if req.FarmerID == uuid.Nil {
		return nil, invalidArgument("farmer_id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, invalidArgument("amount must be positive")
	}
	if !req.Amount.Equal(model.RoundMoney(req.Amount)) {
		return nil, invalidArgument("amount has more than two decimal places")
	}
	if req.Amount.LessThan(s.cfg.MinPayout) {
		return nil, invalidArgument("amount %s is below the minimum payout of %s", req.Amount.StringFixed(2), s.cfg.MinPayout.StringFixed(2))
	}

	farmer, err := s.farmers.GetFarmer(ctx, req.FarmerID)
	if err != nil {
		return nil, lookupError(err, "farmer", req.FarmerID.String())
	}

	wallet, err := s.ledger.GetWallet(ctx, farmer.ID)
	if err != nil {
		return nil, err
	}
	currency := model.NormalizeCurrency(req.Currency)
	if currency == "" {
		currency = wallet.Currency
	}
	if currency != wallet.Currency {
		return nil, invalidArgument("currency %s does not match wallet currency %s", currency, wallet.Currency)
	}
	if req.Amount.GreaterThan(wallet.Balance) {
		insufficient := domainErrors.NewInsufficientBalanceError(req.Amount, wallet.Balance)
		return nil, apperrors.NewAppError(apperrors.ErrInsufficientBalance, insufficient.Error(), insufficient)
	}

	destType := model.DestinationType(req.DestinationType)
	if destType == "" {
		destType = model.DestinationMobileMoney
	}
	destination := req.DestinationAccount
	if destination == "" && destType == model.DestinationMobileMoney {
		destination = farmer.Phone
	}
	if destination == "" {
		return nil, invalidArgument("no payout destination: provide destination_account or add a phone number to the farmer profile")
	}

	cipherText, iv, err := s.cipher.Encrypt(destination)
	if err != nil {
		return nil, internal("failed to encrypt payout destination", err)
	}
	reference, err := newReference("PO-")
	if err != nil {
		return nil, internal("failed to generate payout reference", err)
	}

	payout := &model.Payout{
		ID:                uuid.New(),
		Reference:         reference,
		FarmerID:          farmer.ID,
		Amount:            req.Amount,
		Currency:          currency,
		DestinationType:   destType,
		DestinationCipher: cipherText,
		DestinationIV:     iv,
		DestinationMasked: model.MaskAccount(destination),
		Description:       req.Description,
		Status:            model.PayoutStatusPending,
		InitiatedAt:       s.now().UTC(),
	}
	if err := s.payouts.Create(ctx, payout); err != nil {
		s.logger.Error("failed to create payout",
			zap.String("farmer_id", farmer.ID.String()),
			zap.Error(err))
		return nil, internal("failed to create payout", err)
	}

	s.logger.Info("payout requested",
		zap.String("payout_id", payout.ID.String()),
		zap.String("farmer_id", payout.FarmerID.String()),
		zap.String("amount", payout.Amount.String()))
	s.emitPayout(ctx, event.PayoutRequested, event.SeverityInfo, payout, "")

	return payout, nil
}

// RequestAndExecute is Request followed by Execute.
func (s *PayoutService) RequestAndExecute(ctx context.Context, req dto.PayoutRequest) (*model.Payout, error) {
	payout, err := s.Request(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, payout.ID)
}

// Execute claims a pending payout and sends it to the rail. A second attempt
// on the same payout gets a conflict.
func (s *PayoutService) Execute(ctx context.Context, id uuid.UUID) (*model.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payout", id.String())
	}
	if payout.Status != model.PayoutStatusPending {
		return payout, conflict("payout", id.String(), string(payout.Status), "execute")
	}

	payout.Status = model.PayoutStatusProcessing
	claimed, err := s.payouts.UpdateIfStatus(ctx, payout, model.PayoutStatusPending)
	if err != nil {
		return nil, internal("failed to claim payout", err)
	}
	if !claimed {
		current, err := s.payouts.GetByID(ctx, id)
		if err != nil {
			return nil, lookupError(err, "payout", id.String())
		}
		return current, conflict("payout", id.String(), string(current.Status), "execute")
	}
	// Once claimed, the payout must reach a recorded outcome even if the
	// caller goes away. Only the rail call itself is bounded.
	ctx = context.WithoutCancel(ctx)
	s.emitPayout(ctx, event.PayoutProcessing, event.SeverityInfo, payout, "")

	wallet, err := s.ledger.GetWallet(ctx, payout.FarmerID)
	if err != nil {
		return payout, s.failPayout(ctx, payout, "failed to read wallet balance", err)
	}
	if payout.Amount.GreaterThan(wallet.Balance) {
		insufficient := domainErrors.NewInsufficientBalanceError(payout.Amount, wallet.Balance)
		payoutOutcomesTotal.WithLabelValues("insufficient_balance").Inc()
		return payout, s.failPayout(ctx, payout, insufficient.Error(),
			apperrors.NewAppError(apperrors.ErrInsufficientBalance, insufficient.Error(), insufficient))
	}

	destination, err := s.cipher.Decrypt(payout.DestinationCipher, payout.DestinationIV)
	if err != nil {
		return payout, s.failPayout(ctx, payout, "failed to decrypt payout destination",
			internal("failed to decrypt payout destination", err))
	}

	railCtx, cancel := context.WithTimeout(ctx, s.cfg.RailTimeout)
	res, err := s.rail.SendPayout(railCtx, &provider.PayoutRequest{
		FarmerID:          payout.FarmerID.String(),
		Amount:            payout.Amount,
		Currency:          payout.Currency,
		DestinationMSISDN: destination,
		Reference:         payout.Reference,
		Description:       payoutDescription(payout),
	})
	cancel()
	if err != nil {
		payoutOutcomesTotal.WithLabelValues("outcome_unknown").Inc()
		payout.NeedsReconciliation = true
		payout.FailureReason = err.Error()
		s.save(ctx, payout)
		s.alert(ctx, payout, fmt.Sprintf("payout rail did not answer: %v", err))
		return payout, apperrors.NewAppError(apperrors.ErrTimeout,
			fmt.Sprintf("payout %s outcome unknown, flagged for reconciliation", payout.Reference), err)
	}

	now := s.now().UTC()
	payout.RailStatus = string(res.Status)
	if !res.Accepted() {
		payoutOutcomesTotal.WithLabelValues("rejected").Inc()
		reason := res.Error
		if reason == "" {
			reason = "rejected by payout rail"
		}
		return payout, s.failPayout(ctx, payout, reason,
			apperrors.NewAppError(apperrors.ErrExternalDependency, "payout rejected: "+reason,
				&provider.ProviderError{Code: string(res.Status), Message: "payout rejected", Details: res.Error}))
	}

	payout.ProcessorReference = res.PSPReference
	payout.ExecutedAt = &now

	if err := s.debit(ctx, payout); err != nil {
		payoutOutcomesTotal.WithLabelValues("debit_failed").Inc()
		payout.NeedsReconciliation = true
		payout.FailureReason = err.Error()
		s.save(ctx, payout)
		s.alert(ctx, payout, fmt.Sprintf("payout sent but ledger debit failed: %v", err))
		return payout, err
	}

	if res.Status == provider.RailStatusCompleted {
		payout.Status = model.PayoutStatusCompleted
		payout.CompletedAt = &now
	}
	s.save(ctx, payout)

	payoutOutcomesTotal.WithLabelValues(string(res.Status)).Inc()
	s.logger.Info("payout executed",
		zap.String("payout_id", payout.ID.String()),
		zap.String("farmer_id", payout.FarmerID.String()),
		zap.String("status", string(payout.Status)),
		zap.String("psp_reference", payout.ProcessorReference))
	if payout.Status == model.PayoutStatusCompleted {
		s.emitPayout(ctx, event.PayoutCompleted, event.SeverityInfo, payout, "")
	}

	return payout, nil
}

// Reconcile asks the rail for the final status of a payout whose outcome
// was left open and settles the ledger to match.
func (s *PayoutService) Reconcile(ctx context.Context, id uuid.UUID) (*model.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payout", id.String())
	}
	if payout.Status == model.PayoutStatusPending {
		return payout, conflict("payout", id.String(), string(payout.Status), "reconcile")
	}
	if payout.Status.IsTerminal() && !payout.NeedsReconciliation {
		return payout, nil
	}

	expected := payout.Status
	railCtx, cancel := context.WithTimeout(ctx, s.cfg.RailTimeout)
	res, err := s.rail.PayoutStatus(railCtx, payout.Reference)
	cancel()
	if err != nil {
		payout.RetryCount++
		s.saveFrom(ctx, payout, expected)
		s.logger.Warn("payout status lookup failed",
			zap.String("payout_id", payout.ID.String()),
			zap.Int("retry_count", payout.RetryCount),
			zap.Error(err))
		return payout, externalError("payout status lookup failed", err)
	}

	now := s.now().UTC()
	payout.RailStatus = string(res.Status)
	if payout.ProcessorReference == "" {
		payout.ProcessorReference = res.PSPReference
	}

	switch res.Status {
	case provider.RailStatusCompleted:
		if !payout.Debited {
			if err := s.debit(ctx, payout); err != nil {
				payout.RetryCount++
				payout.FailureReason = err.Error()
				s.saveFrom(ctx, payout, expected)
				s.alert(ctx, payout, fmt.Sprintf("payout completed at rail but ledger debit failed: %v", err))
				return payout, err
			}
		}
		payout.Status = model.PayoutStatusCompleted
		payout.CompletedAt = &now
		payout.NeedsReconciliation = false
		payout.FailureReason = ""
		s.saveFrom(ctx, payout, expected)
		s.emitPayout(ctx, event.PayoutCompleted, event.SeverityInfo, payout, "settled by reconciliation")

	case provider.RailStatusFailed, provider.RailStatusNotFound:
		if payout.Debited {
			if res.Status == provider.RailStatusNotFound {
				payout.RetryCount++
				s.saveFrom(ctx, payout, expected)
				s.alert(ctx, payout, "payout was debited but the rail has no record of it")
				return payout, nil
			}
			if err := s.refund(ctx, payout); err != nil {
				payout.RetryCount++
				s.saveFrom(ctx, payout, expected)
				s.alert(ctx, payout, fmt.Sprintf("payout failed at rail but refund failed: %v", err))
				return payout, err
			}
		}
		reason := res.Error
		if reason == "" {
			reason = "payout " + string(res.Status) + " at rail"
		}
		payout.Status = model.PayoutStatusFailed
		payout.FailedAt = &now
		payout.FailureReason = reason
		payout.NeedsReconciliation = false
		s.saveFrom(ctx, payout, expected)
		s.emitPayout(ctx, event.PayoutFailed, event.SeverityWarning, payout, reason)

	default:
		payout.RetryCount++
		s.saveFrom(ctx, payout, expected)
	}

	s.logger.Info("payout reconciled",
		zap.String("payout_id", payout.ID.String()),
		zap.String("rail_status", payout.RailStatus),
		zap.String("status", string(payout.Status)))
	return payout, nil
}

// ReconcileSummary counts the outcomes of a reconciliation sweep.
type ReconcileSummary struct {
	Checked   int
	Completed int
	Failed    int
	Open      int
	Errors    int
}

// ReconcileUnsettled reconciles up to limit payouts that are still
// processing or flagged for reconciliation.
func (s *PayoutService) ReconcileUnsettled(ctx context.Context, limit int) (ReconcileSummary, error) {
	var summary ReconcileSummary
	payouts, err := s.payouts.ListUnsettled(ctx, limit)
	if err != nil {
		return summary, internal("failed to list unsettled payouts", err)
	}
	for _, p := range payouts {
		summary.Checked++
		res, err := s.Reconcile(ctx, p.ID)
		if err != nil {
			summary.Errors++
			apperrors.LogError(s.logger, err, "payout reconciliation failed",
				zap.String("payout_id", p.ID.String()))
			continue
		}
		switch {
		case res.Status == model.PayoutStatusCompleted && !res.NeedsReconciliation:
			summary.Completed++
		case res.Status == model.PayoutStatusFailed && !res.NeedsReconciliation:
			summary.Failed++
		default:
			summary.Open++
		}
	}
	return summary, nil
}

func (s *PayoutService) Get(ctx context.Context, id uuid.UUID) (*model.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payout", id.String())
	}
	return payout, nil
}

func (s *PayoutService) ListByFarmer(ctx context.Context, farmerID uuid.UUID, page entity.PaginationParams) ([]model.Payout, entity.PaginationMeta, error) {
	page.Normalize()
	payouts, total, err := s.payouts.ListByFarmer(ctx, farmerID, page.Offset(), page.Limit)
	if err != nil {
		return nil, entity.PaginationMeta{}, internal("failed to list payouts", err)
	}
	return payouts, entity.NewPaginationMeta(page, total), nil
}

func (s *PayoutService) debit(ctx context.Context, payout *model.Payout) error {
	res, err := s.ledger.Debit(ctx, LedgerInput{
		FarmerID:    payout.FarmerID,
		Amount:      payout.Amount,
		Currency:    payout.Currency,
		Description: payoutDescription(payout),
		Reference:   "payout:" + payout.ID.String(),
		SourceType:  model.SourceTypePayout,
		SourceID:    &payout.ID,
	})
	if err != nil {
		return err
	}
	txID := res.Transaction.ID
	walletID := res.Wallet.ID
	payout.Debited = true
	payout.WalletTransactionID = &txID
	payout.WalletID = &walletID
	return nil
}

// refund credits back a debited payout that the rail reports as failed.
func (s *PayoutService) refund(ctx context.Context, payout *model.Payout) error {
	_, err := s.ledger.Credit(ctx, LedgerInput{
		FarmerID:    payout.FarmerID,
		Amount:      payout.Amount,
		Currency:    payout.Currency,
		Description: fmt.Sprintf("Reversal of failed payout %s", payout.Reference),
		Reference:   "payout-reversal:" + payout.ID.String(),
		SourceType:  model.SourceTypeReversal,
		SourceID:    &payout.ID,
	})
	if err != nil {
		return err
	}
	payout.Debited = false
	return nil
}

// failPayout moves a processing payout to failed and returns cause.
func (s *PayoutService) failPayout(ctx context.Context, payout *model.Payout, reason string, cause error) error {
	now := s.now().UTC()
	payout.Status = model.PayoutStatusFailed
	payout.FailedAt = &now
	payout.FailureReason = reason
	s.saveFrom(ctx, payout, model.PayoutStatusProcessing)

	s.logger.Warn("payout failed",
		zap.String("payout_id", payout.ID.String()),
		zap.String("farmer_id", payout.FarmerID.String()),
		zap.String("reason", reason))
	s.emitPayout(ctx, event.PayoutFailed, event.SeverityWarning, payout, reason)
	return cause
}

func (s *PayoutService) save(ctx context.Context, payout *model.Payout) {
	s.saveFrom(ctx, payout, model.PayoutStatusProcessing)
}

func (s *PayoutService) saveFrom(ctx context.Context, payout *model.Payout, expected model.PayoutStatus) {
	ok, err := s.payouts.UpdateIfStatus(ctx, payout, expected)
	if err != nil || !ok {
		s.logger.Error("failed to persist payout state",
			zap.String("payout_id", payout.ID.String()),
			zap.String("status", string(payout.Status)),
			zap.Bool("updated", ok),
			zap.Error(err))
	}
}

func (s *PayoutService) alert(ctx context.Context, payout *model.Payout, msg string) {
	s.logger.Error("payout needs reconciliation",
		zap.String("payout_id", payout.ID.String()),
		zap.String("farmer_id", payout.FarmerID.String()),
		zap.String("reason", msg))
	s.emitPayout(ctx, event.PayoutNeedsReconciliation, event.SeverityCritical, payout, msg)
}

func (s *PayoutService) emitPayout(ctx context.Context, evtType string, severity event.Severity, p *model.Payout, msg string) {
	s.events.emit(ctx, event.Event{
		Type:       evtType,
		Severity:   severity,
		EntityType: event.EntityPayout,
		EntityID:   p.ID.String(),
		FarmerID:   p.FarmerID.String(),
		Status:     string(p.Status),
		Message:    msg,
		Data: map[string]interface{}{
			"reference":            p.Reference,
			"amount":               p.Amount.String(),
			"currency":             p.Currency,
			"destination":          p.DestinationMasked,
			"psp_reference":        p.ProcessorReference,
			"needs_reconciliation": p.NeedsReconciliation,
		},
	})
}

func payoutDescription(p *model.Payout) string {
	if p.Description != "" {
		return p.Description
	}
	return "Payout " + p.Reference
}
