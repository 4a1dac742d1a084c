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
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/pricing"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// PaymentServiceConfig holds the money rules the payment engine needs.
type PaymentServiceConfig struct {
	ApprovalThreshold decimal.Decimal
	DefaultCurrency   string
}

// PaymentService creates sale payments with quality pricing and settles them
// through the registered payment method handlers.
type PaymentService struct {
	payments   repository.PaymentTransactionRepository
	farmers    repository.FarmerDirectory
	lots       repository.LotDirectory
	quality    repository.QualityDirectory
	calculator *pricing.Calculator
	handlers   map[model.PaymentMethod]MethodHandler
	cfg        PaymentServiceConfig
	events     publisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewPaymentService(
	payments repository.PaymentTransactionRepository,
	farmers repository.FarmerDirectory,
	lots repository.LotDirectory,
	quality repository.QualityDirectory,
	calculator *pricing.Calculator,
	cfg PaymentServiceConfig,
	sink event.Sink,
	logger *zap.Logger,
	handlers ...MethodHandler,
) *PaymentService {
	registry := make(map[model.PaymentMethod]MethodHandler, len(handlers))
	for _, h := range handlers {
		registry[h.Method()] = h
	}
	cfg.DefaultCurrency = model.NormalizeCurrency(cfg.DefaultCurrency)
	return &PaymentService{
		payments:   payments,
		farmers:    farmers,
		lots:       lots,
		quality:    quality,
		calculator: calculator,
		handlers:   registry,
		cfg:        cfg,
		events:     newPublisher(sink, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Create prices a sale from the lot's recent quality assessments and the
// farmer's certifications, and stores it as pending.
func (s *PaymentService) Create(ctx context.Context, req dto.CreatePaymentRequest) (*model.PaymentTransaction, error) {
	txType := model.TransactionType(req.Type)
	if !txType.IsValid() {
		return nil, invalidArgument("unknown transaction type %q", req.Type)
	}
	method := model.PaymentMethod(req.PaymentMethod)
	if _, ok := s.handlers[method]; !ok {
		return nil, invalidArgument("unsupported payment method %q", req.PaymentMethod)
	}
	if req.BuyerID == uuid.Nil {
		return nil, invalidArgument("buyer_id is required")
	}

	base, quantity, unitPrice, err := basePrice(req)
	if err != nil {
		return nil, err
	}

	farmer, err := s.farmers.GetFarmer(ctx, req.FarmerID)
	if err != nil {
		return nil, lookupError(err, "farmer", req.FarmerID.String())
	}
	lot, err := s.lots.GetLot(ctx, req.LotID)
	if err != nil {
		return nil, lookupError(err, "lot", req.LotID.String())
	}
	if lot.FarmerID != farmer.ID {
		return nil, invalidArgument("lot %s does not belong to farmer %s", lot.ID, farmer.ID)
	}

	assessments, err := s.quality.RecentAssessments(ctx, lot.ID, pricing.MaxAssessments)
	if err != nil {
		return nil, internal("failed to load quality assessments", err)
	}

	signals := make([]pricing.Signal, len(assessments))
	for i, a := range assessments {
		signals[i] = pricing.Signal{AssessmentID: a.ID.String(), Score: a.Score, Grade: a.Grade}
	}
	premium := s.calculator.Calculate(pricing.Input{
		BasePrice:      base,
		Signals:        signals,
		Certifications: farmer.Certifications,
	})

	deductions := make([]model.Deduction, 0, len(req.Deductions))
	totalDeductions := decimal.Zero
	for _, d := range req.Deductions {
		if !d.Amount.IsPositive() {
			return nil, invalidArgument("deduction %q must have a positive amount", d.Reason)
		}
		amount := model.RoundMoney(d.Amount)
		deductions = append(deductions, model.Deduction{Reason: d.Reason, Amount: amount})
		totalDeductions = totalDeductions.Add(amount)
	}

	total := base.Add(premium.PremiumAmount).Add(premium.TotalBonus)
	net := total.Sub(totalDeductions)
	if net.IsNegative() {
		return nil, invalidArgument("deductions %s exceed total amount %s", totalDeductions.StringFixed(2), total.StringFixed(2))
	}

	currency := model.NormalizeCurrency(req.Currency)
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	payment := &model.PaymentTransaction{
		ID:                   uuid.New(),
		FarmerID:             farmer.ID,
		BuyerID:              req.BuyerID,
		LotID:                lot.ID,
		LotCode:              lot.Code,
		Type:                 txType,
		Currency:             currency,
		Quantity:             quantity,
		PricePerUnit:         unitPrice,
		BaseAmount:           base,
		QualityScore:         premium.Score,
		QualityGrade:         string(premium.Grade),
		PremiumMultiplier:    premium.Multiplier,
		PremiumAmount:        premium.PremiumAmount,
		PremiumBreakdown:     premium.Breakdown,
		CertificationBonuses: premium.CertificationBonuses,
		Deductions:           deductions,
		AssessmentIDs:        premium.AssessmentIDs,
		TotalAmount:          total,
		NetAmount:            net,
		PaymentMethod:        method,
		Status:               model.PaymentStatusPending,
		ApprovalRequired:     net.GreaterThan(s.cfg.ApprovalThreshold),
		Notes:                req.Notes,
		InitiatedAt:          s.now().UTC(),
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		s.logger.Error("failed to create payment transaction",
			zap.String("farmer_id", farmer.ID.String()),
			zap.Error(err))
		return nil, internal("failed to create payment transaction", err)
	}

	s.logger.Info("payment transaction created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("farmer_id", payment.FarmerID.String()),
		zap.String("net_amount", payment.NetAmount.String()),
		zap.Bool("approval_required", payment.ApprovalRequired))
	s.emitPayment(ctx, event.PaymentCreated, payment, "")

	return payment, nil
}

// basePrice returns the explicit base amount, or quantity x unit price.
func basePrice(req dto.CreatePaymentRequest) (base, quantity, unitPrice decimal.Decimal, err error) {
	quantity, unitPrice = decimal.Zero, decimal.Zero
	switch {
	case req.BaseAmount != nil:
		base = model.RoundMoney(*req.BaseAmount)
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		if req.PricePerUnit != nil {
			unitPrice = *req.PricePerUnit
		}
	case req.Quantity != nil && req.PricePerUnit != nil:
		quantity, unitPrice = *req.Quantity, *req.PricePerUnit
		if !quantity.IsPositive() || !unitPrice.IsPositive() {
			return base, quantity, unitPrice, invalidArgument("quantity and price_per_unit must be positive")
		}
		base = model.RoundMoney(quantity.Mul(unitPrice))
	default:
		return base, quantity, unitPrice, invalidArgument("base_amount or quantity and price_per_unit are required")
	}
	if !base.IsPositive() {
		return base, quantity, unitPrice, invalidArgument("base price must be positive")
	}
	return base, quantity, unitPrice, nil
}

// Approve records the approver of a pending payment.
func (s *PaymentService) Approve(ctx context.Context, id, approverID uuid.UUID) (*model.PaymentTransaction, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment", id.String())
	}
	if payment.Status != model.PaymentStatusPending {
		return nil, conflict("payment", id.String(), string(payment.Status), "approve")
	}

	now := s.now().UTC()
	payment.ApprovedBy = &approverID
	payment.ApprovedAt = &now

	ok, err := s.payments.UpdateIfStatus(ctx, payment, model.PaymentStatusPending)
	if err != nil {
		return nil, internal("failed to approve payment", err)
	}
	if !ok {
		return nil, s.currentStateConflict(ctx, id, "approve")
	}

	s.emitPayment(ctx, event.PaymentApproved, payment, "approved by "+approverID.String())
	return payment, nil
}

// Process settles a pending payment through its payment method handler.
func (s *PaymentService) Process(ctx context.Context, id uuid.UUID) (*model.PaymentTransaction, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment", id.String())
	}
	if payment.Status != model.PaymentStatusPending {
		return nil, conflict("payment", id.String(), string(payment.Status), "process")
	}
	if payment.ApprovalRequired && payment.ApprovedBy == nil {
		return nil, apperrors.NewAppError(apperrors.ErrApprovalRequired,
			fmt.Sprintf("payment %s requires approval before processing", id), nil)
	}
	handler, ok := s.handlers[payment.PaymentMethod]
	if !ok {
		return nil, invalidArgument("unsupported payment method %q", payment.PaymentMethod)
	}

	now := s.now().UTC()
	payment.Status = model.PaymentStatusProcessing
	payment.ProcessedAt = &now

	claimed, err := s.payments.UpdateIfStatus(ctx, payment, model.PaymentStatusPending)
	if err != nil {
		return nil, internal("failed to start payment processing", err)
	}
	if !claimed {
		return nil, s.currentStateConflict(ctx, id, "process")
	}
	// The claim is recorded; settle and persist the outcome even if the
	// caller goes away.
	ctx = context.WithoutCancel(ctx)
	s.emitPayment(ctx, event.PaymentProcessing, payment, "")

	result, settleErr := handler.Settle(ctx, payment)
	if settleErr != nil {
		if apperrors.HasCode(settleErr, apperrors.ErrTimeout) {
			return payment, s.flagForReconciliation(ctx, payment, settleErr)
		}
		return nil, s.fail(ctx, payment, settleErr)
	}

	done := s.now().UTC()
	payment.Status = model.PaymentStatusCompleted
	payment.CompletedAt = &done
	payment.ProcessorReference = result.ProcessorReference
	payment.WalletTransactionID = result.WalletTransactionID

	if _, err := s.payments.UpdateIfStatus(ctx, payment, model.PaymentStatusProcessing); err != nil {
		s.logger.Error("payment settled but completion was not saved",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err))
		return nil, internal("payment settled but completion was not saved", err)
	}

	s.logger.Info("payment transaction completed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("method", string(payment.PaymentMethod)))
	s.emitPayment(ctx, event.PaymentCompleted, payment, "")

	return payment, nil
}

// fail persists the failure with its reason before handing the error back.
func (s *PaymentService) fail(ctx context.Context, payment *model.PaymentTransaction, cause error) error {
	now := s.now().UTC()
	payment.Status = model.PaymentStatusFailed
	payment.FailedAt = &now
	payment.AppendNote(fmt.Sprintf("processing failed: %s", cause.Error()))

	if _, err := s.payments.UpdateIfStatus(ctx, payment, model.PaymentStatusProcessing); err != nil {
		s.logger.Error("failed to persist payment failure",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err))
	}

	apperrors.LogError(s.logger, cause, "payment processing failed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("method", string(payment.PaymentMethod)))
	s.emitPayment(ctx, event.PaymentFailed, payment, cause.Error())

	return apperrors.Wrap(cause, "payment processing failed")
}

// flagForReconciliation leaves the payment processing when the transfer may
// have gone through, so it is never marked failed and paid twice.
func (s *PaymentService) flagForReconciliation(ctx context.Context, payment *model.PaymentTransaction, cause error) error {
	payment.NeedsReconciliation = true
	payment.AppendNote(fmt.Sprintf("settlement outcome unknown: %s", cause.Error()))

	if _, err := s.payments.UpdateIfStatus(ctx, payment, model.PaymentStatusProcessing); err != nil {
		s.logger.Error("failed to flag payment for reconciliation",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err))
	}

	s.logger.Error("payment settlement outcome unknown, flagged for reconciliation",
		zap.String("payment_id", payment.ID.String()),
		zap.String("method", string(payment.PaymentMethod)),
		zap.Error(cause))
	s.emitPayment(ctx, event.PaymentNeedsReconciliation, payment, cause.Error())

	return apperrors.Wrap(cause, fmt.Sprintf("payment %s outcome unknown, flagged for reconciliation", payment.ID))
}

func (s *PaymentService) currentStateConflict(ctx context.Context, id uuid.UUID, action string) error {
	current, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return lookupError(err, "payment", id.String())
	}
	return conflict("payment", id.String(), string(current.Status), action)
}

func (s *PaymentService) Get(ctx context.Context, id uuid.UUID) (*model.PaymentTransaction, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment", id.String())
	}
	return payment, nil
}

func (s *PaymentService) ListByFarmer(ctx context.Context, farmerID uuid.UUID, page entity.PaginationParams) ([]model.PaymentTransaction, entity.PaginationMeta, error) {
	page.Normalize()
	payments, total, err := s.payments.ListByFarmer(ctx, farmerID, page.Offset(), page.Limit)
	if err != nil {
		return nil, entity.PaginationMeta{}, internal("failed to list payments", err)
	}
	return payments, entity.NewPaginationMeta(page, total), nil
}

func (s *PaymentService) emitPayment(ctx context.Context, evtType string, p *model.PaymentTransaction, msg string) {
	severity := event.SeverityInfo
	switch evtType {
	case event.PaymentFailed:
		severity = event.SeverityWarning
	case event.PaymentNeedsReconciliation:
		severity = event.SeverityCritical
	}
	s.events.emit(ctx, event.Event{
		Type:       evtType,
		Severity:   severity,
		EntityType: event.EntityPayment,
		EntityID:   p.ID.String(),
		FarmerID:   p.FarmerID.String(),
		Status:     string(p.Status),
		Message:    msg,
		Data: map[string]interface{}{
			"net_amount":           p.NetAmount.String(),
			"currency":             p.Currency,
			"payment_method":       string(p.PaymentMethod),
			"lot_id":               p.LotID.String(),
			"needs_reconciliation": p.NeedsReconciliation,
		},
	})
}
