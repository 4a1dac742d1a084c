package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/qraft-Inc/coffeetrace-sub002/pkg/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/dto"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/middleware/auth"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/usecase"
)

type PaymentHandler struct {
	payments *usecase.PaymentService
	logger   *zap.Logger
}

func NewPaymentHandler(payments *usecase.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// CreatePayment records a sale payment. Buyers pay as themselves; admins
// must name the buyer.
// POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req dto.CreatePaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	switch user.Role {
	case auth.RoleBuyer:
		req.BuyerID = user.UserID
	case auth.RoleAdmin:
		if req.BuyerID == uuid.Nil {
			return apperrors.NewAppError(apperrors.ErrInvalidArgument, "buyer_id is required", nil)
		}
	default:
		return apperrors.NewAppError(apperrors.ErrUnauthorized, "only buyers and admins create payments", nil)
	}

	payment, err := h.payments.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}

	h.logger.Info("Payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("farmer_id", payment.FarmerID.String()),
		zap.String("amount", payment.NetAmount.String()))

	return c.JSON(http.StatusCreated, payment)
}

// GetPayment
// GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	payment, err := h.authorizedPayment(c)
	if err != nil {
		return err
	}
	return ok(c, payment)
}

// ApprovePayment
// POST /api/v1/payments/:id/approve (admin)
func (h *PaymentHandler) ApprovePayment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.payments.Approve(c.Request().Context(), id, user.UserID)
	if err != nil {
		return err
	}
	return ok(c, payment)
}

// ProcessPayment settles through the payment's method.
// POST /api/v1/payments/:id/process
func (h *PaymentHandler) ProcessPayment(c echo.Context) error {
	payment, err := h.authorizedPayment(c)
	if err != nil {
		return err
	}
	user, _ := currentUser(c)
	if user.Role == auth.RoleFarmer {
		return apperrors.NewAppError(apperrors.ErrUnauthorized, "farmers cannot process payments", nil)
	}

	processed, err := h.payments.Process(c.Request().Context(), payment.ID)
	if err != nil {
		if processed != nil {
			return errorWithEntity(c, err, "payment", processed)
		}
		return err
	}
	return ok(c, processed)
}

// ListFarmerPayments
// GET /api/v1/farmers/:farmerId/payments
func (h *PaymentHandler) ListFarmerPayments(c echo.Context) error {
	farmerID, err := uuidParam(c, "farmerId")
	if err != nil {
		return err
	}
	if _, err := farmerAccess(c, farmerID); err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}

	payments, meta, err := h.payments.ListByFarmer(c.Request().Context(), farmerID, page)
	if err != nil {
		return err
	}
	return ok(c, listResponse{Data: payments, Pagination: meta})
}

// authorizedPayment loads the :id payment if the caller is its farmer, its
// buyer or an admin.
func (h *PaymentHandler) authorizedPayment(c echo.Context) (*model.PaymentTransaction, error) {
	user, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return nil, err
	}

	payment, err := h.payments.Get(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() || user.CanAccessFarmer(payment.FarmerID) ||
		(user.Role == auth.RoleBuyer && payment.BuyerID == user.UserID) {
		return payment, nil
	}
	return nil, apperrors.NewAppError(apperrors.ErrUnauthorized, "not allowed to access this payment", nil)
}
