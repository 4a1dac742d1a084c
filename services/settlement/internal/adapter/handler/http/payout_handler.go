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

type PayoutHandler struct {
	payouts *usecase.PayoutService
	logger  *zap.Logger
}

func NewPayoutHandler(payouts *usecase.PayoutService, logger *zap.Logger) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, logger: logger}
}

// RequestPayout creates and immediately executes a withdrawal. Farmers
// withdraw from their own wallet only.
// POST /api/v1/payouts
func (h *PayoutHandler) RequestPayout(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req dto.PayoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if user.Role == auth.RoleFarmer && req.FarmerID == uuid.Nil && user.FarmerID != nil {
		req.FarmerID = *user.FarmerID
	}
	if !user.CanAccessFarmer(req.FarmerID) {
		return forbidden()
	}

	payout, err := h.payouts.RequestAndExecute(c.Request().Context(), req)
	if err != nil {
		if payout != nil {
			return errorWithEntity(c, err, "payout", payout)
		}
		return err
	}

	h.logger.Info("Payout executed",
		zap.String("payout_id", payout.ID.String()),
		zap.String("farmer_id", payout.FarmerID.String()),
		zap.String("status", string(payout.Status)))

	return c.JSON(http.StatusCreated, payout)
}

// GetPayout
// GET /api/v1/payouts/:id
func (h *PayoutHandler) GetPayout(c echo.Context) error {
	payout, err := h.authorizedPayout(c)
	if err != nil {
		return err
	}
	return ok(c, payout)
}

// ExecutePayout runs a pending payout created earlier.
// POST /api/v1/payouts/:id/execute
func (h *PayoutHandler) ExecutePayout(c echo.Context) error {
	payout, err := h.authorizedPayout(c)
	if err != nil {
		return err
	}

	executed, err := h.payouts.Execute(c.Request().Context(), payout.ID)
	if err != nil {
		if executed != nil {
			return errorWithEntity(c, err, "payout", executed)
		}
		return err
	}
	return ok(c, executed)
}

// ReconcilePayout asks the rail for the final outcome.
// POST /api/v1/payouts/:id/reconcile (admin)
func (h *PayoutHandler) ReconcilePayout(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	payout, err := h.payouts.Reconcile(c.Request().Context(), id)
	if err != nil {
		if payout != nil {
			return errorWithEntity(c, err, "payout", payout)
		}
		return err
	}
	return ok(c, payout)
}

// ListFarmerPayouts
// GET /api/v1/farmers/:farmerId/payouts
func (h *PayoutHandler) ListFarmerPayouts(c echo.Context) error {
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

	payouts, meta, err := h.payouts.ListByFarmer(c.Request().Context(), farmerID, page)
	if err != nil {
		return err
	}
	return ok(c, listResponse{Data: payouts, Pagination: meta})
}

func (h *PayoutHandler) authorizedPayout(c echo.Context) (*model.Payout, error) {
	user, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return nil, err
	}

	payout, err := h.payouts.Get(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if !user.CanAccessFarmer(payout.FarmerID) {
		return nil, apperrors.NewAppError(apperrors.ErrUnauthorized, "not allowed to access this payout", nil)
	}
	return payout, nil
}
