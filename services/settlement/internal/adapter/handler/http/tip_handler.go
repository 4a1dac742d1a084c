package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/dto"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/usecase"
)

type TipHandler struct {
	tips   *usecase.TipService
	logger *zap.Logger
}

func NewTipHandler(tips *usecase.TipService, logger *zap.Logger) *TipHandler {
	return &TipHandler{tips: tips, logger: logger}
}

// CreateTip starts a hosted checkout. Tipping needs no account.
// POST /api/v1/tips
func (h *TipHandler) CreateTip(c echo.Context) error {
	var req dto.CreateTipRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tip, err := h.tips.CreateCheckout(c.Request().Context(), req)
	if err != nil {
		if tip != nil {
			return errorWithEntity(c, err, "tip", usecase.ToTipResponse(tip))
		}
		return err
	}

	return c.JSON(http.StatusCreated, usecase.ToTipResponse(tip))
}

// GetTip is the status poll for the buyer's return page.
// GET /api/v1/tips/:reference
func (h *TipHandler) GetTip(c echo.Context) error {
	tip, err := h.tips.GetByReference(c.Request().Context(), c.Param("reference"))
	if err != nil {
		return err
	}
	return ok(c, usecase.ToTipResponse(tip))
}
