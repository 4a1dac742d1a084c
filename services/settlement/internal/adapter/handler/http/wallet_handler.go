package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/qraft-Inc/coffeetrace-sub002/pkg/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/dto"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/usecase"
)

type WalletHandler struct {
	ledger *usecase.LedgerService
	logger *zap.Logger
}

func NewWalletHandler(ledger *usecase.LedgerService, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{ledger: ledger, logger: logger}
}

// GetWallet
// GET /api/v1/wallets/:farmerId
func (h *WalletHandler) GetWallet(c echo.Context) error {
	farmerID, err := uuidParam(c, "farmerId")
	if err != nil {
		return err
	}
	if _, err := farmerAccess(c, farmerID); err != nil {
		return err
	}

	wallet, err := h.ledger.GetWallet(c.Request().Context(), farmerID)
	if err != nil {
		return err
	}
	return ok(c, wallet)
}

// ListTransactions
// GET /api/v1/wallets/:farmerId/transactions?page=&limit=&type=
func (h *WalletHandler) ListTransactions(c echo.Context) error {
	farmerID, err := uuidParam(c, "farmerId")
	if err != nil {
		return err
	}
	if _, err := farmerAccess(c, farmerID); err != nil {
		return err
	}

	var filters dto.TransactionFilters
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filters); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "invalid query parameters", err)
	}
	if c.Echo().Validator != nil {
		if err := c.Validate(&filters); err != nil {
			return err
		}
	}

	list, err := h.ledger.ListTransactions(c.Request().Context(), farmerID, filters)
	if err != nil {
		return err
	}
	return ok(c, list)
}

// VerifyWallet recomputes the balance from entries.
// GET /api/v1/wallets/:farmerId/verify (admin)
func (h *WalletHandler) VerifyWallet(c echo.Context) error {
	farmerID, err := uuidParam(c, "farmerId")
	if err != nil {
		return err
	}

	result, err := h.ledger.Verify(c.Request().Context(), farmerID)
	if err != nil {
		return err
	}
	return ok(c, result)
}

// ReverseTransaction posts an offsetting entry.
// POST /api/v1/wallets/transactions/:id/reverse (admin)
func (h *WalletHandler) ReverseTransaction(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.ReverseEntryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.ledger.Reverse(c.Request().Context(), id, req.Reason)
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	return c.JSON(status, echo.Map{
		"wallet":      res.Wallet,
		"transaction": res.Transaction,
		"duplicate":   res.Duplicate,
	})
}
