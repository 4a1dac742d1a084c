package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/qraft-Inc/coffeetrace-sub002/pkg/errors"
	domainErrors "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/usecase"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	webhooks *usecase.WebhookService
	provider provider.CheckoutProvider
	logger   *zap.Logger
}

func NewWebhookHandler(webhooks *usecase.WebhookService, checkout provider.CheckoutProvider, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, provider: checkout, logger: logger}
}

// HandleCheckout ingests processor callbacks. Once a payload is authenticated
// the processor gets 200 for every outcome except an unknown reference, so
// it does not redeliver on our internal failures.
// POST /webhooks/checkout
func (h *WebhookHandler) HandleCheckout(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		h.logger.Error("Error reading webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, apperrors.ErrorBody{Error: "error reading request body", Code: apperrors.ErrInvalidArgument})
	}
	if len(body) > maxWebhookBody {
		return c.JSON(http.StatusRequestEntityTooLarge, apperrors.ErrorBody{Error: "payload too large", Code: apperrors.ErrInvalidArgument})
	}

	evt, err := h.provider.ParseWebhook(body, c.Request().Header)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidSignature), errors.Is(err, domainErrors.ErrWebhookSecretMissing):
			h.logger.Warn("Webhook authentication failed",
				zap.String("provider", string(h.provider.Name())),
				zap.String("ip", c.RealIP()),
				zap.Error(err))
			return c.JSON(http.StatusUnauthorized, apperrors.ErrorBody{Error: "invalid signature", Code: apperrors.ErrUnauthenticated})
		default:
			h.logger.Warn("Malformed webhook payload",
				zap.String("provider", string(h.provider.Name())),
				zap.Error(err))
			return c.JSON(http.StatusBadRequest, apperrors.ErrorBody{Error: "malformed payload", Code: apperrors.ErrInvalidArgument})
		}
	}

	h.logger.Info("Webhook event received",
		zap.String("event", evt.Event),
		zap.String("event_id", evt.ID),
		zap.String("tip_reference", evt.Reference))

	if err := h.webhooks.Handle(c.Request().Context(), evt); err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			return c.JSON(http.StatusNotFound, apperrors.ErrorBody{Error: "unknown reference", Code: apperrors.ErrNotFound})
		}
		// Recorded and alerted by the service.
		return c.JSON(http.StatusOK, echo.Map{"received": true, "processed": false})
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true, "processed": true})
}
