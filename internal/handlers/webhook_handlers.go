package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"broadcastmotion_payments/internal/services"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	webhooks *services.WebhookService
}

func NewWebhookHandler(webhooks *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Receive handles POST /webhooks/:provider
func (h *WebhookHandler) Receive(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read body")
	}

	outcome, err := h.webhooks.Handle(c.Request().Context(), c.Param("provider"), c.Request().Header, body)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, outcome)
}
