package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/services"
)

type PaymentHandler struct {
	payments   *services.PaymentService
	queries    *services.PaymentQueryService
	reconciler *services.ReconciliationService
}

func NewPaymentHandler(payments *services.PaymentService, queries *services.PaymentQueryService, reconciler *services.ReconciliationService) *PaymentHandler {
	return &PaymentHandler{payments: payments, queries: queries, reconciler: reconciler}
}

// CreatePayment handles POST /payments and returns the payment plus method-specific fields
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var req services.CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}

	result, err := h.payments.CreatePayment(c.Request().Context(), actorFromContext(c), req)
	if err != nil {
		return httpError(err)
	}

	body := make(map[string]interface{}, len(result.Response)+1)
	for k, v := range result.Response {
		body[k] = v
	}
	body["payment"] = result.Payment

	return c.JSON(http.StatusCreated, body)
}

// ListPayments handles GET /payments?page&limit&status&method for the caller's own payments
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	var query services.ListPaymentsQuery
	err := echo.QueryParamsBinder(c).
		Int("page", &query.Page).
		Int("limit", &query.Limit).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "page and limit must be integers")
	}
	query.Status = models.PaymentStatus(strings.ToUpper(c.QueryParam("status")))
	query.Method = models.PaymentMethod(strings.ToUpper(c.QueryParam("method")))

	page, err := h.queries.ListForUser(c.Request().Context(), actorFromContext(c), query)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetPayment handles GET /payments/:id
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	payment, err := h.queries.GetByID(c.Request().Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"payment": payment,
	})
}

// UpdatePaymentStatus handles PATCH /payments/:id for administrators
func (h *PaymentHandler) UpdatePaymentStatus(c echo.Context) error {
	var req services.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}

	payment, err := h.queries.UpdateStatus(c.Request().Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"payment": payment,
	})
}

// CheckStatus handles GET /payments/:id/status; reading reconciles the payment first
func (h *PaymentHandler) CheckStatus(c echo.Context) error {
	view, err := h.reconciler.Reconcile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}
