package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"broadcastmotion_payments/internal/middleware"
	"broadcastmotion_payments/internal/payments"
	"broadcastmotion_payments/internal/services"
)

// httpError maps service errors onto HTTP responses; anything unrecognised becomes a 500.
func httpError(err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return middleware.ValidationFailed("Invalid data", verr.Details)
	case errors.Is(err, services.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	case errors.Is(err, services.ErrPaymentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Payment not found")
	case errors.Is(err, services.ErrTemplateNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Template not found")
	case errors.Is(err, services.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrUnknownProvider):
		return echo.NewHTTPError(http.StatusNotFound, "Unknown payment provider")
	case errors.Is(err, payments.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid signature")
	case errors.Is(err, payments.ErrMalformedNotification):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
}

// bindError reports a request body that could not be decoded, naming the offending field when known.
func bindError(err error) error {
	detail := services.FieldError{Field: "body", Message: "must be a valid JSON object"}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		detail = services.FieldError{Field: typeErr.Field, Message: "must be a " + jsonKind(typeErr.Type.Kind().String())}
	}
	return middleware.ValidationFailed("Invalid request body", []services.FieldError{detail})
}

func jsonKind(kind string) string {
	switch kind {
	case "float32", "float64", "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return "number"
	case "bool":
		return "boolean"
	case "slice", "array":
		return "array"
	case "struct", "map":
		return "object"
	default:
		return "string"
	}
}
