package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorHandler renders errors as JSON; 5xx responses never expose the underlying error
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he := &echo.HTTPError{Code: http.StatusInternalServerError}
		if !errors.As(err, &he) {
			he = &echo.HTTPError{Code: http.StatusInternalServerError, Internal: err}
		}

		body := errorBody{Error: http.StatusText(he.Code)}
		switch msg := he.Message.(type) {
		case string:
			body.Error = msg
		case errorBody:
			body = msg
		case map[string]interface{}:
			if e, ok := msg["error"].(string); ok {
				body.Error = e
			}
			body.Details = msg["details"]
		}

		ctx := c.Request().Context()
		if he.Code >= http.StatusInternalServerError {
			cause := he.Internal
			if cause == nil {
				cause = err
			}
			logger.ErrorContext(ctx, "Request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", he.Code,
				"error", cause,
			)
			body = errorBody{Error: "Internal server error"}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(he.Code)
		} else {
			writeErr = c.JSON(he.Code, body)
		}
		if writeErr != nil {
			logger.ErrorContext(ctx, "Failed to write error response", "error", writeErr)
		}
	}
}

// ValidationFailed builds a 400 carrying per-field details.
func ValidationFailed(message string, details interface{}) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errorBody{Error: message, Details: details})
}
