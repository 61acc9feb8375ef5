package handlers

import (
	"github.com/labstack/echo/v4"

	"broadcastmotion_payments/internal/middleware"
	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/services"
)

// Helper to safely get string from context
func getStringFromContext(c echo.Context, key string) string {
	val := c.Get(key)
	if val == nil {
		return ""
	}
	strVal, ok := val.(string)
	if !ok {
		return ""
	}
	return strVal
}

// actorFromContext describes the caller resolved by the auth middleware.
func actorFromContext(c echo.Context) services.Actor {
	return services.Actor{
		UserID:    getStringFromContext(c, middleware.ContextUserID),
		Admin:     getStringFromContext(c, middleware.ContextUserType) == string(models.UserTypeAdmin),
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}
