package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const sessionTTL = 5 * 24 * time.Hour

// SessionIssuer exchanges a provider ID token for a long-lived session cookie value
type SessionIssuer interface {
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
}

// AuthHandler handles browser session endpoints
type AuthHandler struct {
	sessions SessionIssuer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(sessions SessionIssuer) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// HandleLogin verifies the ID token from the Authorization header and sets the session cookie
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	if h.sessions == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Sessions not configured")
	}

	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
	}

	cookieValue, err := h.sessions.SessionCookie(c.Request().Context(), tokenString, sessionTTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	c.SetCookie(&http.Cookie{
		Name:     "session",
		Value:    cookieValue,
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.IsTLS(),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, map[string]string{
		"status": "success",
	})
}

// HandleLogout clears the session cookie
func (h *AuthHandler) HandleLogout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     "session",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})

	return c.JSON(http.StatusOK, map[string]string{
		"status": "logged out",
	})
}
