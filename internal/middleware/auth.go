package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/services"
)

// Context keys set by RequireAuth
const (
	ContextUserID    = "userID"
	ContextUserType  = "userType"
	ContextUserEmail = "userEmail"
)

const sessionCookie = "session"

// RequireAuth returns a middleware that resolves the bearer token or session cookie to a stored user
func RequireAuth(verifier services.TokenVerifier, db *gorm.DB, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if verifier == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			token := bearerToken(c.Request())
			if token == "" {
				if cookie, err := c.Cookie(sessionCookie); err == nil {
					token = cookie.Value
				}
			}
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			ctx := c.Request().Context()
			identity, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.DebugContext(ctx, "Token rejected", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			user, err := findUser(db.WithContext(ctx), identity)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			if err != nil {
				return err
			}

			// Set user info in context for downstream handlers
			c.Set(ContextUserID, user.ID)
			c.Set(ContextUserType, string(user.UserType))
			c.Set(ContextUserEmail, user.Email)

			return next(c)
		}
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// findUser matches the identity by provider uid, then by email.
func findUser(db *gorm.DB, identity *services.Identity) (models.User, error) {
	var user models.User
	err := db.Where("firebase_uid = ?", identity.UID).First(&user).Error
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) || identity.Email == "" {
		return user, err
	}
	err = db.Where("email = ?", identity.Email).First(&user).Error
	return user, err
}
