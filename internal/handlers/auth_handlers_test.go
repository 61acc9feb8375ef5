package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"broadcastmotion_payments/internal/middleware"
)

type fakeSessions struct{}

func (fakeSessions) SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	if idToken != "good-id-token" {
		return "", errors.New("token rejected")
	}
	return "session-" + idToken, nil
}

func TestSessionLogin(t *testing.T) {
	tests := []struct {
		name       string
		sessions   SessionIssuer
		header     string
		wantStatus int
		wantCookie string
	}{
		{name: "issues cookie", sessions: fakeSessions{}, header: "Bearer good-id-token", wantStatus: http.StatusOK, wantCookie: "session-good-id-token"},
		{name: "rejected token", sessions: fakeSessions{}, header: "Bearer stolen", wantStatus: http.StatusUnauthorized},
		{name: "missing header", sessions: fakeSessions{}, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", sessions: fakeSessions{}, header: "Token good-id-token", wantStatus: http.StatusUnauthorized},
		{name: "not configured", header: "Bearer good-id-token", wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = middleware.ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
			h := NewAuthHandler(tt.sessions)
			e.POST("/auth/login", h.HandleLogin)

			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			cookies := rec.Result().Cookies()
			if tt.wantCookie == "" {
				assert.Empty(t, cookies)
				return
			}
			require.Len(t, cookies, 1)
			assert.Equal(t, "session", cookies[0].Name)
			assert.Equal(t, tt.wantCookie, cookies[0].Value)
			assert.True(t, cookies[0].HttpOnly)
		})
	}
}

func TestSessionLogout(t *testing.T) {
	e := echo.New()
	e.POST("/auth/logout", NewAuthHandler(nil).HandleLogout)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}
