package middleware

import (
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

	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/services"
	"broadcastmotion_payments/internal/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRequireAuth(t *testing.T) {
	db := testutil.NewDB(t)
	verifier := services.NewJWTVerifier("mw-secret")
	admin := testutil.CreateUser(t, db, models.UserTypeAdmin)

	issue := func(identity services.Identity) string {
		token, err := verifier.Issue(identity, time.Hour)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		wantStatus int
	}{
		{name: "bearer by uid", prepare: func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Bearer "+issue(services.Identity{UID: *admin.FirebaseUID}))
		}, wantStatus: http.StatusOK},
		{name: "session cookie by email", prepare: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "session", Value: issue(services.Identity{UID: "other-uid", Email: admin.Email})})
		}, wantStatus: http.StatusOK},
		{name: "unknown user", prepare: func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Bearer "+issue(services.Identity{UID: "ghost", Email: "ghost@example.com"}))
		}, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", prepare: func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Basic abc")
		}, wantStatus: http.StatusUnauthorized},
		{name: "missing", prepare: func(r *http.Request) {}, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = ErrorHandler(discard)
			e.GET("/me", func(c echo.Context) error {
				return c.JSON(http.StatusOK, map[string]interface{}{
					"id":   c.Get(ContextUserID),
					"type": c.Get(ContextUserType),
				})
			}, RequireAuth(verifier, db, discard))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"id":"`+admin.ID+`","type":"ADMIN"}`, rec.Body.String())
			} else {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "plain error hides cause", err: errors.New("pq: connection refused"), wantStatus: http.StatusInternalServerError, wantBody: `{"error":"Internal server error"}`},
		{name: "http error", err: echo.NewHTTPError(http.StatusNotFound, "Payment not found"), wantStatus: http.StatusNotFound, wantBody: `{"error":"Payment not found"}`},
		{name: "validation details", err: ValidationFailed("Invalid data", []services.FieldError{{Field: "amount", Message: "too small"}}), wantStatus: http.StatusBadRequest,
			wantBody: `{"error":"Invalid data","details":[{"field":"amount","message":"too small"}]}`},
		{name: "internal http error", err: echo.NewHTTPError(http.StatusInternalServerError, "secret detail"), wantStatus: http.StatusInternalServerError, wantBody: `{"error":"Internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = ErrorHandler(discard)
			e.Use(RequestLogger(discard))
			e.GET("/", func(c echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
