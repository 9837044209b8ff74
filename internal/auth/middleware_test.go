package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbravo-MCR/auth-api/internal/httputil"
)

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()

	var resp httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRequireAuth(t *testing.T) {
	jwtService := newTestJWTService(t)
	mw := NewMiddleware(jwtService)

	userID := uuid.New()

	accessToken, err := jwtService.CreateAccessToken(userID, "alice@example.com", "admin", time.Hour)
	require.NoError(t, err)
	refreshToken, err := jwtService.CreateRefreshToken(userID, time.Hour)
	require.NoError(t, err)
	expiredToken, err := jwtService.CreateAccessToken(userID, "alice@example.com", "admin", -time.Minute)
	require.NoError(t, err)

	var gotUserID uuid.UUID
	var gotEmail, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = GetUserIDFromContext(r.Context())
		gotEmail, _ = GetUserEmailFromContext(r.Context())
		gotRole, _ = GetUserRoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := mw.RequireAuth(next)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeMissingAuth, decodeErrorResponse(t, rec).Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		for _, header := range []string{"Bearer", "Basic " + accessToken, "Bearer "} {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, httputil.CodeInvalidAuthHeader, decodeErrorResponse(t, rec).Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeInvalidToken, decodeErrorResponse(t, rec).Code)
	})

	t.Run("expired token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+expiredToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeTokenExpired, decodeErrorResponse(t, rec).Code)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+refreshToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeInvalidToken, decodeErrorResponse(t, rec).Code)
	})

	t.Run("valid access token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, gotUserID)
		assert.Equal(t, "alice@example.com", gotEmail)
		assert.Equal(t, "admin", gotRole)
	})

	t.Run("preflight passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/me", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
