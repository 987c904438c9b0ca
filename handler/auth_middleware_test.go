// handler/auth_middleware_test.go
package handler

import (
	"fmt"
	"go-auth-api/service"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newProtectedEcho(auth *service.AuthService) http.Handler {
	// Echoes the user id the middleware resolved from the token.
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := r.Context().Value(UserIDKey).(int)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "%d", userID)
	})
	return AuthMiddleware(auth)(inner)
}

func TestAuthMiddleware(t *testing.T) {
	auth := service.NewAuthService("middleware-test-secret", 10*time.Minute, 24*time.Hour)
	protected := newProtectedEcho(auth)

	t.Run("valid token passes with user id in context", func(t *testing.T) {
		token, _, err := auth.GenerateAccessToken(42)
		assert.NoError(t, err)

		req, _ := http.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "42", rr.Body.String())
	})

	t.Run("missing header is forbidden", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/me", nil)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("malformed header is forbidden", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Token abc")
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("expired token is unauthorized with expired message", func(t *testing.T) {
		expiredAuth := service.NewAuthService("middleware-test-secret", -1*time.Minute, 24*time.Hour)
		token, _, err := expiredAuth.GenerateAccessToken(42)
		assert.NoError(t, err)

		req, _ := http.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Token expired")
	})

	t.Run("garbage token is unauthorized with invalid message", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Token invalid")
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		otherAuth := service.NewAuthService("somebody-elses-secret", 10*time.Minute, 24*time.Hour)
		token, _, err := otherAuth.GenerateAccessToken(42)
		assert.NoError(t, err)

		req, _ := http.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
