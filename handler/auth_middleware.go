package handler

import (
	"context"
	"go-auth-api/common"
	"go-auth-api/service"
	"net/http"
	"strings"
)

type contextKey string

const UserIDKey contextKey = "userID"

// AuthMiddleware verifies the bearer token on protected routes and puts the
// authenticated user id into the request context. A missing or malformed
// header is rejected with 403; a token that fails verification with 401,
// with distinct messages for invalid and expired tokens.
func AuthMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				appErr := common.NewAppError(http.StatusForbidden, "Authorization header is required", nil)
				appErr.Send(w)
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				appErr := common.NewAppError(http.StatusForbidden, "Invalid authorization header format", nil)
				appErr.Send(w)
				return
			}

			claims, err := auth.ParseToken(headerParts[1])
			if err != nil {
				message := "Token invalid"
				if err == service.ErrTokenExpired {
					message = "Token expired"
				}
				appErr := common.NewAppError(http.StatusUnauthorized, message, err)
				appErr.Send(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
