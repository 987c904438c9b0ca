package router

import (
	"go-auth-api/handler"
	"go-auth-api/service"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "go-auth-api/docs"
)

func NewRouter(userHandler *handler.UserHandler, sessionHandler *handler.SessionHandler, auth *service.AuthService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	mux.Handle("POST /register", handler.ErrorHandlingMiddleware(userHandler.Register))
	mux.Handle("POST /login", handler.ErrorHandlingMiddleware(userHandler.Login))
	mux.Handle("POST /refresh-token", handler.ErrorHandlingMiddleware(sessionHandler.Refresh))

	authRequired := handler.AuthMiddleware(auth)
	mux.Handle("GET /me", authRequired(handler.ErrorHandlingMiddleware(sessionHandler.Me)))

	return mux
}
