// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"go-auth-api/config"
	"go-auth-api/db"
	"go-auth-api/handler"
	"go-auth-api/logger"
	"go-auth-api/repository"
	"go-auth-api/router"
	"go-auth-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// wire builds the full handler chain on top of the given connections.
// Shared between Run and NewTestApp so integration tests exercise the same
// wiring as production.
func wire(database *sql.DB, redisClient *redis.Client) http.Handler {
	cfg := config.AppConfig.JWT
	authService := service.NewAuthService(cfg.SecretKey, cfg.AccessTTL, cfg.RefreshTTL)

	userRepo := repository.NewUserRepository(database)
	tokenRepo := repository.NewTokenRepository(database)

	var cache service.ICacheClient
	if redisClient != nil {
		cache = redisClient
	}
	sessionService := service.NewSessionService(database, userRepo, tokenRepo, authService, cache)

	userHandler := handler.NewUserHandler(sessionService)
	sessionHandler := handler.NewSessionHandler(sessionService)

	return router.NewRouter(userHandler, sessionHandler, authService)
}

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	// Redis is an optimization, not a dependency: identity lookups fall
	// back to the database when it is unreachable.
	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.WithError(err).Warn("Redis unavailable, identity lookups will not be cached")
		redisClient = nil
	}

	r := wire(database, redisClient)

	// --- Start the Server with Graceful Shutdown ---
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}

// TestApp exposes the wired router plus its backing connections for
// integration tests.
type TestApp struct {
	DB     *sql.DB
	Router http.Handler
}

// NewTestApp wires the application against test connections.
func NewTestApp(database *sql.DB, redisClient *redis.Client) *TestApp {
	return &TestApp{DB: database, Router: wire(database, redisClient)}
}
