package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/bizfinda/backend/internal/api"
	"github.com/bizfinda/backend/internal/auth"
	"github.com/bizfinda/backend/internal/business"
	"github.com/bizfinda/backend/internal/cache"
	"github.com/bizfinda/backend/internal/config"
	"github.com/bizfinda/backend/internal/db"
	apperrors "github.com/bizfinda/backend/internal/errors"
	"github.com/bizfinda/backend/internal/health"
	"github.com/bizfinda/backend/internal/logger"
	"github.com/bizfinda/backend/internal/middleware"
)

func main() {
	cfg := config.Load()

	appLog := logger.New(os.Stdout, logger.LevelInfo, "")
	logger.SetDefault(appLog)

	database, err := db.New(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// The cache is an optimization; the server runs without it.
	searchCache, err := cache.New(cfg.RedisAddr)
	if err != nil {
		appLog.Warn(context.Background(), "redis unavailable, search caching disabled", map[string]interface{}{
			"addr": cfg.RedisAddr, "error": err.Error(),
		})
		searchCache = nil
	}
	defer searchCache.Close()

	userRepo := db.NewUserRepository(database)
	businessRepo := db.NewBusinessRepository(database)

	authService := auth.NewService(userRepo, cfg)
	authHandlers := auth.NewHandlers(authService)
	businessHandlers := business.NewHandlers(businessRepo, userRepo, searchCache)
	healthHandler := health.NewHandler(health.NewChecker(database.DB, searchCache.Client()))

	router := api.NewRouter(authHandlers, authService, businessHandlers, healthHandler)

	handler := apperrors.RequestIDMiddleware(
		middleware.Logging(appLog)(
			middleware.CORS(cfg.AllowedOrigin)(
				middleware.Gzip(router))))

	log.Printf("Starting server on %s", cfg.ServerAddr)
	if err := http.ListenAndServe(cfg.ServerAddr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
