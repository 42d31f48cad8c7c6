package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/isdelr/accounts-be/internal/api"
	"github.com/isdelr/accounts-be/internal/api/middleware"
	"github.com/isdelr/accounts-be/internal/auth"
	"github.com/isdelr/accounts-be/internal/config"
	"github.com/isdelr/accounts-be/internal/database"
	"github.com/isdelr/accounts-be/internal/logger"
	"github.com/isdelr/accounts-be/internal/monitoring"
	"github.com/isdelr/accounts-be/internal/services"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel, cfg.IsProduction())

	// Ensure the directory holding the database file exists
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database directory")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	hasher := auth.NewHasher(cfg.BcryptCost)
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:    []byte(cfg.JWTSecret),
		Algorithm: cfg.JWTAlgorithm,
		TTL:       cfg.AccessTokenTTL,
		Issuer:    cfg.JWTIssuer,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token service")
	}
	userService := services.NewUserService(db, hasher)
	authService := services.NewAuthService(userService, hasher, tokens)

	loginLimiter := middleware.NewIPRateLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst)

	// Set up and run the background scheduler
	var scheduler *monitoring.Scheduler
	if cfg.MaintenanceCron != "" {
		scheduler, err = monitoring.NewScheduler(cfg.MaintenanceCron, db, userService, loginLimiter)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure scheduler")
		}
		scheduler.Run()
	}

	// Set up router
	router := api.NewRouter(db, userService, authService, loginLimiter, cfg.CORSAllowedOrigins)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
