package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/estatehub/marketplace/backend/internal/api/handlers"
	"github.com/estatehub/marketplace/backend/internal/api/routes"
	"github.com/estatehub/marketplace/backend/internal/bootstrap"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	"github.com/estatehub/marketplace/backend/pkg/config"
)

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.App.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			observability.EnableLogExport()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	if _, err := observability.InitMetrics(); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("error releasing resources")
		}
	}()

	if err := app.StartSubscribers(); err != nil {
		logger.Warn().Err(err).Msg("event subscribers not running; derived data may go stale")
	}

	checks := make(map[string]handlers.HealthCheck)
	for name, check := range app.HealthChecks() {
		checks[name] = check
	}

	router := routes.NewRouter(routes.Handlers{
		Property:     handlers.NewPropertyHandler(app.Properties, app.Counters, app.Deletes),
		Offer:        handlers.NewOfferHandler(app.Offers, app.Deletes),
		Booking:      handlers.NewBookingHandler(app.Bookings, app.Deletes),
		Review:       handlers.NewReviewHandler(app.Ratings),
		Favorite:     handlers.NewFavoriteHandler(app.Counters),
		Notification: handlers.NewNotificationHandler(app.Notifications),
		Admin:        handlers.NewAdminHandler(app.Deletes),
		Health:       handlers.NewHealthHandler(checks),
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}
	// app.Close waits for in-flight view writes before closing the store
}
