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

	"github.com/rfpquote/backend/config"
	"github.com/rfpquote/backend/internal/bootstrap"
	httpDelivery "github.com/rfpquote/backend/internal/delivery/http"
	"github.com/rfpquote/backend/internal/observability"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "rfpquote-backend",
	})

	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Dur("cache_ttl", cfg.Cache.TTL).
		Str("encoder", cfg.Encoder.Provider).
		Float64("threshold", cfg.Matching.Threshold).
		Int("top_k", cfg.Matching.TopK).
		Bool("debug_matching", cfg.Matching.EnableDebugLogging).
		Msg("starting rfpquote backend")

	if cfg.Catalog.PayloadFile == "" && cfg.Catalog.APIKey != "" {
		logger.Info().Str("price_list_url", cfg.Catalog.PriceListURL).Msg("catalog API configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize usecase layer with its infrastructure
	service, closeDeps, err := bootstrap.NewAvailabilityService(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize availability service")
	}
	defer func() {
		if err := closeDeps(); err != nil {
			logger.Warn().Err(err).Msg("failed to release dependencies")
		}
	}()

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(service, logger)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
