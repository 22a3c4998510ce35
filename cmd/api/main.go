// Package main provides the entrypoint for the routeboard API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/routeboard/routeboard/internal/api"
	"github.com/routeboard/routeboard/internal/api/middleware"
	"github.com/routeboard/routeboard/internal/config"
	"github.com/routeboard/routeboard/internal/provider/resilience"
	"github.com/routeboard/routeboard/internal/route"
	"github.com/routeboard/routeboard/internal/route/transportapi"
	"github.com/routeboard/routeboard/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "routeboard-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log = log.Level(level)

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting routeboard API")

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	routeMetrics, err := route.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize route metrics")
		os.Exit(1)
	}

	if cfg.Upstream.AppID == "" || cfg.Upstream.AppKey == "" {
		log.Warn().Msg("TransportAPI credentials not configured - routes will use the fallback timetable")
	}

	// One resilient client per mode so a failing mode does not trip the other's breaker.
	registry := resilience.NewRegistry()
	upstream := func(name string) *transportapi.Client {
		clientCfg := resilience.DefaultClientConfig(name)
		clientCfg.Timeout = cfg.Upstream.Timeout
		clientCfg.MaxRetries = cfg.Upstream.MaxRetries
		clientCfg.Registry = registry
		clientCfg.Logger = log

		return transportapi.NewClient(transportapi.ClientConfig{
			AppID:      cfg.Upstream.AppID,
			AppKey:     cfg.Upstream.AppKey,
			BaseURL:    cfg.Upstream.BaseURL,
			HTTPClient: resilience.NewClient(clientCfg),
			Logger:     log,
		})
	}

	busFetcher, err := transportapi.NewBusFetcher(transportapi.BusFetcherConfig{
		Client:     upstream(transportapi.ProviderName + "-bus"),
		Lat:        cfg.Routes.Lat,
		Lon:        cfg.Routes.Lon,
		MaxRecords: cfg.Routes.MaxPerMode,
		Logger:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bus fetcher")
	}

	trainFetcher, err := transportapi.NewTrainFetcher(transportapi.TrainFetcherConfig{
		Client:     upstream(transportapi.ProviderName + "-train"),
		Stations:   cfg.Routes.Stations,
		MaxRecords: cfg.Routes.MaxPerMode,
		Logger:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create train fetcher")
	}

	routeService, err := route.NewService(route.ServiceConfig{
		Fetchers:     []route.Fetcher{busFetcher, trainFetcher},
		MaxPerMode:   cfg.Routes.MaxPerMode,
		FetchTimeout: cfg.Routes.FetchTimeout,
		Logger:       log,
		Metrics:      routeMetrics,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create route service")
	}
	log.Info().
		Float64("lat", cfg.Routes.Lat).
		Float64("lon", cfg.Routes.Lon).
		Strs("stations", trainFetcher.Stations()).
		Msg("route service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		ServiceName:     serviceName,
		Metrics:         httpMetrics,
		Routes:          routeService,
		Registry:        registry,
		CORSOrigins:     cfg.Server.CORSOrigins,
		RoutesRateLimit: middleware.PerMinute(cfg.Server.RateLimitPerMinute),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
