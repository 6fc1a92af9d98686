package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oddslab/odds-intel-service/internal/aggregator"
	"github.com/oddslab/odds-intel-service/internal/alias"
	"github.com/oddslab/odds-intel-service/internal/cache"
	"github.com/oddslab/odds-intel-service/internal/config"
	httpHandler "github.com/oddslab/odds-intel-service/internal/handler/http"
	"github.com/oddslab/odds-intel-service/internal/matching"
	"github.com/oddslab/odds-intel-service/internal/messaging"
	"github.com/oddslab/odds-intel-service/internal/normalizer"
	"github.com/oddslab/odds-intel-service/internal/ranking"
	"github.com/oddslab/odds-intel-service/internal/service"
	"github.com/oddslab/odds-intel-service/internal/source"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("starting odds-intel-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create fixture cache
	fixtureCache := cache.NewFixtureCache(
		cache.FixtureCacheConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		},
		logger,
	)
	defer fixtureCache.Close()

	// Test Redis connection
	if err := fixtureCache.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")

	// Create Kafka report publisher
	reports := messaging.NewReportPublisher(
		messaging.ReportPublisherConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.ReportTopic,
		},
		logger,
	)
	defer reports.Close()

	sources := cfg.ToBookmakerSources()
	logger.Info().Int("sources", len(sources)).Msg("bookmaker sources loaded")

	// Create domain components
	registry := alias.NewRegistry(cfg.ToAliasEntries())
	matcher := matching.NewMatcher(registry, logger)
	norm := normalizer.New(logger)
	ranker := ranking.NewRanker(cfg.ToRankingPolicies(), logger)

	fetcher := source.NewClient(cfg.Aggregation.PerSourceTimeout)

	agg := aggregator.New(
		fetcher,
		norm,
		matcher,
		sources,
		cfg.Aggregation.PerSourceTimeout,
		cfg.Aggregation.SiblingLeagues,
		logger,
	)

	// The fixtures provider doubles as the live-score reader
	provider := source.NewFixturesClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout)

	pipeline := service.NewPipelineService(
		agg,
		provider,
		fetcher,
		matcher,
		ranker,
		fixtureCache,
		reports,
		provider,
		sources,
		cfg.Aggregation.MinTeamFixtures,
		logger,
	)
	logger.Info().Msg("pipeline service initialized")

	// Initialize HTTP handler
	quotesHandler := httpHandler.NewQuotesHandler(pipeline, logger)
	logger.Info().Msg("HTTP handler initialized")

	// Setup HTTP server routes
	mux := http.NewServeMux()

	// Health and monitoring endpoints
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		readyHandler(w, r, pipeline)
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Register API routes
	quotesHandler.RegisterRoutes(mux)
	logger.Info().Msg("API routes registered")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start HTTP server in goroutine
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down gracefully...")
	cancel()

	// Shutdown HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}

// setupLogger configures the logger based on config
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set format
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return log.Logger.With().Str("service", "odds-intel").Logger()
}

// healthHandler returns 200 if service is running
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// readyHandler returns 200 if service is ready to accept traffic
func readyHandler(w http.ResponseWriter, r *http.Request, pipeline *service.PipelineService) {
	// Check Redis connection
	if err := pipeline.Ready(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Redis unavailable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}
