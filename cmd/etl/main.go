package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ccaa-covid-etl/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/ccaa-covid-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/ccaa-covid-etl/internal/adapter/kafka"
	"github.com/couchcryptid/ccaa-covid-etl/internal/config"
	"github.com/couchcryptid/ccaa-covid-etl/internal/domain"
	"github.com/couchcryptid/ccaa-covid-etl/internal/observability"
	"github.com/couchcryptid/ccaa-covid-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	registry := domain.NewRegistry()

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, registry, logger, metrics)
		publisher = writer
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	p := pipeline.New(
		pipeline.Source{URL: cfg.FeedURL, OutputPath: cfg.FeedOutputPath},
		feed.NewFetcher(cfg.FeedTimeout, logger, metrics),
		pipeline.NewTransformer(registry, cfg.Policy, logger),
		clockwork.NewRealClock(),
		logger,
		metrics,
	)
	refresher := pipeline.NewRefresher(p, cfg.FeedURL, publisher, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The first run must succeed before anything is served.
	if _, err := refresher.Refresh(ctx); err != nil {
		logger.Error("initial pipeline run failed", "error", err)
		closeWriter(writer, logger)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, refresher, registry, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closeWriter(writer, logger)

	logger.Info("shutdown complete")
}

func closeWriter(w *kafkaadapter.Writer, logger *slog.Logger) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
}
