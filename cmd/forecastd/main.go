package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tidecast/hydro-forecast-etl/internal/adapter/catalog"
	"github.com/tidecast/hydro-forecast-etl/internal/adapter/dfs0"
	httpadapter "github.com/tidecast/hydro-forecast-etl/internal/adapter/http"
	kafkaadapter "github.com/tidecast/hydro-forecast-etl/internal/adapter/kafka"
	"github.com/tidecast/hydro-forecast-etl/internal/adapter/store"
	"github.com/tidecast/hydro-forecast-etl/internal/config"
	"github.com/tidecast/hydro-forecast-etl/internal/forecast"
	"github.com/tidecast/hydro-forecast-etl/internal/observability"
	"github.com/tidecast/hydro-forecast-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	cat := catalog.NewFS(cfg.CatalogRoot)

	var ingestor forecast.Ingestor = dfs0.NewIngestor()
	if cfg.IngestCacheSize > 0 {
		ingestor = dfs0.NewCachedIngestor(ingestor, cfg.IngestCacheSize, metrics)
		logger.Info("ingest cache enabled", "size", cfg.IngestCacheSize)
	}

	assembler := forecast.New(cat, ingestor, cfg.ClientID, cfg.WindowDays, cfg.IngestConcurrency, logger, metrics)

	// Sinks are feature-flagged: KAFKA_BROKERS enables publishing,
	// SQLITE_PATH enables persistence.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	var persistent pipeline.Store
	var db *store.SQLite
	if cfg.SQLiteEnabled {
		db, err = store.Open(cfg.SQLitePath)
		if err != nil {
			logger.Error("failed to open store", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		persistent = db
		logger.Info("sqlite persistence enabled", "path", cfg.SQLitePath)
	} else {
		logger.Info("sqlite persistence disabled")
	}

	refresher := pipeline.New(assembler, publisher, persistent, cfg.ClientID, cfg.RefreshInterval, nil, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, cfg.ClientID, refresher, refresher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresh loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
