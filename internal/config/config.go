package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	CatalogRoot string
	ClientID    string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	RefreshInterval   time.Duration
	WindowDays        int
	IngestConcurrency int
	IngestCacheSize   int

	// Kafka sink configuration. Publishing is enabled when brokers are set.
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool

	// SQLite master-series store. Persistence is enabled when a path is set.
	SQLitePath    string
	SQLiteEnabled bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parseDuration("REFRESH_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}

	windowDays, err := parseInt("WINDOW_DAYS", 7, 1, 60)
	if err != nil {
		return nil, err
	}

	concurrency, err := parseInt("INGEST_CONCURRENCY", 4, 1, 64)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("INGEST_CACHE_SIZE", 32, 0, 4096)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	sqliteEnabled := sqlitePath != ""
	if v := os.Getenv("SQLITE_ENABLED"); v != "" {
		sqliteEnabled = v == "true"
	}

	cfg := &Config{
		CatalogRoot: os.Getenv("CATALOG_ROOT"),
		ClientID:    os.Getenv("CLIENT_ID"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		RefreshInterval:   refreshInterval,
		WindowDays:        windowDays,
		IngestConcurrency: concurrency,
		IngestCacheSize:   cacheSize,

		KafkaBrokers:   brokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "hydro-forecast-series"),
		KafkaEnabled:   kafkaEnabled,

		SQLitePath:    sqlitePath,
		SQLiteEnabled: sqliteEnabled,
	}

	if cfg.CatalogRoot == "" {
		return nil, errors.New("CATALOG_ROOT is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("CLIENT_ID is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.SQLiteEnabled && cfg.SQLitePath == "" {
		return nil, errors.New("SQLITE_ENABLED is true but SQLITE_PATH is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback, minVal, maxVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, minVal, maxVal)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
