// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

// Package config holds the application configuration and its loader.
//
// Configuration is layered: built-in defaults, an optional YAML file, and
// environment variables, in increasing order of precedence. See koanf.go
// for the loader.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete application configuration.
type Config struct {
	NATS       NATSConfig       `koanf:"nats"`
	Store      StoreConfig      `koanf:"store"`
	Aggregator AggregatorConfig `koanf:"aggregator"`
	Recommend  RecommendConfig  `koanf:"recommend"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// NATSConfig configures the embedded JetStream server and the durable
// action/similarity logs.
type NATSConfig struct {
	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer enables the embedded NATS server.
	// If false, expects an external NATS server at URL.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory is the maximum memory for JetStream in bytes.
	MaxMemory int64 `koanf:"max_memory"`

	// MaxStore is the maximum disk storage for JetStream in bytes.
	MaxStore int64 `koanf:"max_store"`

	// StreamRetentionDays is how long to keep log records.
	StreamRetentionDays int `koanf:"stream_retention_days"`

	// DurableName is the consumer durable name for delivery tracking.
	DurableName string `koanf:"durable_name"`

	// QueueGroup is the queue group for the action log consumer.
	QueueGroup string `koanf:"queue_group"`

	// RetryCount is the maximum number of redeliveries for failed messages.
	RetryCount int `koanf:"retry_count"`

	// RetryInitialInterval is the initial backoff interval for retries.
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`

	// CloseTimeout is the maximum time to wait for graceful consumer shutdown.
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// StoreConfig configures the Badger key-value store backing action weights
// and similarity scores.
type StoreConfig struct {
	// Path is the Badger data directory.
	Path string `koanf:"path"`

	// InMemory runs Badger without a data directory. Intended for tests.
	InMemory bool `koanf:"in_memory"`

	// GCInterval is how often value-log garbage collection runs.
	GCInterval time.Duration `koanf:"gc_interval"`

	// GCDiscardRatio is the Badger value-log GC discard ratio (0..1).
	GCDiscardRatio float64 `koanf:"gc_discard_ratio"`
}

// AggregatorConfig configures the similarity aggregation loop.
type AggregatorConfig struct {
	// AckBatchSize is the number of processed records between acknowledgment
	// batches on the action log.
	AckBatchSize int `koanf:"ack_batch_size"`

	// RebuildOnStartup replays persisted action weights into the in-memory
	// accumulators before consuming new records.
	RebuildOnStartup bool `koanf:"rebuild_on_startup"`

	// PublishTimeout bounds a single similarity publish.
	PublishTimeout time.Duration `koanf:"publish_timeout"`
}

// RecommendConfig configures the query engine.
type RecommendConfig struct {
	// MaxResults is the maximum number of scored events returned per query.
	MaxResults int `koanf:"max_results"`

	// SeedCount is how many of the user's most recent interactions seed
	// the recommendation candidate search.
	SeedCount int `koanf:"seed_count"`

	// NeighborLimit is how many nearest neighbors are examined per seed.
	NeighborLimit int `koanf:"neighbor_limit"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// APIConfig configures API-level middleware.
type APIConfig struct {
	// RateLimitReqs is the allowed requests per window per client IP.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limit window duration.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// RateLimitDisabled turns off request rate limiting.
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateAggregator(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateNATS() error {
	if c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required")
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
	}
	if c.NATS.StreamRetentionDays <= 0 {
		return fmt.Errorf("NATS_RETENTION_DAYS must be positive")
	}
	if c.NATS.DurableName == "" {
		return fmt.Errorf("NATS_DURABLE_NAME is required")
	}
	if c.NATS.RetryCount < 0 {
		return fmt.Errorf("NATS_RETRY_COUNT must not be negative")
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.InMemory {
		return nil
	}
	if c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required")
	}
	if c.Store.GCDiscardRatio <= 0 || c.Store.GCDiscardRatio >= 1 {
		return fmt.Errorf("STORE_GC_DISCARD_RATIO must be between 0 and 1 exclusive")
	}
	return nil
}

func (c *Config) validateAggregator() error {
	if c.Aggregator.AckBatchSize <= 0 {
		return fmt.Errorf("AGGREGATOR_ACK_BATCH_SIZE must be positive")
	}
	if c.Aggregator.PublishTimeout <= 0 {
		return fmt.Errorf("AGGREGATOR_PUBLISH_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if c.Recommend.MaxResults <= 0 {
		return fmt.Errorf("RECOMMEND_MAX_RESULTS must be positive")
	}
	if c.Recommend.SeedCount <= 0 {
		return fmt.Errorf("RECOMMEND_SEED_COUNT must be positive")
	}
	if c.Recommend.NeighborLimit <= 0 {
		return fmt.Errorf("RECOMMEND_NEIGHBOR_LIMIT must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
		return nil
	default:
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
