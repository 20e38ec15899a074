// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return defaultConfig()
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got: %v", err)
	}
}

func TestValidate_NATS(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing URL",
			mutate:  func(c *Config) { c.NATS.URL = "" },
			wantErr: "NATS_URL",
		},
		{
			name: "embedded without store dir",
			mutate: func(c *Config) {
				c.NATS.EmbeddedServer = true
				c.NATS.StoreDir = ""
			},
			wantErr: "NATS_STORE_DIR",
		},
		{
			name:    "zero retention",
			mutate:  func(c *Config) { c.NATS.StreamRetentionDays = 0 },
			wantErr: "NATS_RETENTION_DAYS",
		},
		{
			name:    "missing durable name",
			mutate:  func(c *Config) { c.NATS.DurableName = "" },
			wantErr: "NATS_DURABLE_NAME",
		},
		{
			name:    "negative retry count",
			mutate:  func(c *Config) { c.NATS.RetryCount = -1 },
			wantErr: "NATS_RETRY_COUNT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %s, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_Store(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store.Path = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for empty store path")
		}
	})

	t.Run("in-memory skips path check", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store.Path = ""
		cfg.Store.InMemory = true
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected in-memory store to validate, got: %v", err)
		}
	})

	t.Run("bad discard ratio", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store.GCDiscardRatio = 1.5
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for discard ratio > 1")
		}
	})
}

func TestValidate_Aggregator(t *testing.T) {
	cfg := validConfig()
	cfg.Aggregator.AckBatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero ack batch size")
	}

	cfg = validConfig()
	cfg.Aggregator.PublishTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero publish timeout")
	}
}

func TestValidate_Recommend(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.Recommend.MaxResults = 0 },
		func(c *Config) { c.Recommend.SeedCount = 0 },
		func(c *Config) { c.Recommend.NeighborLimit = -1 },
	} {
		cfg := validConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for non-positive recommend limit")
		}
	}
}

func TestValidate_Server(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for port 0")
	}

	cfg = validConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for port > 65535")
	}

	cfg = validConfig()
	cfg.Server.Environment = "testing"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown environment")
	}
}

func TestValidate_Logging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown log level")
	}

	cfg = validConfig()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown log format")
	}
}

func TestListenAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9090

	if got := cfg.ListenAddr(); got != "127.0.0.1:9090" {
		t.Errorf("expected '127.0.0.1:9090', got %s", got)
	}
}
