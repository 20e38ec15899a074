// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package stream

import (
	"time"

	"github.com/mkarelin/affinity/internal/config"
	"github.com/mkarelin/affinity/internal/events"
)

// Stream names for the two durable logs.
const (
	// ActionsStreamName holds every user interaction record.
	ActionsStreamName = "AFFINITY_ACTIONS"
	// SimilarityStreamName holds changed pair scores emitted by the aggregator.
	SimilarityStreamName = "AFFINITY_SIMILARITY"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for the embedded NATS server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   1 << 30,  // 1GB
		JetStreamMaxStore: 10 << 30, // 10GB
	}
}

// ServerConfigFrom builds embedded server settings from application config.
func ServerConfigFrom(cfg config.NATSConfig) ServerConfig {
	sc := DefaultServerConfig()
	sc.StoreDir = cfg.StoreDir
	sc.JetStreamMaxMem = cfg.MaxMemory
	sc.JetStreamMaxStore = cfg.MaxStore
	return sc
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for the publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL            string
	DurableName    string
	QueueGroup     string
	AckWaitTimeout time.Duration
	MaxDeliver     int
	MaxAckPending  int
	CloseTimeout   time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration

	// SubscribersCount is the number of concurrent message processors.
	// The aggregator requires 1: accumulator updates must observe records
	// in log order, and a single consumer goroutine is what guarantees it.
	SubscribersCount int

	// StreamName binds the subscriber to an existing stream instead of
	// auto-provisioning one named after the topic.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for a subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "affinity-aggregator",
		QueueGroup:       "aggregators",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,    // Max redelivery attempts
		MaxAckPending:    1000, // Flow control
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// SubscriberConfigFrom builds subscriber settings from application config.
// The durable name distinguishes the aggregator and analyzer consumers.
func SubscriberConfigFrom(cfg config.NATSConfig, durable, streamName string) SubscriberConfig {
	sc := DefaultSubscriberConfig(cfg.URL)
	sc.DurableName = durable
	sc.QueueGroup = cfg.QueueGroup
	sc.CloseTimeout = cfg.CloseTimeout
	sc.StreamName = streamName
	if cfg.RetryCount > 0 {
		sc.MaxDeliver = cfg.RetryCount
	}
	return sc
}

// StreamConfig defines durable log stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// ActionsStreamConfig returns the stream configuration for the action log.
func ActionsStreamConfig(cfg config.NATSConfig) StreamConfig {
	return StreamConfig{
		Name:            ActionsStreamName,
		Subjects:        []string{events.SubjectActions},
		MaxAge:          time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour,
		MaxBytes:        cfg.MaxStore,
		MaxMsgs:         -1, // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1, // Increase for clustering
	}
}

// SimilarityStreamConfig returns the stream configuration for the similarity log.
func SimilarityStreamConfig(cfg config.NATSConfig) StreamConfig {
	return StreamConfig{
		Name:            SimilarityStreamName,
		Subjects:        []string{events.SubjectSimilarity},
		MaxAge:          time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour,
		MaxBytes:        cfg.MaxStore,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
