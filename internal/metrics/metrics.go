// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Stream publish/consume throughput (NATS JetStream)
// - Action aggregation and similarity updates
// - BadgerDB store operations
// - API endpoint latency and throughput
// - Recommendation query performance

var (
	// Stream Metrics
	StreamMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_stream_messages_published_total",
			Help: "Total number of messages published to the stream",
		},
		[]string{"topic"},
	)

	StreamMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_stream_messages_consumed_total",
			Help: "Total number of messages consumed from the stream",
		},
		[]string{"topic"},
	)

	StreamPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_stream_publish_errors_total",
			Help: "Total number of failed stream publishes",
		},
		[]string{"topic"},
	)

	StreamParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_stream_parse_failures_total",
			Help: "Total number of stream messages that failed to deserialize",
		},
		[]string{"topic"},
	)

	// Aggregation Metrics
	ActionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_actions_processed_total",
			Help: "Total number of user actions processed by the aggregator",
		},
		[]string{"result"}, // "updated", "noop"
	)

	ActionProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "affinity_action_process_duration_seconds",
			Help:    "Duration of processing a single user action in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PairUpdatesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_pair_updates_published_total",
			Help: "Total number of pair similarity updates published",
		},
	)

	AckBatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_ack_batches_total",
			Help: "Total number of acknowledged consumer batches",
		},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_store_operation_duration_seconds",
			Help:    "Duration of BadgerDB store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_store_operation_errors_total",
			Help: "Total number of failed BadgerDB store operations",
		},
		[]string{"operation"},
	)

	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Query Metrics
	RecommendQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_recommend_query_duration_seconds",
			Help:    "Duration of recommendation queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"}, // "similar_events", "user_recommendations", "interactions_count"
	)
)

// RecordStreamPublish increments the published-message counter for a topic.
func RecordStreamPublish(topic string) {
	StreamMessagesPublished.WithLabelValues(topic).Inc()
}

// RecordStreamConsume increments the consumed-message counter for a topic.
func RecordStreamConsume(topic string) {
	StreamMessagesConsumed.WithLabelValues(topic).Inc()
}

// RecordStreamPublishError increments the publish-error counter for a topic.
func RecordStreamPublishError(topic string) {
	StreamPublishErrors.WithLabelValues(topic).Inc()
}

// RecordStreamParseFailure increments the deserialization-failure counter.
func RecordStreamParseFailure(topic string) {
	StreamParseFailures.WithLabelValues(topic).Inc()
}

// RecordActionProcessed records a processed action. An action that did not
// raise any stored weight counts as a no-op.
func RecordActionProcessed(updated bool, duration time.Duration) {
	result := "noop"
	if updated {
		result = "updated"
	}
	ActionsProcessed.WithLabelValues(result).Inc()
	ActionProcessDuration.Observe(duration.Seconds())
}

// RecordPairUpdates adds the number of pair similarity updates published
// for a single processed action.
func RecordPairUpdates(n int) {
	if n <= 0 {
		return
	}
	PairUpdatesPublished.Add(float64(n))
}

// RecordAckBatch increments the acknowledged-batch counter.
func RecordAckBatch() {
	AckBatches.Inc()
}

// RecordStoreOperation records a store operation's duration and, when err is
// non-nil, its failure.
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request's duration and outcome.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	APIRequestDuration.WithLabelValues(method, endpoint, code).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, endpoint, code).Inc()
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(delta int) {
	APIActiveRequests.Add(float64(delta))
}

// RecordRecommendQuery records a recommendation query's duration.
func RecordRecommendQuery(query string, duration time.Duration) {
	RecommendQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}
