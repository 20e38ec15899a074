// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

// Package main is the entry point for the Affinity server.
//
// Affinity computes event-to-event similarity online from a stream of user
// actions (views, registrations, likes) and serves recommendation queries
// over HTTP.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered loading from defaults, config.yaml, and
//     environment variables (Koanf v2)
//  2. Storage: BadgerDB holding the action weight and event similarity stores
//  3. Messaging: embedded NATS JetStream server (optional) and the two
//     durable logs, one for actions and one for pair similarity updates
//  4. Aggregator: single ordered consumer of the action log that maintains
//     the similarity state and publishes changed pair scores
//  5. Analyzer: consumer of the similarity log that maintains the durable
//     similarity store
//  6. HTTP server: ingestion and query API plus Prometheus metrics
//
// All long-lived components run under a suture supervision tree; a crash in
// one layer restarts that layer without taking down the query API.
//
// # Configuration
//
// Key environment variables (see internal/config for the full set):
//   - NATS_URL, NATS_EMBEDDED, NATS_STORE_DIR
//   - STORE_PATH, STORE_IN_MEMORY
//   - HTTP_PORT, HTTP_HOST
//   - LOG_LEVEL, LOG_FORMAT
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP server
// drains in-flight requests, consumers acknowledge their current batch, and
// the stores and embedded NATS server are closed in order.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mkarelin/affinity/internal/aggregator"
	"github.com/mkarelin/affinity/internal/analyzer"
	"github.com/mkarelin/affinity/internal/api"
	"github.com/mkarelin/affinity/internal/config"
	"github.com/mkarelin/affinity/internal/ingest"
	"github.com/mkarelin/affinity/internal/logging"
	"github.com/mkarelin/affinity/internal/recommend"
	"github.com/mkarelin/affinity/internal/store"
	"github.com/mkarelin/affinity/internal/stream"
	"github.com/mkarelin/affinity/internal/supervisor"
	"github.com/mkarelin/affinity/internal/supervisor/services"
)

const analyzerDurableName = "affinity-analyzer"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("listen_addr", cfg.ListenAddr()).
		Str("store_path", cfg.Store.Path).
		Bool("nats_embedded", cfg.NATS.EmbeddedServer).
		Msg("Starting Affinity")

	// Storage.
	db, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	actionWeights := store.NewActionWeightStore(db)
	similarities := store.NewSimilarityStore(db)

	// Messaging.
	natsURL := cfg.NATS.URL
	var embedded *stream.EmbeddedServer
	if cfg.NATS.EmbeddedServer {
		serverCfg := stream.ServerConfigFrom(cfg.NATS)
		embedded, err = stream.NewEmbeddedServer(&serverCfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
		}
		natsURL = embedded.ClientURL()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.NATS.CloseTimeout)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
			}
		}()
	}

	if err := provisionStreams(cfg, natsURL); err != nil {
		logging.Fatal().Err(err).Msg("Failed to provision streams")
	}

	wmLogger := logging.NewWatermillAdapter()

	publisher, err := stream.NewPublisher(stream.DefaultPublisherConfig(natsURL), wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}()
	publisher.SetCircuitBreaker(stream.NewCircuitBreaker(stream.DefaultCircuitBreakerConfig("stream-publisher")))

	actionsSubCfg := stream.SubscriberConfigFrom(cfg.NATS, cfg.NATS.DurableName, stream.ActionsStreamName)
	actionsSub, err := stream.NewSubscriber(&actionsSubCfg, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create actions subscriber")
	}
	defer func() {
		if err := actionsSub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing actions subscriber")
		}
	}()

	similaritySubCfg := stream.SubscriberConfigFrom(cfg.NATS, analyzerDurableName, stream.SimilarityStreamName)
	similaritySub, err := stream.NewSubscriber(&similaritySubCfg, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create similarity subscriber")
	}
	defer func() {
		if err := similaritySub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing similarity subscriber")
		}
	}()

	// Processing components.
	agg := aggregator.New()
	aggConsumer := aggregator.NewConsumer(actionsSub, publisher, agg, actionWeights, cfg.Aggregator)
	simConsumer := analyzer.NewConsumer(similaritySub, similarities)

	// HTTP API.
	collector := ingest.NewCollector(publisher)
	engine := recommend.NewEngine(actionWeights, similarities, cfg.Recommend)
	ready := func() error {
		if embedded != nil && !embedded.IsRunning() {
			return fmt.Errorf("embedded NATS server is not running")
		}
		if state := publisher.BreakerState(); state == "open" {
			return fmt.Errorf("stream publisher circuit breaker is %s", state)
		}
		return nil
	}
	handler := api.NewHandler(collector, engine, ready)
	router := api.NewRouter(handler, &api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.API.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.API.RateLimitReqs,
		RateLimitWindow:    cfg.API.RateLimitWindow,
		RateLimitDisabled:  cfg.API.RateLimitDisabled,
	})
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	// Supervision tree.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build supervisor tree")
	}

	tree.AddDataService(services.NewRunnerService("store-gc", services.RunnerFunc(func(ctx context.Context) error {
		store.RunGC(ctx, db, cfg.Store.GCInterval, cfg.Store.GCDiscardRatio)
		return ctx.Err()
	})))
	tree.AddMessagingService(services.NewRunnerService("aggregator", aggConsumer))
	tree.AddMessagingService(services.NewRunnerService("analyzer", simConsumer))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("listen_addr", cfg.ListenAddr()).Msg("Affinity started")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervisor tree stopped unexpectedly")
	}
	logging.Info().Msg("Affinity stopped")
}

// provisionStreams creates or updates the two durable logs before any
// publisher or subscriber binds to them.
func provisionStreams(cfg *config.Config, natsURL string) error {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(3),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS at %s: %w", natsURL, err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, streamCfg := range []stream.StreamConfig{
		stream.ActionsStreamConfig(cfg.NATS),
		stream.SimilarityStreamConfig(cfg.NATS),
	} {
		manager, err := stream.NewManager(nc, &streamCfg)
		if err != nil {
			return fmt.Errorf("creating stream manager for %s: %w", streamCfg.Name, err)
		}
		if _, err := manager.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensuring stream %s: %w", streamCfg.Name, err)
		}
		info, err := manager.Info(ctx)
		if err != nil {
			return fmt.Errorf("reading stream %s state: %w", streamCfg.Name, err)
		}
		logging.Info().
			Str("stream", streamCfg.Name).
			Uint64("messages", info.State.Msgs).
			Msg("Stream provisioned")
	}
	return nil
}
