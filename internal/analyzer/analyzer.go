// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

// Package analyzer consumes the pair similarity log and maintains the
// durable event similarity store that the query engine reads.
package analyzer

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/mkarelin/affinity/internal/events"
	"github.com/mkarelin/affinity/internal/logging"
	"github.com/mkarelin/affinity/internal/metrics"
	"github.com/mkarelin/affinity/internal/store"
	"github.com/mkarelin/affinity/internal/stream"
)

// Consumer applies similarity records to the store. Records carry absolute
// scores, so applying them in any order of redelivery converges on the
// latest published value per pair.
type Consumer struct {
	subscriber stream.MessageSource
	store      *store.SimilarityStore
	serializer *events.Serializer
	logger     zerolog.Logger
}

func NewConsumer(subscriber stream.MessageSource, similarities *store.SimilarityStore) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		store:      similarities,
		serializer: events.NewSerializer(),
		logger:     logging.WithComponent("analyzer"),
	}
}

// Run consumes the similarity log until the context is cancelled or the
// subscription closes. Each record is acked on a successful upsert and
// nacked for redelivery on a store failure.
func (c *Consumer) Run(ctx context.Context) error {
	return stream.NewMessageHandler(c.subscriber, events.SubjectSimilarity, logging.NewWatermillAdapter()).
		Handle(c.process).
		Run(ctx)
}

func (c *Consumer) process(ctx context.Context, msg *message.Message) error {
	metrics.RecordStreamConsume(events.SubjectSimilarity)

	sim, err := c.serializer.UnmarshalSimilarity(msg.Payload)
	if err != nil {
		metrics.RecordStreamParseFailure(events.SubjectSimilarity)
		c.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed similarity record")
		return nil
	}

	if err := c.store.Upsert(ctx, sim.EventA, sim.EventB, sim.Score, sim.Timestamp); err != nil {
		return fmt.Errorf("upserting similarity for pair (%d,%d): %w", sim.EventA, sim.EventB, err)
	}
	return nil
}
