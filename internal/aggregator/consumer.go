// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/mkarelin/affinity/internal/config"
	"github.com/mkarelin/affinity/internal/events"
	"github.com/mkarelin/affinity/internal/logging"
	"github.com/mkarelin/affinity/internal/metrics"
	"github.com/mkarelin/affinity/internal/store"
)

// ActionSubscriber yields the ordered action log. *stream.Subscriber
// satisfies it.
type ActionSubscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// SimilarityPublisher emits changed pair scores onto the similarity log.
// *stream.Publisher satisfies it.
type SimilarityPublisher interface {
	PublishSimilarity(ctx context.Context, sim *events.PairSimilarity) error
}

// Consumer drives the aggregator from the durable action log. It is the
// single writer of the action weight store and the sole producer of pair
// similarity updates.
type Consumer struct {
	subscriber ActionSubscriber
	publisher  SimilarityPublisher
	aggregator *Aggregator
	weights    *store.ActionWeightStore
	serializer *events.Serializer
	cfg        config.AggregatorConfig
	logger     zerolog.Logger
}

// NewConsumer builds a consumer over an already-connected subscriber and
// publisher. The aggregator state is rebuilt from the weight store on Run
// when the config asks for it.
func NewConsumer(
	subscriber ActionSubscriber,
	publisher SimilarityPublisher,
	agg *Aggregator,
	weights *store.ActionWeightStore,
	cfg config.AggregatorConfig,
) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		publisher:  publisher,
		aggregator: agg,
		weights:    weights,
		serializer: events.NewSerializer(),
		cfg:        cfg,
		logger:     logging.WithComponent("aggregator"),
	}
}

// Run consumes the action log until the context is cancelled or the
// subscription closes. Messages are acknowledged in batches, with a flush
// whenever the subscription runs dry so a partial batch never outlives the
// ack deadline. A batch left unacknowledged at a crash is redelivered and
// reprocessed, which is safe because weight applications are monotonic
// no-ops on replay.
func (c *Consumer) Run(ctx context.Context) error {
	if c.cfg.RebuildOnStartup {
		start := time.Now()
		if err := c.aggregator.Rebuild(ctx, c.weights); err != nil {
			return fmt.Errorf("rebuilding aggregator state: %w", err)
		}
		c.logger.Info().Dur("duration", time.Since(start)).Msg("Aggregator state rebuilt from store")
	}

	msgs, err := c.subscriber.Subscribe(ctx, events.SubjectActions)
	if err != nil {
		return fmt.Errorf("subscribing to action log: %w", err)
	}

	batchSize := c.cfg.AckBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	pending := make([]*message.Message, 0, batchSize)

	ackPending := func() {
		if len(pending) == 0 {
			return
		}
		for _, m := range pending {
			m.Ack()
		}
		metrics.RecordAckBatch()
		pending = pending[:0]
	}

	handle := func(msg *message.Message) {
		if err := c.process(ctx, msg); err != nil {
			c.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Failed to process action, requesting redelivery")
			msg.Nack()
			return
		}
		pending = append(pending, msg)
		if len(pending) >= batchSize {
			ackPending()
		}
	}

	for {
		select {
		case <-ctx.Done():
			ackPending()
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				ackPending()
				return nil
			}
			handle(msg)
			// Drain records the subscription already buffered, then
			// flush the partial batch. Tail records on a quiet stream
			// must not sit unacked until the ack deadline redelivers
			// them.
		drained:
			for {
				select {
				case msg, ok := <-msgs:
					if !ok {
						ackPending()
						return nil
					}
					handle(msg)
				default:
					break drained
				}
			}
			ackPending()
		}
	}
}

// process applies one action record. A record that cannot be deserialized is
// logged and dropped so a poison message cannot stall the stream. Store
// failures are returned to the caller for redelivery. Similarity publish
// failures are logged but do not fail the record: the weight update already
// holds, and a later action on either event re-emits the pair's score.
func (c *Consumer) process(ctx context.Context, msg *message.Message) error {
	start := time.Now()
	metrics.RecordStreamConsume(events.SubjectActions)

	action, err := c.serializer.UnmarshalAction(msg.Payload)
	if err != nil {
		metrics.RecordStreamParseFailure(events.SubjectActions)
		c.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed action record")
		return nil
	}

	_, updated, err := c.weights.PutIfGreater(ctx, action.UserID, action.EventID, action.Type.Weight(), action.Timestamp)
	if err != nil {
		return fmt.Errorf("persisting action weight: %w", err)
	}

	changed := c.aggregator.Apply(action)
	metrics.RecordActionProcessed(updated, time.Since(start))

	for _, sim := range changed {
		if err := c.publishSimilarity(ctx, &sim); err != nil {
			c.logger.Error().Err(err).
				Int64("event_a", sim.EventA).
				Int64("event_b", sim.EventB).
				Msg("Failed to publish similarity update")
		}
	}
	metrics.RecordPairUpdates(len(changed))
	return nil
}

func (c *Consumer) publishSimilarity(ctx context.Context, sim *events.PairSimilarity) error {
	pubCtx := ctx
	if c.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(ctx, c.cfg.PublishTimeout)
		defer cancel()
	}
	return c.publisher.PublishSimilarity(pubCtx, sim)
}
