// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

// Package ingest accepts user actions at the system boundary and appends
// them to the durable action log. It performs no aggregation; ordering and
// idempotence are handled downstream.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkarelin/affinity/internal/events"
	"github.com/mkarelin/affinity/internal/logging"
)

// ActionPublisher appends an action to the durable log. *stream.Publisher
// satisfies it.
type ActionPublisher interface {
	PublishAction(ctx context.Context, action *events.UserAction) error
}

// Collector validates incoming actions and hands them to the log.
type Collector struct {
	publisher ActionPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewCollector(publisher ActionPublisher) *Collector {
	return &Collector{
		publisher: publisher,
		logger:    logging.WithComponent("ingest"),
		now:       time.Now,
	}
}

// Submit validates the action, stamps a missing timestamp, and appends it to
// the action log. Validation failures are returned unwrapped so callers can
// distinguish them from transport errors.
func (c *Collector) Submit(ctx context.Context, action *events.UserAction) error {
	if action.Timestamp.IsZero() {
		action.Timestamp = c.now().UTC()
	}
	if err := action.Validate(); err != nil {
		return err
	}
	if err := c.publisher.PublishAction(ctx, action); err != nil {
		return fmt.Errorf("appending action to log: %w", err)
	}
	c.logger.Debug().
		Int64("user_id", action.UserID).
		Int64("event_id", action.EventID).
		Str("action_type", string(action.Type)).
		Msg("Action accepted")
	return nil
}
