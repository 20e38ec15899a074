// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkarelin/affinity/internal/events"
)

type capturePublisher struct {
	published []events.UserAction
	err       error
}

func (p *capturePublisher) PublishAction(_ context.Context, action *events.UserAction) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, *action)
	return nil
}

func TestSubmitPublishesValidAction(t *testing.T) {
	pub := &capturePublisher{}
	collector := NewCollector(pub)

	action := &events.UserAction{
		UserID:    1,
		EventID:   2,
		Type:      events.ActionLike,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := collector.Submit(context.Background(), action); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published action, got %d", len(pub.published))
	}
	if pub.published[0] != *action {
		t.Errorf("published action %+v does not match input %+v", pub.published[0], *action)
	}
}

func TestSubmitStampsMissingTimestamp(t *testing.T) {
	pub := &capturePublisher{}
	collector := NewCollector(pub)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	collector.now = func() time.Time { return fixed }

	action := &events.UserAction{UserID: 1, EventID: 2, Type: events.ActionView}
	if err := collector.Submit(context.Background(), action); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !pub.published[0].Timestamp.Equal(fixed) {
		t.Errorf("expected stamped timestamp %v, got %v", fixed, pub.published[0].Timestamp)
	}
}

func TestSubmitRejectsInvalidAction(t *testing.T) {
	tests := []struct {
		name   string
		action *events.UserAction
	}{
		{name: "zero user id", action: &events.UserAction{EventID: 2, Type: events.ActionView}},
		{name: "zero event id", action: &events.UserAction{UserID: 1, Type: events.ActionView}},
		{name: "unknown action type", action: &events.UserAction{UserID: 1, EventID: 2, Type: "share"}},
	}

	pub := &capturePublisher{}
	collector := NewCollector(pub)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := collector.Submit(context.Background(), tt.action)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			var verr *events.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected *events.ValidationError, got %T", err)
			}
		})
	}
	if len(pub.published) != 0 {
		t.Errorf("expected no published actions, got %d", len(pub.published))
	}
}

func TestSubmitWrapsPublishError(t *testing.T) {
	pubErr := errors.New("stream unavailable")
	collector := NewCollector(&capturePublisher{err: pubErr})

	action := &events.UserAction{UserID: 1, EventID: 2, Type: events.ActionView}
	err := collector.Submit(context.Background(), action)
	if !errors.Is(err, pubErr) {
		t.Errorf("expected wrapped publish error, got %v", err)
	}
}
