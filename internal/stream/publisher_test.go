// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package stream

import (
	"errors"
	"testing"
)

func TestPublisher_BreakerState(t *testing.T) {
	p := &Publisher{}

	if got := p.BreakerState(); got != "disabled" {
		t.Errorf("expected disabled without a breaker, got %s", got)
	}

	cfg := DefaultCircuitBreakerConfig("test")
	cfg.FailureThreshold = 1
	cb := NewCircuitBreaker(cfg)
	p.SetCircuitBreaker(cb)

	if got := p.BreakerState(); got != "closed" {
		t.Errorf("expected closed breaker, got %s", got)
	}

	if _, err := cb.Execute(func() (interface{}, error) {
		return nil, errors.New("downstream unavailable")
	}); err == nil {
		t.Fatal("expected failure")
	}

	if got := p.BreakerState(); got != "open" {
		t.Errorf("expected open breaker after tripping, got %s", got)
	}
}
