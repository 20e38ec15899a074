// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package stream

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cfg := CircuitBreakerConfig{
		Name:             "test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 3,
	}
	cb := NewCircuitBreaker(cfg)

	failing := func() (interface{}, error) {
		return nil, errors.New("downstream unavailable")
	}

	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(failing); err == nil {
			t.Fatal("expected failure")
		}
	}

	if got := CircuitBreakerState(cb); got != "open" {
		t.Errorf("expected breaker open after %d failures, got %s", cfg.FailureThreshold, got)
	}

	// Calls while open fail fast without invoking the function.
	invoked := false
	_, err := cb.Execute(func() (interface{}, error) {
		invoked = true
		return nil, nil
	})
	if err == nil {
		t.Error("expected error while breaker is open")
	}
	if invoked {
		t.Error("expected open breaker to short-circuit the call")
	}
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	for i := 0; i < 10; i++ {
		if _, err := cb.Execute(func() (interface{}, error) { return nil, nil }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := CircuitBreakerState(cb); got != "closed" {
		t.Errorf("expected breaker closed, got %s", got)
	}
}
