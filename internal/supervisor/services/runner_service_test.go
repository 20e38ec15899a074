// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package services

import (
	"context"
	"errors"
	"testing"
)

func TestRunnerServiceDelegates(t *testing.T) {
	runErr := errors.New("consumer crashed")
	svc := NewRunnerService("aggregator", RunnerFunc(func(_ context.Context) error {
		return runErr
	}))

	if err := svc.Serve(context.Background()); !errors.Is(err, runErr) {
		t.Errorf("expected run error, got %v", err)
	}
	if svc.String() != "aggregator" {
		t.Errorf("unexpected service name %q", svc.String())
	}
}

func TestRunnerServicePropagatesCancellation(t *testing.T) {
	svc := NewRunnerService("analyzer", RunnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
