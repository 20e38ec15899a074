// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package services

import (
	"context"
)

// Runner is a component with a blocking Run loop, such as the aggregator
// and analyzer consumers.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a bare function to the Runner interface.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// RunnerService wraps a Runner as a supervised service. A Run that returns
// an error is restarted by the supervisor; returning the context error on
// cancellation tells suture the stop was intentional.
type RunnerService struct {
	name   string
	runner Runner
}

func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{name: name, runner: runner}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *RunnerService) String() string {
	return s.name
}
