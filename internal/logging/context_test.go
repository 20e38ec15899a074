// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGenerateCorrelationID(t *testing.T) {
	id1 := GenerateCorrelationID()
	id2 := GenerateCorrelationID()

	if len(id1) != 8 {
		t.Errorf("expected 8-char correlation ID, got %d chars: %s", len(id1), id1)
	}
	if id1 == id2 {
		t.Error("expected unique correlation IDs")
	}
}

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	if len(id) != 36 {
		t.Errorf("expected UUID-length request ID, got %d chars: %s", len(id), id)
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("expected empty correlation ID, got %s", got)
	}

	ctx = ContextWithCorrelationID(ctx, "abc12345")
	if got := CorrelationIDFromContext(ctx); got != "abc12345" {
		t.Errorf("expected 'abc12345', got %s", got)
	}
}

func TestContextWithNewCorrelationID(t *testing.T) {
	ctx := ContextWithNewCorrelationID(context.Background())
	if CorrelationIDFromContext(ctx) == "" {
		t.Error("expected generated correlation ID in context")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty request ID, got %s", got)
	}

	ctx = ContextWithRequestID(ctx, "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("expected 'req-1', got %s", got)
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	custom := zerolog.New(&buf)

	ctx := ContextWithLogger(context.Background(), custom)
	logger := LoggerFromContext(ctx)
	logger.Info().Msg("from context")

	if !strings.Contains(buf.String(), "from context") {
		t.Errorf("expected custom logger to receive output: %s", buf.String())
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer

	SetLogger(zerolog.New(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	ctx := ContextWithCorrelationID(context.Background(), "corr1234")
	ctx = ContextWithRequestID(ctx, "req-uuid")

	Ctx(ctx).Info().Msg("with context")

	output := buf.String()
	if !strings.Contains(output, "corr1234") {
		t.Errorf("expected correlation ID in output: %s", output)
	}
	if !strings.Contains(output, "req-uuid") {
		t.Errorf("expected request ID in output: %s", output)
	}
}

func TestCtxWith(t *testing.T) {
	var buf bytes.Buffer

	SetLogger(zerolog.New(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	ctx := ContextWithCorrelationID(context.Background(), "corr5678")
	logger := CtxWith(ctx).Int64("user_id", 42).Logger()
	logger.Info().Msg("user action")

	output := buf.String()
	if !strings.Contains(output, "corr5678") {
		t.Errorf("expected correlation ID in output: %s", output)
	}
	if !strings.Contains(output, `"user_id":42`) {
		t.Errorf("expected user_id field in output: %s", output)
	}
}

func TestCtxErr(t *testing.T) {
	var buf bytes.Buffer

	SetLogger(zerolog.New(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	ctx := ContextWithCorrelationID(context.Background(), "errcorr1")
	CtxErr(ctx, &testError{msg: "boom"}).Msg("failed")

	output := buf.String()
	if !strings.Contains(output, "boom") {
		t.Errorf("expected error message in output: %s", output)
	}
	if !strings.Contains(output, "errcorr1") {
		t.Errorf("expected correlation ID in output: %s", output)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	SetLogger(zerolog.New(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	logger := WithComponent("aggregator")
	logger.Info().Msg("component message")

	output := buf.String()
	if !strings.Contains(output, `"component":"aggregator"`) {
		t.Errorf("expected component field in output: %s", output)
	}
}
