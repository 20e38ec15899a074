// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package store

import (
	"context"
	"testing"
	"time"
)

func TestSimilarityStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewSimilarityStore(newTestDB(t))
	ts := time.Now()

	if err := s.Upsert(ctx, 1, 2, 0.5, ts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("forward order", func(t *testing.T) {
		score, found, err := s.Get(ctx, 1, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !found || score != 0.5 {
			t.Errorf("expected score 0.5, got %v (found=%v)", score, found)
		}
	})

	t.Run("reverse order", func(t *testing.T) {
		score, found, err := s.Get(ctx, 2, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !found || score != 0.5 {
			t.Errorf("expected score 0.5 in reverse order, got %v (found=%v)", score, found)
		}
	})

	t.Run("missing pair", func(t *testing.T) {
		_, found, err := s.Get(ctx, 1, 99)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected no score for unknown pair")
		}
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		if err := s.Upsert(ctx, 2, 1, 0.75, ts.Add(time.Second)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		score, found, err := s.Get(ctx, 1, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !found || score != 0.75 {
			t.Errorf("expected updated score 0.75, got %v (found=%v)", score, found)
		}
	})
}

func TestSimilarityStore_Neighbors(t *testing.T) {
	ctx := context.Background()
	s := NewSimilarityStore(newTestDB(t))
	ts := time.Now()

	if err := s.Upsert(ctx, 1, 2, 0.3, ts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Upsert(ctx, 1, 3, 0.9, ts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Upsert(ctx, 2, 3, 0.6, ts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	neighbors, err := s.Neighbors(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors of event 1, got %v", neighbors)
	}

	scores := make(map[int64]float64)
	for _, n := range neighbors {
		scores[n.EventID] = n.Score
	}
	if scores[2] != 0.3 || scores[3] != 0.9 {
		t.Errorf("unexpected neighbor scores: %v", scores)
	}

	t.Run("event with no pairs", func(t *testing.T) {
		neighbors, err := s.Neighbors(ctx, 42)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(neighbors) != 0 {
			t.Errorf("expected no neighbors, got %v", neighbors)
		}
	})
}
