// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package aggregator

import (
	"context"
	"math"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/mkarelin/affinity/internal/events"
	"github.com/mkarelin/affinity/internal/store"
)

func action(userID, eventID int64, t events.ActionType) *events.UserAction {
	return &events.UserAction{
		UserID:    userID,
		EventID:   eventID,
		Type:      t,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestApplyFirstSharedUser(t *testing.T) {
	agg := New()

	if got := agg.Apply(action(1, 1, events.ActionView)); len(got) != 0 {
		t.Errorf("expected no pair updates for a single event, got %d", len(got))
	}

	updated := agg.Apply(action(1, 2, events.ActionLike))
	if len(updated) != 1 {
		t.Fatalf("expected 1 pair update, got %d", len(updated))
	}

	// minSum(1,2) = min(0.4, 1.0) = 0.4; score = 0.4 / sqrt(0.4 * 1.0).
	want := 0.4 / math.Sqrt(0.4*1.0)
	pair := updated[0]
	if pair.EventA != 1 || pair.EventB != 2 {
		t.Errorf("expected pair (1,2), got (%d,%d)", pair.EventA, pair.EventB)
	}
	if !almostEqual(pair.Score, want) {
		t.Errorf("expected score %v, got %v", want, pair.Score)
	}
}

func TestApplyMonotonicNoOp(t *testing.T) {
	agg := New()
	agg.Apply(action(1, 1, events.ActionView))
	agg.Apply(action(1, 2, events.ActionLike))

	scoreBefore, ok := agg.Score(1, 2)
	if !ok {
		t.Fatal("expected a score for pair (1,2)")
	}

	tests := []struct {
		name string
		act  *events.UserAction
	}{
		{name: "replayed view", act: action(1, 1, events.ActionView)},
		{name: "replayed like", act: action(1, 2, events.ActionLike)},
		{name: "weaker action on liked event", act: action(1, 2, events.ActionView)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.Apply(tt.act); got != nil {
				t.Errorf("expected no updates, got %d", len(got))
			}
			scoreAfter, _ := agg.Score(1, 2)
			if !almostEqual(scoreBefore, scoreAfter) {
				t.Errorf("score changed from %v to %v", scoreBefore, scoreAfter)
			}
		})
	}
}

func TestApplyWeightUpgrade(t *testing.T) {
	agg := New()
	agg.Apply(action(1, 1, events.ActionView))
	agg.Apply(action(1, 2, events.ActionView))

	if score, _ := agg.Score(1, 2); !almostEqual(score, 1.0) {
		t.Fatalf("expected score 1.0 for two equal views, got %v", score)
	}

	// Upgrading event 2 to a like leaves the intersection at 0.4 but raises
	// sum(2) to 1.0, so the pair must be rescored and re-emitted.
	updated := agg.Apply(action(1, 2, events.ActionLike))
	if len(updated) != 1 {
		t.Fatalf("expected 1 pair update, got %d", len(updated))
	}
	want := 0.4 / math.Sqrt(0.4*1.0)
	if !almostEqual(updated[0].Score, want) {
		t.Errorf("expected score %v, got %v", want, updated[0].Score)
	}
}

func TestApplySecondUserShiftsSums(t *testing.T) {
	agg := New()
	agg.Apply(action(1, 1, events.ActionView))
	agg.Apply(action(1, 2, events.ActionLike))

	// User 2 only touches event 1: no new pair through that user, but the
	// accumulator view of (1,2) reflects the larger sum(1).
	if got := agg.Apply(action(2, 1, events.ActionLike)); len(got) != 0 {
		t.Errorf("expected no pair updates for a single-event user, got %d", len(got))
	}
	if sum := agg.EventSum(1); !almostEqual(sum, 1.4) {
		t.Errorf("expected sum(1) = 1.4, got %v", sum)
	}
	want := 0.4 / math.Sqrt(1.4*1.0)
	if score, _ := agg.Score(1, 2); !almostEqual(score, want) {
		t.Errorf("expected score %v, got %v", want, score)
	}
}

func TestScoreSymmetry(t *testing.T) {
	agg := New()
	agg.Apply(action(1, 7, events.ActionRegister))
	agg.Apply(action(1, 3, events.ActionLike))

	forward, okF := agg.Score(3, 7)
	reverse, okR := agg.Score(7, 3)
	if !okF || !okR {
		t.Fatal("expected a score in both argument orders")
	}
	if !almostEqual(forward, reverse) {
		t.Errorf("asymmetric scores: %v vs %v", forward, reverse)
	}
}

func TestNoOverlapNoScore(t *testing.T) {
	agg := New()
	agg.Apply(action(1, 1, events.ActionLike))
	agg.Apply(action(2, 2, events.ActionLike))

	if _, ok := agg.Score(1, 2); ok {
		t.Error("expected no score for events with disjoint user sets")
	}
}

func TestApplyMultipleNeighborsSorted(t *testing.T) {
	agg := New()
	agg.Apply(action(1, 5, events.ActionView))
	agg.Apply(action(1, 3, events.ActionView))
	agg.Apply(action(1, 9, events.ActionView))

	updated := agg.Apply(action(1, 4, events.ActionLike))
	if len(updated) != 3 {
		t.Fatalf("expected 3 pair updates, got %d", len(updated))
	}
	wantPairs := [][2]int64{{3, 4}, {4, 5}, {4, 9}}
	for i, want := range wantPairs {
		if updated[i].EventA != want[0] || updated[i].EventB != want[1] {
			t.Errorf("pair %d: expected (%d,%d), got (%d,%d)",
				i, want[0], want[1], updated[i].EventA, updated[i].EventB)
		}
	}
}

func TestRebuildMatchesLiveState(t *testing.T) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open in-memory badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	weights := store.NewActionWeightStore(db)
	live := New()

	actions := []*events.UserAction{
		action(1, 1, events.ActionView),
		action(1, 2, events.ActionLike),
		action(2, 1, events.ActionRegister),
		action(2, 3, events.ActionLike),
		action(1, 1, events.ActionLike),
	}
	for _, act := range actions {
		if _, _, err := weights.PutIfGreater(ctx, act.UserID, act.EventID, act.Type.Weight(), act.Timestamp); err != nil {
			t.Fatalf("failed to persist weight: %v", err)
		}
		live.Apply(act)
	}

	rebuilt := New()
	if err := rebuilt.Rebuild(ctx, weights); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	now := time.Now()
	livePairs := live.Snapshot(now)
	rebuiltPairs := rebuilt.Snapshot(now)
	if len(livePairs) != len(rebuiltPairs) {
		t.Fatalf("expected %d pairs after rebuild, got %d", len(livePairs), len(rebuiltPairs))
	}
	for i := range livePairs {
		if livePairs[i].EventA != rebuiltPairs[i].EventA ||
			livePairs[i].EventB != rebuiltPairs[i].EventB ||
			!almostEqual(livePairs[i].Score, rebuiltPairs[i].Score) {
			t.Errorf("pair %d diverged after rebuild: live %+v, rebuilt %+v",
				i, livePairs[i], rebuiltPairs[i])
		}
	}
}
