// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

// Package aggregator maintains the incremental event-similarity state.
//
// The aggregator owns three in-memory structures: per-user event weights,
// per-event weight sums, and per-pair min-weight intersection sums. A single
// processing loop applies each user action, derives the changed pairwise
// similarity scores in O(user history) per action, and hands them to the
// caller for publication. No other component mutates this state.
package aggregator

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mkarelin/affinity/internal/events"
	"github.com/mkarelin/affinity/internal/store"
)

// pairKey identifies an unordered event pair, normalized so A < B.
type pairKey struct {
	A int64
	B int64
}

func newPairKey(a, b int64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}

// Aggregator holds the incremental similarity state. Apply and Rebuild must
// be called from a single goroutine; the mutex only guards against misuse.
type Aggregator struct {
	mu sync.Mutex

	// userWeights maps userID -> eventID -> maximum observed weight.
	userWeights map[int64]map[int64]float64

	// eventSums maps eventID -> sum of all user weights for the event.
	eventSums map[int64]float64

	// pairMinSums maps a normalized pair -> sum over users of
	// min(weight(user, A), weight(user, B)).
	pairMinSums map[pairKey]float64
}

func New() *Aggregator {
	return &Aggregator{
		userWeights: make(map[int64]map[int64]float64),
		eventSums:   make(map[int64]float64),
		pairMinSums: make(map[pairKey]float64),
	}
}

// Apply folds one user action into the state and returns the pair
// similarities whose scores changed, ordered by the other event id for
// deterministic output.
//
// An action whose weight does not exceed the stored weight for the same
// (user, event) is a no-op: weights only ever increase, which makes replays
// and redeliveries idempotent.
func (a *Aggregator) Apply(action *events.UserAction) []events.PairSimilarity {
	a.mu.Lock()
	defer a.mu.Unlock()

	wNew := action.Type.Weight()
	userID, eventID := action.UserID, action.EventID

	weights := a.userWeights[userID]
	wOld := weights[eventID]
	if wNew <= wOld {
		return nil
	}

	if weights == nil {
		weights = make(map[int64]float64)
		a.userWeights[userID] = weights
	}
	weights[eventID] = wNew
	a.eventSums[eventID] += wNew - wOld

	others := make([]int64, 0, len(weights)-1)
	for other := range weights {
		if other != eventID {
			others = append(others, other)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i] < others[j] })

	updated := make([]events.PairSimilarity, 0, len(others))
	for _, other := range others {
		wOther := weights[other]
		if wOther <= 0 {
			continue
		}
		key := newPairKey(eventID, other)
		a.pairMinSums[key] += math.Min(wNew, wOther) - math.Min(wOld, wOther)

		// The updated event's sum changed, so every pair through this
		// user is rescored even when the intersection delta is zero.
		score, ok := a.score(key)
		if !ok {
			continue
		}
		updated = append(updated, events.NewPairSimilarity(key.A, key.B, score, action.Timestamp))
	}
	return updated
}

// score computes minSum / sqrt(sumA * sumB) for a pair. It reports false
// while either event sum is zero, in which case the score is undefined and
// must not be emitted.
func (a *Aggregator) score(key pairKey) (float64, bool) {
	sumA, sumB := a.eventSums[key.A], a.eventSums[key.B]
	if sumA <= 0 || sumB <= 0 {
		return 0, false
	}
	minSum := a.pairMinSums[key]
	if minSum <= 0 {
		return 0, false
	}
	return minSum / math.Sqrt(sumA*sumB), true
}

// Score returns the current similarity for a pair, in either argument order.
func (a *Aggregator) Score(eventA, eventB int64) (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.score(newPairKey(eventA, eventB))
}

// Weight returns the stored weight for a (user, event), zero when absent.
func (a *Aggregator) Weight(userID, eventID int64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userWeights[userID][eventID]
}

// EventSum returns the aggregate weight sum for an event.
func (a *Aggregator) EventSum(eventID int64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eventSums[eventID]
}

// Rebuild reconstructs the in-memory state from the persisted action weight
// store. Each (user, event) appears at most once in the store, so folding
// every record from a zero prior weight reproduces the live accumulators.
func (a *Aggregator) Rebuild(ctx context.Context, weights *store.ActionWeightStore) error {
	a.mu.Lock()
	a.userWeights = make(map[int64]map[int64]float64)
	a.eventSums = make(map[int64]float64)
	a.pairMinSums = make(map[pairKey]float64)
	a.mu.Unlock()

	return weights.ForEach(ctx, func(userID, eventID int64, weight float64) error {
		a.fold(userID, eventID, weight)
		return nil
	})
}

func (a *Aggregator) fold(userID, eventID int64, weight float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if weight <= 0 {
		return
	}
	userWeights := a.userWeights[userID]
	if userWeights == nil {
		userWeights = make(map[int64]float64)
		a.userWeights[userID] = userWeights
	}
	if weight <= userWeights[eventID] {
		return
	}
	wOld := userWeights[eventID]
	userWeights[eventID] = weight
	a.eventSums[eventID] += weight - wOld
	for other, wOther := range userWeights {
		if other == eventID || wOther <= 0 {
			continue
		}
		key := newPairKey(eventID, other)
		a.pairMinSums[key] += math.Min(weight, wOther) - math.Min(wOld, wOther)
	}
}

// Snapshot returns the current pair scores sorted by pair, with undefined
// scores omitted.
func (a *Aggregator) Snapshot(now time.Time) []events.PairSimilarity {
	a.mu.Lock()
	defer a.mu.Unlock()

	pairs := make([]events.PairSimilarity, 0, len(a.pairMinSums))
	for key := range a.pairMinSums {
		score, ok := a.score(key)
		if !ok {
			continue
		}
		pairs = append(pairs, events.NewPairSimilarity(key.A, key.B, score, now))
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].EventA != pairs[j].EventA {
			return pairs[i].EventA < pairs[j].EventA
		}
		return pairs[i].EventB < pairs[j].EventB
	})
	return pairs
}
