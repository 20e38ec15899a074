// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

// Package recommend answers read-only queries over the action weight and
// event similarity stores. Every operation is a pure function of the two
// stores and is safe to call concurrently with the aggregator's writes.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mkarelin/affinity/internal/config"
	"github.com/mkarelin/affinity/internal/metrics"
	"github.com/mkarelin/affinity/internal/store"
)

// Scored is one ranked result row.
type Scored struct {
	EventID int64   `json:"event_id"`
	Score   float64 `json:"score"`
}

// Engine serves the three query operations.
type Engine struct {
	weights      *store.ActionWeightStore
	similarities *store.SimilarityStore
	cfg          config.RecommendConfig
}

func NewEngine(weights *store.ActionWeightStore, similarities *store.SimilarityStore, cfg config.RecommendConfig) *Engine {
	return &Engine{weights: weights, similarities: similarities, cfg: cfg}
}

// SimilarEvents returns the events most similar to eventID, highest score
// first, excluding events the user has already interacted with. An unknown
// event or user yields an empty result, not an error.
func (e *Engine) SimilarEvents(ctx context.Context, eventID, userID int64, maxResults int) ([]Scored, error) {
	start := time.Now()
	defer func() { metrics.RecordRecommendQuery("similar_events", time.Since(start)) }()

	neighbors, err := e.similarities.Neighbors(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("loading neighbors of event %d: %w", eventID, err)
	}

	interacted := map[int64]float64{}
	if userID > 0 {
		interacted, err = e.weights.WeightsByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("loading weights of user %d: %w", userID, err)
		}
	}

	results := make([]Scored, 0, len(neighbors))
	for _, n := range neighbors {
		if n.EventID == eventID {
			continue
		}
		if _, seen := interacted[n.EventID]; seen {
			continue
		}
		results = append(results, Scored{EventID: n.EventID, Score: n.Score})
	}
	sortScored(results)
	return truncate(results, e.maxResults(maxResults)), nil
}

// RecommendationsForUser predicts events for a user from their most recent
// interactions. Each recent event seeds candidates through its similarity
// neighbors; a candidate's predicted score is the similarity-weighted mean
// of the user's weights on the seeds that reached it.
func (e *Engine) RecommendationsForUser(ctx context.Context, userID int64, maxResults int) ([]Scored, error) {
	start := time.Now()
	defer func() { metrics.RecordRecommendQuery("user_recommendations", time.Since(start)) }()

	seedCount := e.cfg.SeedCount
	if seedCount <= 0 {
		seedCount = 10
	}
	seeds, err := e.weights.RecentByUser(ctx, userID, seedCount)
	if err != nil {
		return nil, fmt.Errorf("loading recent events of user %d: %w", userID, err)
	}
	if len(seeds) == 0 {
		return []Scored{}, nil
	}

	interacted, err := e.weights.WeightsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading weights of user %d: %w", userID, err)
	}

	// candidate event -> (similarity to a seed, user's weight on that seed)
	type link struct {
		similarity float64
		seedWeight float64
	}
	candidates := make(map[int64][]link)
	for _, seed := range seeds {
		neighbors, err := e.similarities.Neighbors(ctx, seed)
		if err != nil {
			return nil, fmt.Errorf("loading neighbors of seed event %d: %w", seed, err)
		}
		for _, n := range neighbors {
			if _, seen := interacted[n.EventID]; seen {
				continue
			}
			if n.Score <= 0 {
				continue
			}
			candidates[n.EventID] = append(candidates[n.EventID], link{
				similarity: n.Score,
				seedWeight: interacted[seed],
			})
		}
	}

	neighborLimit := e.cfg.NeighborLimit
	if neighborLimit <= 0 {
		neighborLimit = 10
	}
	results := make([]Scored, 0, len(candidates))
	for eventID, links := range candidates {
		sort.Slice(links, func(i, j int) bool { return links[i].similarity > links[j].similarity })
		if len(links) > neighborLimit {
			links = links[:neighborLimit]
		}
		var num, den float64
		for _, l := range links {
			num += l.similarity * l.seedWeight
			den += l.similarity
		}
		if den <= 0 {
			continue
		}
		results = append(results, Scored{EventID: eventID, Score: num / den})
	}
	sortScored(results)
	return truncate(results, e.maxResults(maxResults)), nil
}

// InteractionsCount returns the sum of stored weights per requested event,
// zero for unknown events, in request order. The sum acts as an engagement
// score, not a probability.
func (e *Engine) InteractionsCount(ctx context.Context, eventIDs []int64) ([]Scored, error) {
	start := time.Now()
	defer func() { metrics.RecordRecommendQuery("interactions_count", time.Since(start)) }()

	results := make([]Scored, 0, len(eventIDs))
	for _, eventID := range eventIDs {
		sum, err := e.weights.SumForEvent(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("summing weights of event %d: %w", eventID, err)
		}
		results = append(results, Scored{EventID: eventID, Score: sum})
	}
	return results, nil
}

func (e *Engine) maxResults(requested int) int {
	if requested > 0 {
		return requested
	}
	if e.cfg.MaxResults > 0 {
		return e.cfg.MaxResults
	}
	return 10
}

// sortScored orders by score descending, ties broken by lower event id so
// results are deterministic.
func sortScored(s []Scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].EventID < s[j].EventID
	})
}

func truncate(s []Scored, limit int) []Scored {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
