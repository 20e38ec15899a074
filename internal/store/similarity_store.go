// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Similarity scores are stored once per direction so that the neighbors of
// any event are a single prefix scan:
//
//	sim:<x>:<y>  score record, written for both (a,b) and (b,a)
const similarityPrefix = "sim:"

// scoreRecord is the stored value for a directed pair key.
type scoreRecord struct {
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// Neighbor is another event with its similarity score.
type Neighbor struct {
	EventID int64
	Score   float64
}

// SimilarityStore persists the latest similarity score per unordered event
// pair. Writes are last-writer-wins; the aggregator is the only producer so
// records arrive in causal order.
type SimilarityStore struct {
	db *badger.DB
}

// NewSimilarityStore creates a similarity store on an open database.
func NewSimilarityStore(db *badger.DB) *SimilarityStore {
	return &SimilarityStore{db: db}
}

func pairKey(from, to int64) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", similarityPrefix, from, to))
}

// Upsert stores the score for an event pair under both direction keys.
func (s *SimilarityStore) Upsert(ctx context.Context, eventA, eventB int64, score float64, ts time.Time) error {
	rec := scoreRecord{Score: score, Timestamp: ts}
	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(pairKey(eventA, eventB), data); err != nil {
			return fmt.Errorf("set pair: %w", err)
		}
		if err := txn.Set(pairKey(eventB, eventA), data); err != nil {
			return fmt.Errorf("set mirrored pair: %w", err)
		}
		return nil
	})
}

// Get returns the stored score for an event pair, in either order.
// The second return value is false when the pair has no score.
func (s *SimilarityStore) Get(ctx context.Context, eventA, eventB int64) (float64, bool, error) {
	var rec scoreRecord
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairKey(eventA, eventB))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get pair: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return 0, false, err
	}
	return rec.Score, found, nil
}

// Neighbors returns every event that shares a score with the given event.
// The result is unsorted; callers rank it as their query requires.
func (s *SimilarityStore) Neighbors(ctx context.Context, eventID int64) ([]Neighbor, error) {
	var neighbors []Neighbor

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("%s%d:", similarityPrefix, eventID))

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var other int64
			if _, err := fmt.Sscanf(string(item.Key()[len(prefix):]), "%d", &other); err != nil {
				return fmt.Errorf("parse neighbor from key %q: %w", item.Key(), err)
			}

			var rec scoreRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("unmarshal score: %w", err)
			}

			neighbors = append(neighbors, Neighbor{EventID: other, Score: rec.Score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return neighbors, nil
}
