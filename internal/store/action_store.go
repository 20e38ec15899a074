// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for action weight storage.
//
//	aw:<user>:<event>          weight record, indexed by user
//	awe:<event>:<user>         weight record, indexed by event
//	awt:<user>:<invTs>:<event> recency index; inverted timestamp puts the
//	                           newest interaction first in key order
const (
	weightByUserPrefix  = "aw:"
	weightByEventPrefix = "awe:"
	recencyPrefix       = "awt:"
)

// weightRecord is the stored value for a (user, event) pair.
type weightRecord struct {
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionWeightStore persists the maximum interaction weight per (user, event)
// pair, with secondary indexes by event and by interaction recency.
type ActionWeightStore struct {
	db *badger.DB
}

// NewActionWeightStore creates an action weight store on an open database.
func NewActionWeightStore(db *badger.DB) *ActionWeightStore {
	return &ActionWeightStore{db: db}
}

func userEventKey(userID, eventID int64) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", weightByUserPrefix, userID, eventID))
}

func eventUserKey(eventID, userID int64) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", weightByEventPrefix, eventID, userID))
}

func recencyKey(userID int64, ts time.Time, eventID int64) []byte {
	// Inverted, zero-padded nanoseconds: lexicographic ascending order over
	// keys is descending order over time.
	inv := uint64(math.MaxInt64 - ts.UnixNano())
	return []byte(fmt.Sprintf("%s%d:%020d:%d", recencyPrefix, userID, inv, eventID))
}

// Get returns the stored weight for a (user, event) pair.
// The second return value is false when no interaction is recorded.
func (s *ActionWeightStore) Get(ctx context.Context, userID, eventID int64) (float64, bool, error) {
	var rec weightRecord
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEventKey(userID, eventID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get weight: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return 0, false, err
	}
	return rec.Weight, found, nil
}

// PutIfGreater stores the weight for a (user, event) pair if it exceeds the
// stored weight. Returns the previous weight and whether the store changed.
// Equal or lower weights leave the record untouched, which makes redelivered
// records a no-op.
func (s *ActionWeightStore) PutIfGreater(ctx context.Context, userID, eventID int64, weight float64, ts time.Time) (prev float64, updated bool, err error) {
	err = s.db.Update(func(txn *badger.Txn) error {
		var old weightRecord
		hadOld := false

		item, err := txn.Get(userEventKey(userID, eventID))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get weight: %w", err)
		}
		if err == nil {
			hadOld = true
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &old)
			}); err != nil {
				return fmt.Errorf("unmarshal weight: %w", err)
			}
		}

		prev = old.Weight
		if hadOld && old.Weight >= weight {
			return nil
		}

		rec := weightRecord{Weight: weight, Timestamp: ts}
		data, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("marshal weight: %w", err)
		}

		if err := txn.Set(userEventKey(userID, eventID), data); err != nil {
			return fmt.Errorf("set user index: %w", err)
		}
		if err := txn.Set(eventUserKey(eventID, userID), data); err != nil {
			return fmt.Errorf("set event index: %w", err)
		}

		// Move the recency entry to the new timestamp.
		if hadOld {
			if err := txn.Delete(recencyKey(userID, old.Timestamp, eventID)); err != nil {
				return fmt.Errorf("delete stale recency entry: %w", err)
			}
		}
		if err := txn.Set(recencyKey(userID, ts, eventID), nil); err != nil {
			return fmt.Errorf("set recency entry: %w", err)
		}

		updated = true
		return nil
	})
	return prev, updated, err
}

// SumForEvent returns the sum of all user weights recorded for an event.
func (s *ActionWeightStore) SumForEvent(ctx context.Context, eventID int64) (float64, error) {
	var sum float64

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("%s%d:", weightByEventPrefix, eventID))

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec weightRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("unmarshal weight: %w", err)
			}
			sum += rec.Weight
		}
		return nil
	})
	return sum, err
}

// WeightsByUser returns every (event, weight) the user has interacted with.
func (s *ActionWeightStore) WeightsByUser(ctx context.Context, userID int64) (map[int64]float64, error) {
	weights := make(map[int64]float64)

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("%s%d:", weightByUserPrefix, userID))

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var eventID int64
			if _, err := fmt.Sscanf(string(item.Key()[len(prefix):]), "%d", &eventID); err != nil {
				return fmt.Errorf("parse event id from key %q: %w", item.Key(), err)
			}

			var rec weightRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("unmarshal weight: %w", err)
			}
			weights[eventID] = rec.Weight
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return weights, nil
}

// RecentByUser returns up to limit event IDs the user interacted with,
// newest interaction first.
func (s *ActionWeightStore) RecentByUser(ctx context.Context, userID int64, limit int) ([]int64, error) {
	var events []int64

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("%s%d:", recencyPrefix, userID))

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(events) < limit; it.Next() {
			key := string(it.Item().Key()[len(prefix):])

			var inv uint64
			var eventID int64
			if _, err := fmt.Sscanf(key, "%d:%d", &inv, &eventID); err != nil {
				return fmt.Errorf("parse recency key %q: %w", key, err)
			}
			events = append(events, eventID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ForEach calls fn for every stored (user, event, weight) triple.
// Used to rebuild the in-memory accumulators on startup.
func (s *ActionWeightStore) ForEach(ctx context.Context, fn func(userID, eventID int64, weight float64) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(weightByUserPrefix)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()

			var userID, eventID int64
			if _, err := fmt.Sscanf(string(item.Key()[len(prefix):]), "%d:%d", &userID, &eventID); err != nil {
				return fmt.Errorf("parse key %q: %w", item.Key(), err)
			}

			var rec weightRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("unmarshal weight: %w", err)
			}

			if err := fn(userID, eventID, rec.Weight); err != nil {
				return err
			}
		}
		return nil
	})
}
