// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

// Package store persists action weights and pair similarity scores in
// BadgerDB. Keys are prefixed strings with ':' delimiters; numeric segments
// that need ordered iteration are zero-padded so lexicographic order matches
// the intended order.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mkarelin/affinity/internal/config"
	"github.com/mkarelin/affinity/internal/logging"
)

// Open opens the BadgerDB backing the weight and similarity stores.
func Open(cfg config.StoreConfig) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return db, nil
}

// RunGC runs Badger value-log garbage collection on a timer until the context
// is canceled. Safe to run as a goroutine; no-op for in-memory databases.
func RunGC(ctx context.Context, db *badger.DB, interval time.Duration, discardRatio float64) {
	logger := logging.WithComponent("store")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// RunValueLogGC reclaims at most one file per call, so loop
			// until it reports nothing left to collect.
			for {
				err := db.RunValueLogGC(discardRatio)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
						logger.Warn().Err(err).Msg("Value log GC failed")
					}
					break
				}
				logger.Debug().Msg("Value log GC reclaimed a file")
			}
		}
	}
}
