// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package events

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Serializer handles message encoding/decoding for NATS payloads.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// MarshalAction converts a user action to JSON bytes.
func (s *Serializer) MarshalAction(action *UserAction) ([]byte, error) {
	if err := action.Validate(); err != nil {
		return nil, fmt.Errorf("validate action: %w", err)
	}

	data, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("marshal action: %w", err)
	}

	return data, nil
}

// UnmarshalAction converts JSON bytes to a user action.
// The decoded record is validated so malformed log entries surface as errors
// at the consumer boundary instead of as zero weights deeper in.
func (s *Serializer) UnmarshalAction(data []byte) (*UserAction, error) {
	var action UserAction
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, fmt.Errorf("unmarshal action: %w", err)
	}
	if err := action.Validate(); err != nil {
		return nil, fmt.Errorf("validate action: %w", err)
	}

	return &action, nil
}

// MarshalSimilarity converts a pair similarity to JSON bytes.
func (s *Serializer) MarshalSimilarity(sim *PairSimilarity) ([]byte, error) {
	if err := sim.Validate(); err != nil {
		return nil, fmt.Errorf("validate similarity: %w", err)
	}

	data, err := json.Marshal(sim)
	if err != nil {
		return nil, fmt.Errorf("marshal similarity: %w", err)
	}

	return data, nil
}

// UnmarshalSimilarity converts JSON bytes to a pair similarity.
func (s *Serializer) UnmarshalSimilarity(data []byte) (*PairSimilarity, error) {
	var sim PairSimilarity
	if err := json.Unmarshal(data, &sim); err != nil {
		return nil, fmt.Errorf("unmarshal similarity: %w", err)
	}
	if err := sim.Validate(); err != nil {
		return nil, fmt.Errorf("validate similarity: %w", err)
	}

	return &sim, nil
}
