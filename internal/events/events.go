// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

// Package events defines the canonical message types flowing through the
// action and similarity logs, and the weight mapping for interaction kinds.
package events

import (
	"time"
)

// NATS subjects for the two durable logs.
const (
	// SubjectActions carries user interaction records, keyed by user id.
	SubjectActions = "actions.ingest"
	// SubjectSimilarity carries changed pair scores, keyed by the lower event id.
	SubjectSimilarity = "similarity.pairs"
)

// ActionType is the closed set of interaction kinds.
type ActionType string

// Interaction kinds, in increasing order of interest.
const (
	ActionView     ActionType = "view"
	ActionRegister ActionType = "register"
	ActionLike     ActionType = "like"
)

// Weight returns the interest weight for the action type.
// Unknown types return 0; callers must reject them via Valid() first.
func (t ActionType) Weight() float64 {
	switch t {
	case ActionView:
		return 0.4
	case ActionRegister:
		return 0.8
	case ActionLike:
		return 1.0
	default:
		return 0
	}
}

// Valid reports whether the action type is a member of the closed set.
func (t ActionType) Valid() bool {
	switch t {
	case ActionView, ActionRegister, ActionLike:
		return true
	default:
		return false
	}
}

// UserAction is an interaction record on the actions log.
type UserAction struct {
	UserID    int64      `json:"user_id"`
	EventID   int64      `json:"event_id"`
	Type      ActionType `json:"action_type"`
	Timestamp time.Time  `json:"timestamp"`
}

// Validate checks required fields and returns an error if validation fails.
func (a *UserAction) Validate() error {
	if a.UserID <= 0 {
		return &ValidationError{Field: "user_id", Message: "required"}
	}
	if a.EventID <= 0 {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if !a.Type.Valid() {
		return &ValidationError{Field: "action_type", Message: "unknown action type " + string(a.Type)}
	}
	return nil
}

// PairSimilarity is a changed pairwise score on the similarity log.
// EventA < EventB always holds for values built with NewPairSimilarity;
// consumers must treat the pair as unordered.
type PairSimilarity struct {
	EventA    int64     `json:"event_a"`
	EventB    int64     `json:"event_b"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPairSimilarity builds a similarity record with normalized pair order.
func NewPairSimilarity(eventA, eventB int64, score float64, ts time.Time) PairSimilarity {
	if eventA > eventB {
		eventA, eventB = eventB, eventA
	}
	return PairSimilarity{EventA: eventA, EventB: eventB, Score: score, Timestamp: ts}
}

// Validate checks required fields and pair ordering.
func (s *PairSimilarity) Validate() error {
	if s.EventA <= 0 {
		return &ValidationError{Field: "event_a", Message: "required"}
	}
	if s.EventB <= 0 {
		return &ValidationError{Field: "event_b", Message: "required"}
	}
	if s.EventA == s.EventB {
		return &ValidationError{Field: "event_b", Message: "self pair"}
	}
	if s.EventA > s.EventB {
		return &ValidationError{Field: "event_a", Message: "pair not normalized"}
	}
	return nil
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
