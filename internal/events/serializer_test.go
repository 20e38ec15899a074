// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package events

import (
	"testing"
	"time"
)

func TestSerializer_Action(t *testing.T) {
	s := NewSerializer()
	ts := time.Date(2026, 5, 12, 10, 30, 0, 0, time.UTC)

	t.Run("round trip", func(t *testing.T) {
		action := &UserAction{
			UserID:    42,
			EventID:   101,
			Type:      ActionRegister,
			Timestamp: ts,
		}

		data, err := s.MarshalAction(action)
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}

		decoded, err := s.UnmarshalAction(data)
		if err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}

		if decoded.UserID != action.UserID {
			t.Errorf("Expected user %d, got %d", action.UserID, decoded.UserID)
		}
		if decoded.EventID != action.EventID {
			t.Errorf("Expected event %d, got %d", action.EventID, decoded.EventID)
		}
		if decoded.Type != action.Type {
			t.Errorf("Expected type %s, got %s", action.Type, decoded.Type)
		}
		if !decoded.Timestamp.Equal(ts) {
			t.Errorf("Expected timestamp %v, got %v", ts, decoded.Timestamp)
		}
	})

	t.Run("marshal rejects invalid action", func(t *testing.T) {
		action := &UserAction{UserID: 42, EventID: 101, Type: "attend"}
		if _, err := s.MarshalAction(action); err == nil {
			t.Error("Expected validation error on marshal")
		}
	})

	t.Run("unmarshal rejects malformed payload", func(t *testing.T) {
		if _, err := s.UnmarshalAction([]byte(`{not json`)); err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})

	t.Run("unmarshal rejects invalid record", func(t *testing.T) {
		payload := []byte(`{"user_id":0,"event_id":101,"action_type":"view"}`)
		if _, err := s.UnmarshalAction(payload); err == nil {
			t.Error("Expected validation error for zero user id")
		}
	})
}

func TestSerializer_Similarity(t *testing.T) {
	s := NewSerializer()
	ts := time.Date(2026, 5, 12, 10, 30, 0, 0, time.UTC)

	t.Run("round trip", func(t *testing.T) {
		sim := NewPairSimilarity(9, 4, 0.632455, ts)

		data, err := s.MarshalSimilarity(&sim)
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}

		decoded, err := s.UnmarshalSimilarity(data)
		if err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}

		if decoded.EventA != 4 || decoded.EventB != 9 {
			t.Errorf("Expected pair (4,9), got (%d,%d)", decoded.EventA, decoded.EventB)
		}
		if decoded.Score != sim.Score {
			t.Errorf("Expected score %v, got %v", sim.Score, decoded.Score)
		}
	})

	t.Run("marshal rejects self pair", func(t *testing.T) {
		sim := &PairSimilarity{EventA: 4, EventB: 4, Score: 1.0, Timestamp: ts}
		if _, err := s.MarshalSimilarity(sim); err == nil {
			t.Error("Expected validation error on marshal")
		}
	})

	t.Run("unmarshal rejects unnormalized pair", func(t *testing.T) {
		payload := []byte(`{"event_a":9,"event_b":4,"score":0.5}`)
		if _, err := s.UnmarshalSimilarity(payload); err == nil {
			t.Error("Expected validation error for unnormalized pair")
		}
	})
}
