// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

// Package models defines the wire types shared by the HTTP API.
package models

import "time"

// APIResponse is the response wrapper used by all HTTP endpoints. Status is
// "success" or "error"; Error is populated only on failure.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": [{"event_id": 4, "score": 0.63}],
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "query_time_ms": 2}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms"`
}

// APIError is the structured error payload.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ActionRequest is the POST /api/v1/actions body.
type ActionRequest struct {
	UserID     int64     `json:"user_id" validate:"required,gt=0"`
	EventID    int64     `json:"event_id" validate:"required,gt=0"`
	ActionType string    `json:"action_type" validate:"required,oneof=view register like"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}
