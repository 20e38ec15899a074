// Affinity - Online Event Similarity and Recommendation Engine
// Copyright 2026 Mikhail K. (mkarelin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarelin/affinity

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mkarelin/affinity/internal/events"
	"github.com/mkarelin/affinity/internal/logging"
	"github.com/mkarelin/affinity/internal/models"
	"github.com/mkarelin/affinity/internal/recommend"
)

// ActionCollector accepts user actions for ingestion. *ingest.Collector
// satisfies it.
type ActionCollector interface {
	Submit(ctx context.Context, action *events.UserAction) error
}

// QueryEngine answers the three read queries. *recommend.Engine satisfies it.
type QueryEngine interface {
	SimilarEvents(ctx context.Context, eventID, userID int64, maxResults int) ([]recommend.Scored, error)
	RecommendationsForUser(ctx context.Context, userID int64, maxResults int) ([]recommend.Scored, error)
	InteractionsCount(ctx context.Context, eventIDs []int64) ([]recommend.Scored, error)
}

// Handler holds the HTTP endpoint implementations.
type Handler struct {
	collector ActionCollector
	engine    QueryEngine
	ready     func() error
}

// NewHandler creates a handler. ready reports whether the process can serve
// queries; nil means always ready.
func NewHandler(collector ActionCollector, engine QueryEngine, ready func() error) *Handler {
	if ready == nil {
		ready = func() error { return nil }
	}
	return &Handler{collector: collector, engine: engine, ready: ready}
}

// SubmitAction handles POST /api/v1/actions.
func (h *Handler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	action := &events.UserAction{
		UserID:    req.UserID,
		EventID:   req.EventID,
		Type:      events.ActionType(req.ActionType),
		Timestamp: req.Timestamp,
	}
	if err := h.collector.Submit(r.Context(), action); err != nil {
		var verr *events.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), nil)
			return
		}
		respondError(w, http.StatusServiceUnavailable, "STREAM_ERROR", "Failed to accept action", err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Int64("user_id", action.UserID).
		Int64("event_id", action.EventID).
		Msg("Action submitted")
	respondSuccess(w, http.StatusAccepted, map[string]bool{"accepted": true}, start)
}

// SimilarEvents handles GET /api/v1/recommendations/similar/{eventID}.
func (h *Handler) SimilarEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	eventID, err := parseInt64Param(chi.URLParam(r, "eventID"), "event id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	var userID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err = parseInt64Param(raw, "user_id")
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}
	maxResults, err := parseMaxResults(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	results, err := h.engine.SimilarEvents(r.Context(), eventID, userID, maxResults)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_ERROR", "Failed to load similar events", err)
		return
	}
	respondSuccess(w, http.StatusOK, results, start)
}

// UserRecommendations handles GET /api/v1/recommendations/user/{userID}.
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := parseInt64Param(chi.URLParam(r, "userID"), "user id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	maxResults, err := parseMaxResults(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	results, err := h.engine.RecommendationsForUser(r.Context(), userID, maxResults)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_ERROR", "Failed to load recommendations", err)
		return
	}
	respondSuccess(w, http.StatusOK, results, start)
}

// InteractionsCount handles GET /api/v1/recommendations/interactions.
func (h *Handler) InteractionsCount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	eventIDs, err := parseEventIDs(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	results, err := h.engine.InteractionsCount(r.Context(), eventIDs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_ERROR", "Failed to count interactions", err)
		return
	}
	respondSuccess(w, http.StatusOK, results, start)
}

// HealthLive handles GET /api/v1/health/live. It reports only that the
// process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady handles GET /api/v1/health/ready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.ready(); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, time.Now())
}
