// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/palette/internal/ledger"
	"github.com/tomtom215/palette/internal/validation"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// RunLedger is the read side of ledger.Ledger.
type RunLedger interface {
	Latest(ctx context.Context) (*ledger.RunRecord, error)
	LatestSuccess(ctx context.Context) (*ledger.RunRecord, error)
	Get(ctx context.Context, runID string) (*ledger.RunRecord, error)
	List(ctx context.Context, limit int) ([]ledger.RunRecord, error)
}

// Handler holds the dependencies of the ops endpoints.
type Handler struct {
	ledger    RunLedger
	startTime time.Time
}

// NewHandler creates the ops handlers.
func NewHandler(runs RunLedger) *Handler {
	return &Handler{
		ledger:    runs,
		startTime: time.Now(),
	}
}

// RunsRequest holds the query parameters of the runs listing.
type RunsRequest struct {
	Limit int `validate:"min=1,max=500"`
}

// ReadyStatus is the readiness probe payload.
type ReadyStatus struct {
	Ready           bool       `json:"ready"`
	LastSuccessRun  string     `json:"last_success_run_id,omitempty"`
	LastSuccessAt   *time.Time `json:"last_success_at,omitempty"`
	SnapshotVersion int        `json:"snapshot_version,omitempty"`
	Uptime          float64    `json:"uptime"`
}

// Healthz reports liveness. It never touches the ledger.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// Readyz returns 200 once a successful run has been recorded. Until then,
// or when the ledger cannot be read, it returns 503.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := ReadyStatus{Uptime: time.Since(h.startTime).Seconds()}

	rec, err := h.ledger.LatestSuccess(r.Context())
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		respondJSON(w, http.StatusServiceUnavailable, &APIResponse{
			Status:   "not_ready",
			Data:     status,
			Metadata: Metadata{Timestamp: time.Now().UTC()},
		})
		return
	case err != nil:
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Run ledger unavailable", err)
		return
	}

	finished := rec.FinishedAt
	status.Ready = true
	status.LastSuccessRun = rec.RunID
	status.LastSuccessAt = &finished
	status.SnapshotVersion = rec.SnapshotVersion

	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "ready",
		Data:   status,
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Runs lists run records newest first.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := RunsRequest{Limit: defaultRunsLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, "limit must be an integer", nil)
			return
		}
		req.Limit = limit
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, verr.Error(), nil)
		return
	}

	runs, err := h.ledger.List(r.Context(), req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeLedgerError, "Failed to read run ledger", err)
		return
	}

	count := len(runs)
	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "success",
		Data:   runs,
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Count:       &count,
		},
	})
}

// LatestRun returns the most recent run of any status.
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec, err := h.ledger.Latest(r.Context())
	h.respondRun(w, rec, err, start)
}

// Run returns one run by ID.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec, err := h.ledger.Get(r.Context(), chi.URLParam(r, "id"))
	h.respondRun(w, rec, err, start)
}

func (h *Handler) respondRun(w http.ResponseWriter, rec *ledger.RunRecord, err error, start time.Time) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Run not found", nil)
	case err != nil:
		respondError(w, http.StatusInternalServerError, ErrCodeLedgerError, "Failed to read run ledger", err)
	default:
		respondSuccess(w, http.StatusOK, rec, start)
	}
}
