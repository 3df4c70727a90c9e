package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trade-surveillance-etl/internal/metrics"
	"trade-surveillance-etl/internal/model"
	"trade-surveillance-etl/internal/pipeline"
	"trade-surveillance-etl/internal/store"
)

// Handler serves the validation-run API.
type Handler struct {
	logger    *slog.Logger
	collector *metrics.Collector
}

func New(logger *slog.Logger, collector *metrics.Collector) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, collector: collector}
}

// CreateRun accepts a RunSpec, persists the run, and starts it
// asynchronously.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var spec model.RunSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if len(spec.Sources) == 0 {
		http.Error(w, "At least one source is required", http.StatusBadRequest)
		return
	}

	runID := uuid.New().String()
	if err := store.SaveRun(runID, spec); err != nil {
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	runner := pipeline.NewRunner(h.logger, h.collector)
	go func() {
		// Lifecycle errors are persisted by the runner itself.
		runner.Run(context.Background(), runID, spec)
	}()

	writeJSON(w, map[string]interface{}{
		"message":   "Validation run created",
		"runID":     runID,
		"status":    "pending",
		"createdAt": time.Now().UTC(),
	})
}

// ListRuns returns all runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// GetRun returns one run's spec and status.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	run, err := store.GetRun(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, run)
}

// GetRunSummary returns the finalized summary of a completed run.
func (h *Handler) GetRunSummary(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	summary, err := store.GetSummary(runID)
	if err != nil {
		http.Error(w, "Summary not found", http.StatusNotFound)
		return
	}
	writeJSON(w, summary)
}

// GetRunBreaches returns a run's breaches, capped by the limit query
// parameter (default 100).
func (h *Handler) GetRunBreaches(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	breaches, err := store.GetBreaches(runID, limit)
	if err != nil {
		http.Error(w, "Failed to retrieve breaches", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"run_id":   runID,
		"breaches": breaches,
		"count":    len(breaches),
		"limit":    limit,
	})
}

// GetRunErrors returns fatal errors recorded for a run.
func (h *Handler) GetRunErrors(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	errs, err := store.GetRunErrors(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"run_id": runID,
		"errors": errs,
		"count":  len(errs),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
