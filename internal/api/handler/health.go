package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/scriptparser/coprocessor/internal/repository"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	runs repository.RunRepository // nil when run history is disabled
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(runs repository.RunRepository) *HealthHandler {
	return &HealthHandler{runs: runs}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe. When run history is enabled
// the store must answer; without it the process is ready as soon as it is up.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.runs != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if _, err := h.runs.ListRecent(ctx, 1); err != nil {
			status = http.StatusServiceUnavailable
			body.Status = "error"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
