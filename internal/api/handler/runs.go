package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/scriptparser/coprocessor/internal/domain"
	"github.com/scriptparser/coprocessor/internal/repository"
)

// RunsHandler serves the persisted run history.
type RunsHandler struct {
	runs repository.RunRepository
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(runs repository.RunRepository) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// List handles GET /api/v1/runs. The optional limit query parameter caps the
// number of records returned, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, domain.ValidationError("limit must be a positive integer"), start)
			return
		}
		limit = n
	}

	records, err := h.runs.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, domain.WrapError(domain.KindStorage, err), start)
		return
	}
	if records == nil {
		records = []*domain.RunRecord{}
	}

	writeSuccess(w, records, "", start)
}
