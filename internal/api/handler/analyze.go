package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/scriptparser/coprocessor/internal/domain"
)

// AnalyzeHandler handles the text-analysis endpoint.
type AnalyzeHandler struct {
	pipeline Pipeline
	logger   *slog.Logger
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(pipeline Pipeline, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{pipeline: pipeline, logger: logger}
}

type analyzeRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

// Analyze handles POST /api/v1/analyze. The caller supplies the text; only
// the analysis track runs, and an exhausted provider chain fails the request.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ValidationError("invalid JSON body"), start)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, domain.ValidationError("text must be provided"), start)
		return
	}

	mode, err := parseMode(req.Mode)
	if err != nil {
		writeError(w, err, start)
		return
	}

	result, err := h.pipeline.Analyze(r.Context(), req.Text, mode)
	if err != nil {
		h.logger.Error("analyze request failed", "mode", mode, "error", err)
		writeError(w, err, start)
		return
	}

	writeSuccess(w, result, "Analysis completed", start)
}
