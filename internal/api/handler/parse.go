package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/scriptparser/coprocessor/internal/domain"
)

// Pipeline is the processing surface the handlers drive.
type Pipeline interface {
	Process(ctx context.Context, src domain.MediaSource, mode domain.AnalysisMode) (*domain.ProcessOutput, error)
	Transcribe(ctx context.Context, src domain.MediaSource, mode domain.AnalysisMode) (string, error)
	Analyze(ctx context.Context, text string, mode domain.AnalysisMode) (*domain.AnalysisResult, error)
}

// ParseHandler handles the full parse pipeline endpoint.
type ParseHandler struct {
	pipeline    Pipeline
	tempDir     string
	maxFileSize int64
	logger      *slog.Logger
}

// NewParseHandler creates a new parse handler.
func NewParseHandler(pipeline Pipeline, tempDir string, maxFileSize int64, logger *slog.Logger) *ParseHandler {
	return &ParseHandler{
		pipeline:    pipeline,
		tempDir:     tempDir,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Parse handles POST /api/v1/parse. It accepts either a JSON body with a
// share link or a multipart upload, runs the full pipeline and returns the
// transcript plus analysis in the response envelope.
func (h *ParseHandler) Parse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	src, mode, err := sourceFromRequest(r, h.tempDir, h.maxFileSize)
	if err != nil {
		writeError(w, err, start)
		return
	}

	out, err := h.pipeline.Process(r.Context(), src, mode)
	if err != nil {
		h.logger.Error("parse request failed", "source", src.Kind(), "mode", mode, "error", err)
		writeError(w, err, start)
		return
	}

	writeSuccess(w, out, "Processing completed", start)
}
