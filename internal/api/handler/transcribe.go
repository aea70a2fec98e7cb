package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// TranscribeHandler handles the transcription-only endpoint.
type TranscribeHandler struct {
	pipeline    Pipeline
	tempDir     string
	maxFileSize int64
	logger      *slog.Logger
}

// NewTranscribeHandler creates a new transcribe handler.
func NewTranscribeHandler(pipeline Pipeline, tempDir string, maxFileSize int64, logger *slog.Logger) *TranscribeHandler {
	return &TranscribeHandler{
		pipeline:    pipeline,
		tempDir:     tempDir,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// transcribeResponse is the success payload for the transcription endpoint.
type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

// Transcribe handles POST /api/v1/transcribe. Unlike the full pipeline, a
// failed transcription fails the request here; there is no placeholder to
// degrade to when the transcript is the whole product.
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	src, mode, err := sourceFromRequest(r, h.tempDir, h.maxFileSize)
	if err != nil {
		writeError(w, err, start)
		return
	}

	text, err := h.pipeline.Transcribe(r.Context(), src, mode)
	if err != nil {
		h.logger.Error("transcribe request failed", "source", src.Kind(), "error", err)
		writeError(w, err, start)
		return
	}

	writeSuccess(w, transcribeResponse{Transcript: text}, "Transcription completed", start)
}
