package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/scriptparser/coprocessor/internal/domain"
)

// writeSuccess writes a code-0 envelope with HTTP 200.
func writeSuccess(w http.ResponseWriter, data any, message string, start time.Time) {
	writeJSON(w, http.StatusOK, domain.SuccessEnvelope(data, message, start))
}

// writeError classifies err and writes the matching envelope and HTTP status.
func writeError(w http.ResponseWriter, err error, start time.Time) {
	pe := domain.Classify(err)
	writeJSON(w, pe.Kind.HTTPStatus(), domain.ErrorEnvelope(pe, start))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
