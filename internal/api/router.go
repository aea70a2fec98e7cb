package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scriptparser/coprocessor/internal/api/handler"
	mw "github.com/scriptparser/coprocessor/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured. runsHandler
// may be nil when run history is disabled; its route is omitted then.
func NewRouter(
	parseHandler *handler.ParseHandler,
	transcribeHandler *handler.TranscribeHandler,
	analyzeHandler *handler.AnalyzeHandler,
	runsHandler *handler.RunsHandler,
	healthHandler *handler.HealthHandler,
	apiKey string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.Recovery)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(mw.CORS)

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// API v1 (authenticated unless no key is configured)
	r.Route("/api/v1", func(r chi.Router) {
		if apiKey != "" {
			r.Use(mw.APIKeyAuth(apiKey))
		}

		r.Post("/parse", parseHandler.Parse)
		r.Post("/transcribe", transcribeHandler.Transcribe)
		r.Post("/analyze", analyzeHandler.Analyze)

		if runsHandler != nil {
			r.Get("/runs", runsHandler.List)
		}
	})

	return r
}
