package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/scriptparser/coprocessor/internal/api"
	"github.com/scriptparser/coprocessor/internal/api/handler"
	"github.com/scriptparser/coprocessor/internal/config"
	"github.com/scriptparser/coprocessor/internal/pipeline"
	"github.com/scriptparser/coprocessor/internal/repository"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("scriptparser %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// A .env file is optional; environment always wins
	godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting scriptparser",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Pipeline.TempDir, 0755); err != nil {
		logger.Error("failed to create temp directory", "error", err)
		os.Exit(1)
	}

	// Run history is optional
	var runRepo repository.RunRepository
	if cfg.History.Enabled {
		repo, err := repository.NewSQLiteRunRepository(cfg.History.SQLitePath)
		if err != nil {
			logger.Error("failed to open run history store", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		runRepo = repo
	}

	// Service clients are constructed lazily on first use
	registry := pipeline.NewRegistry(cfg, logger)
	orchestrator := pipeline.NewOrchestrator(registry, runRepo, cfg.Pipeline.TotalTarget, logger)

	// Initialize handlers
	parseHandler := handler.NewParseHandler(orchestrator, cfg.Pipeline.TempDir, cfg.Pipeline.MaxFileSize, logger)
	transcribeHandler := handler.NewTranscribeHandler(orchestrator, cfg.Pipeline.TempDir, cfg.Pipeline.MaxFileSize, logger)
	analyzeHandler := handler.NewAnalyzeHandler(orchestrator, logger)
	healthHandler := handler.NewHealthHandler(runRepo)

	var runsHandler *handler.RunsHandler
	if runRepo != nil {
		runsHandler = handler.NewRunsHandler(runRepo)
	}

	// Setup router
	router := api.NewRouter(parseHandler, transcribeHandler, analyzeHandler, runsHandler, healthHandler, cfg.Server.APIKey, logger)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
