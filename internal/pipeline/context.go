package pipeline

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/scriptparser/coprocessor/internal/domain"
)

// RunContext carries per-run state: the request id, checkpoint timings and
// the temp files to remove when the run finishes, on any exit path.
type RunContext struct {
	ID     string
	Mode   domain.AnalysisMode
	Start  time.Time
	logger *slog.Logger

	checkpoints []domain.Checkpoint
	stagedFiles []string
}

// NewRunContext starts a run with a fresh request id.
func NewRunContext(mode domain.AnalysisMode, logger *slog.Logger) *RunContext {
	id := uuid.New().String()
	return &RunContext{
		ID:     id,
		Mode:   mode,
		Start:  time.Now(),
		logger: logger.With("request_id", id),
	}
}

// Logger returns the run-scoped logger.
func (rc *RunContext) Logger() *slog.Logger { return rc.logger }

// Checkpoint records the elapsed time under name. Stages record a checkpoint
// whether they succeed or fail.
func (rc *RunContext) Checkpoint(name string) {
	elapsed := time.Since(rc.Start)
	rc.checkpoints = append(rc.checkpoints, domain.Checkpoint{Name: name, Elapsed: elapsed})
	rc.logger.Debug("checkpoint", "name", name, "elapsed", elapsed)
}

// Checkpoints returns the recorded checkpoints in order.
func (rc *RunContext) Checkpoints() []domain.Checkpoint { return rc.checkpoints }

// Elapsed returns the time since the run started.
func (rc *RunContext) Elapsed() time.Duration { return time.Since(rc.Start) }

// TrackFile registers a temp file for removal at the end of the run.
func (rc *RunContext) TrackFile(path string) {
	rc.stagedFiles = append(rc.stagedFiles, path)
}

// Cleanup removes every tracked file. Removal failures are logged and
// swallowed; cleanup never affects the run outcome.
func (rc *RunContext) Cleanup() {
	for _, path := range rc.stagedFiles {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			rc.logger.Warn("failed to remove temp file", "path", path, "error", err)
		}
	}
	rc.stagedFiles = nil
}
