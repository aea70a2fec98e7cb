package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scriptparser/coprocessor/internal/domain"
)

// Orchestrator runs the resolve, transcribe, analyze, assemble stages of one
// request. Stage timings are checkpointed whether the stage succeeds or not,
// and every run is summarized to the recorder best-effort.
type Orchestrator struct {
	registry *Registry
	history  RunRecorder // nil disables run history
	target   time.Duration
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator. target is the soft time budget
// for one run; exceeding it flags the run, it never fails the request.
func NewOrchestrator(registry *Registry, history RunRecorder, target time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		history:  history,
		target:   target,
		logger:   logger,
	}
}

// Process runs the full pipeline for one source. Recoverable stage failures
// degrade the output instead of failing the run: a failed transcription is
// replaced by a diagnostic placeholder, an exhausted analysis failover is
// embedded as an error field in the analysis section.
func (o *Orchestrator) Process(ctx context.Context, src domain.MediaSource, mode domain.AnalysisMode) (*domain.ProcessOutput, error) {
	rc := NewRunContext(mode, o.logger)
	defer rc.Cleanup()

	if fs, ok := src.(*domain.FileSource); ok {
		rc.TrackFile(fs.LocalPath)
	}

	out, degraded, err := o.run(ctx, rc, src, mode)

	code := domain.CodeSuccess
	if err != nil {
		code = domain.Classify(err).Kind.BusinessCode()
	}
	o.record(ctx, rc, src, code, degraded)

	return out, err
}

func (o *Orchestrator) run(ctx context.Context, rc *RunContext, src domain.MediaSource, mode domain.AnalysisMode) (*domain.ProcessOutput, bool, error) {
	logger := rc.Logger()

	if err := o.resolveSource(ctx, rc, src); err != nil {
		return nil, false, err
	}

	transcript, err := o.transcribeStage(ctx, rc, src, mode)
	if err != nil {
		return nil, false, err
	}

	result, err := o.analyzeStage(ctx, rc, transcript.Text, mode)
	if err != nil {
		return nil, transcript.Degraded, err
	}

	if over := rc.Elapsed(); over > o.target {
		logger.Warn("run exceeded time budget", "elapsed", over, "target", o.target)
	}

	section := &domain.AnalysisSection{LLMAnalysis: result}
	switch s := src.(type) {
	case *domain.URLSource:
		section.VideoInfo = s
	case *domain.FileSource:
		section.FileInfo = s
	}

	out := &domain.ProcessOutput{Transcript: transcript.Text, Analysis: section}
	return out, transcript.Degraded || result.Degraded(), nil
}

// resolveSource fills in the download URL for an unresolved share link.
// Resolution failures are fatal; there is nothing to transcribe without a
// media URL.
func (o *Orchestrator) resolveSource(ctx context.Context, rc *RunContext, src domain.MediaSource) error {
	s, ok := src.(*domain.URLSource)
	if !ok || s.Resolved() {
		return nil
	}
	defer rc.Checkpoint("resolve")

	res, err := o.registry.Resolver()
	if err != nil {
		return err
	}

	resolution, err := res.Resolve(ctx, s.ShareText)
	if err != nil {
		return domain.WrapError(domain.KindSourceResolution, err)
	}

	s.VideoID = resolution.VideoID
	s.Platform = resolution.Platform
	s.Title = resolution.Title
	s.DownloadURL = resolution.DownloadURL

	rc.Logger().Info("resolved share link",
		"platform", s.Platform,
		"video_id", s.VideoID,
		"title", s.Title)
	return nil
}

// transcribeStage runs the bridge. Classified failures (storage staging,
// missing configuration) are fatal; a plain transcription failure degrades
// to a placeholder so the caller still gets a response.
func (o *Orchestrator) transcribeStage(ctx context.Context, rc *RunContext, src domain.MediaSource, mode domain.AnalysisMode) (domain.Transcript, error) {
	defer rc.Checkpoint("transcribe")

	bridge, err := o.bridge()
	if err != nil {
		return domain.Transcript{}, err
	}

	transcript, err := bridge.Run(ctx, src, mode)
	if err == nil {
		return transcript, nil
	}

	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		return domain.Transcript{}, err
	}

	rc.Logger().Warn("transcription failed, degrading to placeholder", "error", err)
	return domain.Transcript{
		Text:     DegradedTranscript(src, err),
		Source:   src,
		Mode:     mode,
		Degraded: true,
	}, nil
}

func (o *Orchestrator) analyzeStage(ctx context.Context, rc *RunContext, text string, mode domain.AnalysisMode) (*domain.AnalysisResult, error) {
	defer rc.Checkpoint("analyze")

	router, err := o.registry.Analyzer()
	if err != nil {
		return nil, err
	}

	result, err := router.Analyze(ctx, text, mode)
	if err != nil {
		rc.Logger().Warn("analysis failover exhausted, embedding error", "error", err)
		return &domain.AnalysisResult{Err: err.Error()}, nil
	}
	return result, nil
}

func (o *Orchestrator) bridge() (*TranscriptionBridge, error) {
	store, err := o.registry.Store()
	if err != nil {
		return nil, err
	}
	transcriber, err := o.registry.Transcriber()
	if err != nil {
		return nil, err
	}
	return NewTranscriptionBridge(store, transcriber, o.registry.cfg.ASR.TechHotwordID, o.logger), nil
}

// record persists the run summary. Failures are logged and swallowed; run
// history never affects the response.
func (o *Orchestrator) record(ctx context.Context, rc *RunContext, src domain.MediaSource, code int, degraded bool) {
	if o.history == nil {
		return
	}

	rec := &domain.RunRecord{
		ID:           rc.ID,
		Mode:         rc.Mode,
		SourceKind:   src.Kind(),
		BusinessCode: code,
		Degraded:     degraded,
		OverBudget:   rc.Elapsed() > o.target,
		TotalTime:    rc.Elapsed(),
		Checkpoints:  rc.Checkpoints(),
		CreatedAt:    time.Now(),
	}

	if err := o.history.Save(ctx, rec); err != nil {
		rc.Logger().Warn("failed to record run history", "error", err)
	}
}

// Transcribe resolves and transcribes the source without running analysis.
// Unlike the full pipeline there is no degraded fallback here; a failed
// transcription is the operation's failure.
func (o *Orchestrator) Transcribe(ctx context.Context, src domain.MediaSource, mode domain.AnalysisMode) (string, error) {
	rc := NewRunContext(mode, o.logger)
	defer rc.Cleanup()

	if fs, ok := src.(*domain.FileSource); ok {
		rc.TrackFile(fs.LocalPath)
	}

	if err := o.resolveSource(ctx, rc, src); err != nil {
		return "", err
	}

	bridge, err := o.bridge()
	if err != nil {
		return "", err
	}

	transcript, err := bridge.Run(ctx, src, mode)
	rc.Checkpoint("transcribe")
	if err != nil {
		var pe *domain.PipelineError
		if errors.As(err, &pe) {
			return "", err
		}
		return "", domain.WrapError(domain.KindTranscription, err)
	}
	return transcript.Text, nil
}

// Analyze runs the analysis track against caller-provided text. A failover
// exhaustion is the operation's failure here, not a degraded embedding.
func (o *Orchestrator) Analyze(ctx context.Context, text string, mode domain.AnalysisMode) (*domain.AnalysisResult, error) {
	if text == "" {
		return nil, domain.ValidationError("text must be provided")
	}

	router, err := o.registry.Analyzer()
	if err != nil {
		return nil, err
	}

	result, err := router.Analyze(ctx, text, mode)
	if err != nil {
		return nil, domain.WrapError(domain.KindAnalysis, fmt.Errorf("analysis failed: %w", err))
	}
	return result, nil
}
