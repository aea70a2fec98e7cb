package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/scriptparser/coprocessor/internal/domain"
)

// TranscriptionBridge feeds a media source to the transcription service:
// uploaded files are staged on the object store first, share-link sources are
// submitted by their resolved download URL.
type TranscriptionBridge struct {
	store         ObjectStore
	transcriber   Transcriber
	techHotwordID string
	logger        *slog.Logger
}

// NewTranscriptionBridge creates a bridge. techHotwordID may be empty; tech
// runs then fail before any network call.
func NewTranscriptionBridge(store ObjectStore, transcriber Transcriber, techHotwordID string, logger *slog.Logger) *TranscriptionBridge {
	return &TranscriptionBridge{
		store:         store,
		transcriber:   transcriber,
		techHotwordID: techHotwordID,
		logger:        logger,
	}
}

// Run transcribes the source. Classified errors (storage, configuration) are
// fatal to the pipeline; a plain transcription failure is recoverable and the
// caller substitutes a degraded placeholder. An empty result counts as a
// failure: the service occasionally completes a task with no sentences.
func (b *TranscriptionBridge) Run(ctx context.Context, src domain.MediaSource, mode domain.AnalysisMode) (domain.Transcript, error) {
	hotwordID, err := b.hotwordFor(mode)
	if err != nil {
		return domain.Transcript{}, err
	}

	mediaURL, err := b.mediaURL(ctx, src)
	if err != nil {
		return domain.Transcript{}, err
	}

	text, err := b.transcriber.Transcribe(ctx, mediaURL, hotwordID)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("transcribe %s: %w", src.Kind(), err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.Transcript{}, fmt.Errorf("transcribe %s: service returned an empty transcript", src.Kind())
	}

	return domain.Transcript{Text: text, Source: src, Mode: mode}, nil
}

// hotwordFor returns the vocabulary id for the mode. Tech runs require the
// hotword list; a missing id is a configuration error raised before any
// network call is made.
func (b *TranscriptionBridge) hotwordFor(mode domain.AnalysisMode) (string, error) {
	if mode != domain.ModeTech {
		return "", nil
	}
	if b.techHotwordID == "" {
		return "", domain.ConfigError("tech analysis requires ASR_TECH_HOTWORD_ID to be configured")
	}
	return b.techHotwordID, nil
}

func (b *TranscriptionBridge) mediaURL(ctx context.Context, src domain.MediaSource) (string, error) {
	switch s := src.(type) {
	case *domain.URLSource:
		if !s.Resolved() {
			return "", domain.NewError(domain.KindSourceResolution, "", fmt.Errorf("source has no download URL"))
		}
		return s.DownloadURL, nil

	case *domain.FileSource:
		f, err := os.Open(s.LocalPath)
		if err != nil {
			return "", domain.WrapError(domain.KindFileHandling, fmt.Errorf("open staged file: %w", err))
		}
		defer f.Close()

		publicURL, err := b.store.Upload(ctx, s.OriginalName, f, s.SizeBytes)
		if err != nil {
			return "", domain.WrapError(domain.KindStorage, fmt.Errorf("stage file on object store: %w", err))
		}
		b.logger.Info("staged upload on object store", "name", s.OriginalName, "size", s.SizeBytes)
		return publicURL, nil

	default:
		return "", fmt.Errorf("unsupported source kind %q", src.Kind())
	}
}

// DegradedTranscript builds the placeholder substituted for a failed
// transcription. It names the source and the failure so the caller can see
// what went wrong without the run failing.
func DegradedTranscript(src domain.MediaSource, cause error) string {
	return fmt.Sprintf("【转写失败】%s（原因：%v）", src.Label(), cause)
}
