package pipeline

import (
	"context"
	"io"

	"github.com/scriptparser/coprocessor/internal/domain"
	"github.com/scriptparser/coprocessor/pkg/resolver"
)

// SourceResolver resolves pasted share text into a downloadable media URL.
type SourceResolver interface {
	Resolve(ctx context.Context, shareText string) (*resolver.Resolution, error)
}

// Transcriber converts a fetchable media URL into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, fileURL, hotwordID string) (string, error)
}

// ObjectStore stages local files on an object store and returns a public URL.
type ObjectStore interface {
	Upload(ctx context.Context, name string, content io.Reader, size int64) (string, error)
}

// RunRecorder persists run summaries. Saves are best-effort; the pipeline
// logs and swallows recorder failures.
type RunRecorder interface {
	Save(ctx context.Context, record *domain.RunRecord) error
}
