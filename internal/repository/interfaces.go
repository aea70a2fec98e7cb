package repository

import (
	"context"

	"github.com/scriptparser/coprocessor/internal/domain"
)

// RunRepository persists pipeline run summaries for latency observability.
type RunRepository interface {
	// Save stores one run record.
	Save(ctx context.Context, record *domain.RunRecord) error

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.RunRecord, error)

	// Close releases the underlying store.
	Close() error
}
