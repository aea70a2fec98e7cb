package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scriptparser/coprocessor/internal/domain"
)

// SQLiteRunRepository stores run records in a local SQLite database.
type SQLiteRunRepository struct {
	db *sql.DB
}

const runSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	mode          TEXT NOT NULL,
	source_kind   TEXT NOT NULL,
	business_code INTEGER NOT NULL,
	degraded      INTEGER NOT NULL,
	over_budget   INTEGER NOT NULL,
	total_ms      INTEGER NOT NULL,
	checkpoints   TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

// NewSQLiteRunRepository opens (and if needed creates) the database at path.
func NewSQLiteRunRepository(path string) (*SQLiteRunRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(runSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteRunRepository{db: db}, nil
}

// Save stores one run record.
func (r *SQLiteRunRepository) Save(ctx context.Context, record *domain.RunRecord) error {
	checkpoints, err := json.Marshal(record.Checkpoints)
	if err != nil {
		return fmt.Errorf("marshal checkpoints: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, source_kind, business_code, degraded, over_budget, total_ms, checkpoints, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		string(record.Mode),
		record.SourceKind,
		record.BusinessCode,
		boolToInt(record.Degraded),
		boolToInt(record.OverBudget),
		record.TotalTime.Milliseconds(),
		string(checkpoints),
		record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first.
func (r *SQLiteRunRepository) ListRecent(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, mode, source_kind, business_code, degraded, over_budget, total_ms, checkpoints, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []*domain.RunRecord
	for rows.Next() {
		var (
			rec         domain.RunRecord
			mode        string
			degraded    int
			overBudget  int
			totalMs     int64
			checkpoints string
			createdAt   time.Time
		)
		if err := rows.Scan(&rec.ID, &mode, &rec.SourceKind, &rec.BusinessCode,
			&degraded, &overBudget, &totalMs, &checkpoints, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		rec.Mode = domain.AnalysisMode(mode)
		rec.Degraded = degraded != 0
		rec.OverBudget = overBudget != 0
		rec.TotalTime = time.Duration(totalMs) * time.Millisecond
		rec.CreatedAt = createdAt
		if err := json.Unmarshal([]byte(checkpoints), &rec.Checkpoints); err != nil {
			return nil, fmt.Errorf("decode checkpoints for run %s: %w", rec.ID, err)
		}

		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (r *SQLiteRunRepository) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
