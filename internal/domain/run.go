package domain

import "time"

// Checkpoint is a named elapsed-time marker recorded during a pipeline run.
type Checkpoint struct {
	Name    string        `json:"name"`
	Elapsed time.Duration `json:"elapsed"`
}

// RunRecord is the persisted summary of one pipeline run, kept for latency
// observability. It is written best-effort after the response is decided.
type RunRecord struct {
	ID           string        `json:"id"`
	Mode         AnalysisMode  `json:"mode"`
	SourceKind   string        `json:"source_kind"`
	BusinessCode int           `json:"business_code"`
	Degraded     bool          `json:"degraded"`
	OverBudget   bool          `json:"over_budget"`
	TotalTime    time.Duration `json:"total_time"`
	Checkpoints  []Checkpoint  `json:"checkpoints"`
	CreatedAt    time.Time     `json:"created_at"`
}
