// Package history persists terminal training-run outcomes for later audit.
// Sinks are append-only; the in-flight run is tracked by the training
// registry, never here.
package history

import (
	"context"
	"time"
)

// Record is one finished (or stopped) training run.
type Record struct {
	ModelName  string    `json:"model_name"`
	ModelFile  string    `json:"model_file,omitempty"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
	Uploaded   bool      `json:"uploaded"`
	ModelURL   string    `json:"model_url,omitempty"`
}

// Sink is a destination for training run records.
// Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, r Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
