package metrics

import (
	"context"
	"time"
)

// Run describes one process run whose samples are stored.
type Run struct {
	ID        string
	Role      string
	Mode      string
	Channel   string
	StartedAt time.Time
	Setpoint  float64
}

// Sample is one stored loop observation.
type Sample struct {
	RunID      string
	RecordedAt time.Time
	Elapsed    time.Duration
	Corrected  float64
	Current    float64
}

// Repository stores runs and their samples.
type Repository interface {
	StartRun(run Run) error
	Store(sample *Sample) error
	Samples(ctx context.Context, runID string) ([]Sample, error)
	Close() error
}
