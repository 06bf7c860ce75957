// Package metrics keeps an optional sqlite history of loop observations.
package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
	"codeberg.org/mutker/pidctl/internal/record"
	"github.com/google/uuid"
)

// Recorder stores the records of one run. It implements record.Sink.
type Recorder struct {
	repo  Repository
	runID string
	now   func() time.Time
}

// NewRecorder opens the repository and registers a new run. A disabled
// config yields a no-op sink.
func NewRecorder(cfg Config, run Run) (record.Sink, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("History disabled, using no-op sink")
		return record.Noop(), nil
	}

	repo, err := NewRepository(cfg, logger.Default())
	if err != nil {
		return nil, err
	}

	rec, err := newRecorder(repo, run)
	if err != nil {
		repo.Close()
		return nil, err
	}

	return rec, nil
}

func newRecorder(repo Repository, run Run) (*Recorder, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	if err := repo.StartRun(run); err != nil {
		return nil, err
	}

	logger.Info().
		Str("run_id", run.ID).
		Str("role", run.Role).
		Msg("History run started")

	return &Recorder{repo: repo, runID: run.ID, now: time.Now}, nil
}

func (r *Recorder) RunID() string {
	return r.runID
}

func (r *Recorder) Append(ctx context.Context, rec record.Record) error {
	errFactory := errors.New()

	select {
	case <-ctx.Done():
		return errFactory.Wrap(errors.ErrTimeout, ctx.Err())
	default:
	}

	if err := r.repo.Store(&Sample{
		RunID:      r.runID,
		RecordedAt: r.now(),
		Elapsed:    rec.Elapsed,
		Corrected:  rec.Corrected,
		Current:    rec.Current,
	}); err != nil {
		return errFactory.Wrap(errors.ErrRecordWrite, err)
	}

	return nil
}

func (r *Recorder) Close() error {
	if err := r.repo.Close(); err != nil {
		return errors.New().Wrap(errors.ErrRecordClose, err)
	}

	return nil
}
