package record

import (
	"context"

	"codeberg.org/mutker/pidctl/internal/errors"
)

type multiSink []Sink

// Multi fans records out to every non-nil sink. With no sinks it returns
// a no-op sink.
func Multi(sinks ...Sink) Sink {
	var ms multiSink
	for _, s := range sinks {
		if s != nil {
			ms = append(ms, s)
		}
	}
	if len(ms) == 0 {
		return Noop()
	}
	if len(ms) == 1 {
		return ms[0]
	}

	return ms
}

func (ms multiSink) Append(ctx context.Context, rec Record) error {
	for _, s := range ms {
		if err := s.Append(ctx, rec); err != nil {
			return err
		}
	}

	return nil
}

// Close closes every sink and returns the first error.
func (ms multiSink) Close() error {
	var first error
	for _, s := range ms {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		return errors.New().Wrap(errors.ErrRecordClose, first)
	}

	return nil
}

type noopSink struct{}

func Noop() Sink {
	return noopSink{}
}

func (noopSink) Append(_ context.Context, _ Record) error {
	return nil
}

func (noopSink) Close() error {
	return nil
}
