package channel

import "context"

// Channel is one named, externally visible scalar shared between processes.
//
// Read never fails on a malformed observation: it falls back to the last
// value this process parsed or wrote. Errors from Read and Write mean the
// channel itself is unusable.
type Channel interface {
	Read(ctx context.Context) (float64, error)
	Write(ctx context.Context, value float64) error
	LastKnown() float64
	Name() string
	Close() error
}

// FallbackObserver is notified whenever a read recovers with the last
// known value.
type FallbackObserver func(channel, reason string)
