package epics

import "context"

// Client is the process-variable contract consumed by the PV channel.
type Client interface {
	Read(ctx context.Context, pv string) (float64, error)
	Write(ctx context.Context, pv string, value float64) error
	IsConnected(ctx context.Context, pv string) bool
}
