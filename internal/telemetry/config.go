package telemetry

import "time"

const (
	namespace       = "pidctl"
	shutdownTimeout = 2 * time.Second
)

type Config struct {
	// ListenAddr enables the /metrics endpoint when non-empty.
	ListenAddr string
	Role       string
	Channel    string
	// Setpoint is exported as a gauge when set.
	Setpoint   *float64
}
