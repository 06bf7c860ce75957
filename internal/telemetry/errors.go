package telemetry

import "codeberg.org/mutker/pidctl/internal/errors"

const (
	ErrListenFailed    = errors.ErrorCode("telemetry_listen_failed")
	ErrServiceShutdown = errors.ErrorCode("telemetry_service_shutdown_failed")
)
