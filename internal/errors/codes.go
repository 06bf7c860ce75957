package errors

const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig      ErrorCode = "invalid_configuration"
	ErrBindFlags          ErrorCode = "bind_flags_failed"
	ErrReadConfig         ErrorCode = "read_config_failed"
	ErrUnrecognizedNoise  ErrorCode = "unrecognized_noise_type"
	ErrOwnedFileConflict  ErrorCode = "owned_file_conflict"
	ErrUnsupportedBackend ErrorCode = "unsupported_backend"

	// Control errors
	ErrInvalidInput ErrorCode = "invalid_input"

	// Channel errors
	ErrChannelParse       ErrorCode = "channel_parse_failed"
	ErrChannelUnavailable ErrorCode = "channel_unavailable"
	ErrChannelWrite       ErrorCode = "channel_write_failed"

	// Lifecycle errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrProcessSpawn   ErrorCode = "process_spawn_failed"
	ErrProcessStop    ErrorCode = "process_stop_failed"

	// Record errors
	ErrRecordWrite ErrorCode = "record_write_failed"
	ErrRecordClose ErrorCode = "record_close_failed"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"
)

var errorMessages = map[ErrorCode]string{
	ErrInternal:           "Internal error occurred",
	ErrInvalidArgument:    "Invalid argument provided",
	ErrInvalidConfig:      "Invalid configuration",
	ErrBindFlags:          "Failed to bind flags",
	ErrReadConfig:         "Failed to read configuration",
	ErrUnrecognizedNoise:  "Unrecognized noise type",
	ErrOwnedFileConflict:  "File already exists, use --force to overwrite",
	ErrUnsupportedBackend: "Unsupported channel backend",
	ErrInvalidInput:       "Measured value is not finite",
	ErrChannelParse:       "Shared value could not be parsed",
	ErrChannelUnavailable: "Channel unavailable",
	ErrChannelWrite:       "Failed to write shared value",
	ErrInitFailed:         "Initialization failed",
	ErrShutdownFailed:     "Shutdown failed",
	ErrProcessSpawn:       "Failed to start sibling process",
	ErrProcessStop:        "Failed to stop sibling process",
	ErrRecordWrite:        "Failed to append log record",
	ErrRecordClose:        "Failed to close log",
	ErrOperationFailed:    "Operation failed",
	ErrTimeout:            "Operation timed out",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
