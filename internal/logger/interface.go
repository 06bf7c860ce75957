package logger

import "codeberg.org/mutker/pidctl/internal/errors"

// Logger defines the interface for logging operations.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
}

// Default returns a Logger backed by the package-level logger.
func Default() Logger {
	return defaultLogger{}
}

type defaultLogger struct{}

func (defaultLogger) Debug() *LogEvent                          { return Debug() }
func (defaultLogger) Info() *LogEvent                           { return Info() }
func (defaultLogger) Warn() *LogEvent                           { return Warn() }
func (defaultLogger) Error() *LogEvent                          { return Error() }
func (defaultLogger) ErrorWithCode(err errors.Error) *LogEvent { return ErrorWithCode(err) }
