package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestLevelForVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  logger.LogLevel
	}{
		{0, logger.WarnLevel},
		{1, logger.InfoLevel},
		{2, logger.DebugLevel},
		{5, logger.DebugLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, logger.LevelForVerbosity(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestVerbosityFiltersInfo(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetLogLevel(logger.WarnLevel)

	logger.SetLogLevel(logger.LevelForVerbosity(0))
	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.SetLogLevel(logger.LevelForVerbosity(1))
	logger.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetLogLevel(logger.WarnLevel)

	err := errors.New().New(errors.ErrChannelUnavailable)
	logger.ErrorWithCode(err).Msg("read failed")

	assert.Contains(t, buf.String(), `"error_code":"channel_unavailable"`)
	assert.Contains(t, buf.String(), "read failed")
}
