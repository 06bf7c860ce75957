package epics

import "codeberg.org/mutker/pidctl/internal/errors"

const (
	ErrCommandFailed = errors.ErrorCode("epics_command_failed")
	ErrInvalidValue  = errors.ErrorCode("epics_invalid_value")
	ErrToolMissing   = errors.ErrorCode("epics_tool_missing")
)
