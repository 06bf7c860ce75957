package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/pidctl/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrChannelUnavailable)
	assert.Equal(t, "Channel unavailable", err.Error())

	wrapped := errFactory.Wrap(errors.ErrChannelUnavailable, fmt.Errorf("no such file"))
	assert.Equal(t, "Channel unavailable: no such file", wrapped.Error())

	withData := errFactory.WithData(errors.ErrInvalidConfig, "output_min > output_max")
	assert.Equal(t, "Invalid configuration: output_min > output_max", withData.Error())

	custom := errFactory.WithMessage(errors.ErrInvalidInput, "measured value is NaN")
	assert.Equal(t, "measured value is NaN", custom.Error())
	assert.Equal(t, errors.ErrInvalidInput, custom.Code())
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()

	inner := errFactory.New(errors.ErrChannelParse)
	outer := errFactory.Wrap(errors.ErrChannelUnavailable, inner)
	plain := fmt.Errorf("loop: %w", outer)

	assert.True(t, errors.HasCode(plain, errors.ErrChannelUnavailable))
	assert.True(t, errors.HasCode(plain, errors.ErrChannelParse))
	assert.False(t, errors.HasCode(plain, errors.ErrInvalidInput))
	assert.False(t, errors.HasCode(nil, errors.ErrInternal))
	assert.False(t, errors.HasCode(fmt.Errorf("plain"), errors.ErrInternal))
}

func TestCodeOf(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, errors.ErrOwnedFileConflict, errors.CodeOf(errFactory.New(errors.ErrOwnedFileConflict)))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(fmt.Errorf("plain")))
}
