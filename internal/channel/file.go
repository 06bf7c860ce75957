package channel

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
)

const defaultFilePerm = 0o644

// File is the debug backend: a text file holding one decimal float.
type File struct {
	path       string
	lastKnown  float64
	fallbacks  int
	onFallback FallbackObserver
}

type FileOption func(*File)

// WithInitial sets the value returned by reads before any successful parse.
func WithInitial(v float64) FileOption {
	return func(f *File) {
		f.lastKnown = v
	}
}

func WithFallbackObserver(fn FallbackObserver) FileOption {
	return func(f *File) {
		f.onFallback = fn
	}
}

func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Read parses the whole file as a float. A missing or unreadable file is
// fatal; unparsable content returns the last known value.
func (f *File) Read(_ context.Context) (float64, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return f.lastKnown, errors.New().Wrap(errors.ErrChannelUnavailable, err)
	}

	value, err := parseValue(content)
	if err != nil {
		f.fallbacks++
		logger.Info().
			Str("file", f.path).
			Str("content", string(content)).
			Float64("fallback", f.lastKnown).
			Err(err).
			Msg("Could not parse shared value, using last known value")
		if f.onFallback != nil {
			f.onFallback(f.path, "parse")
		}
		return f.lastKnown, nil
	}

	f.lastKnown = value

	return value, nil
}

// Write replaces the file contents by renaming a fully written temporary
// file over it, so readers see either the old or the new value.
func (f *File) Write(_ context.Context, value float64) error {
	errFactory := errors.New()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return errFactory.Wrap(errors.ErrChannelWrite, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(FormatValue(value)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errFactory.Wrap(errors.ErrChannelWrite, err)
	}
	if err := tmp.Chmod(defaultFilePerm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errFactory.Wrap(errors.ErrChannelWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errFactory.Wrap(errors.ErrChannelWrite, err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return errFactory.Wrap(errors.ErrChannelWrite, err)
	}

	f.lastKnown = value

	return nil
}

func (f *File) LastKnown() float64 {
	return f.lastKnown
}

// Fallbacks returns how many reads recovered with the last known value.
func (f *File) Fallbacks() int {
	return f.fallbacks
}

func (f *File) Name() string {
	return f.path
}

// Close is a no-op; removal of an owned file is handled by ownedfile.
func (*File) Close() error {
	return nil
}

// FormatValue renders v the way it is stored in the shared file.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseValue(content []byte) (float64, error) {
	text := strings.TrimSpace(string(content))
	if text == "" {
		return 0, errors.New().WithData(errors.ErrChannelParse, "empty")
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, errors.New().Wrap(errors.ErrChannelParse, err)
	}

	return value, nil
}
