package channel

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// WaitForFile blocks until path exists, the timeout expires or ctx is
// cancelled. The parent directory is watched so creation by a sibling
// process (including an atomic rename into place) is seen immediately.
func WaitForFile(ctx context.Context, path string, timeout time.Duration) error {
	errFactory := errors.New()

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return errFactory.Wrap(errors.ErrChannelUnavailable, err)
	}

	// The file may have appeared between Stat and Add.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	logger.Info().Str("file", path).Dur("timeout", timeout).Msg("Waiting for shared file")

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return errFactory.Wrap(errors.ErrChannelUnavailable, ctx.Err())
		case <-timer.C:
			return errFactory.WithData(errors.ErrChannelUnavailable, struct {
				Path    string
				Timeout string
			}{
				Path:    path,
				Timeout: timeout.String(),
			})
		case event, ok := <-watcher.Events:
			if !ok {
				return errFactory.WithData(errors.ErrChannelUnavailable, "watcher closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Write) {
				if _, err := os.Stat(path); err == nil {
					logger.Debug().Str("file", path).Msg("Shared file appeared")
					return nil
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errFactory.WithData(errors.ErrChannelUnavailable, "watcher closed")
			}
			logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}
