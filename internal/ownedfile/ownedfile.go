// Package ownedfile guards files a run creates and is responsible for.
package ownedfile

import (
	"os"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
)

// Claim checks that path is free to be created by this run. An existing
// file is an ErrOwnedFileConflict unless force is set, in which case the
// old file is removed.
func Claim(path string, force bool) error {
	errFactory := errors.New()

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}
	if info.IsDir() {
		return errFactory.WithData(errors.ErrOwnedFileConflict, path+" is a directory")
	}

	if !force {
		return errFactory.WithData(errors.ErrOwnedFileConflict, path)
	}

	logger.Warn().Str("file", path).Msg("File already exists, overwriting")
	if err := os.Remove(path); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Release removes a file owned by this run. A file that is already gone
// is not an error.
func Release(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	logger.Debug().Str("file", path).Msg("Removed owned file")

	return nil
}
