package metrics

import (
	"time"

	"codeberg.org/mutker/pidctl/internal/errors"
)

const (
	defaultDirPerm       = 0o755
	defaultBatchSize     = 50
	defaultFlushInterval = 2 * time.Second
)

type Config struct {
	DBPath        string
	BatchSize     int
	FlushInterval time.Duration
	Enabled       bool
}

func DefaultConfig() Config {
	return Config{
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
		Enabled:       false,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.FlushInterval < 0 {
		return errFactory.WithData(ErrInvalidConfig, "batch size and flush interval must be >= 0")
	}

	return nil
}
