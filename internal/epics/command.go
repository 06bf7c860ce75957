// Package epics talks to EPICS Channel Access through the caget and caput
// command line tools shipped with EPICS base.
package epics

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
)

const (
	defaultGetTool = "caget"
	defaultPutTool = "caput"
	defaultTimeout = 1 * time.Second
)

// runner executes one command and returns its stdout.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

type CommandClient struct {
	getTool string
	putTool string
	timeout time.Duration
	run     runner
}

type Option func(*CommandClient)

// WithTools overrides the caget/caput executables.
func WithTools(get, put string) Option {
	return func(c *CommandClient) {
		c.getTool = get
		c.putTool = put
	}
}

// WithTimeout sets the Channel Access search timeout passed via -w.
func WithTimeout(d time.Duration) Option {
	return func(c *CommandClient) {
		c.timeout = d
	}
}

func withRunner(r runner) Option {
	return func(c *CommandClient) {
		c.run = r
	}
}

func NewCommandClient(opts ...Option) *CommandClient {
	c := &CommandClient{
		getTool: defaultGetTool,
		putTool: defaultPutTool,
		timeout: defaultTimeout,
		run:     execRunner,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// LookPath verifies that both tools are installed.
func (c *CommandClient) LookPath() error {
	errFactory := errors.New()
	for _, tool := range []string{c.getTool, c.putTool} {
		if _, err := exec.LookPath(tool); err != nil {
			return errFactory.Wrap(ErrToolMissing, err)
		}
	}

	return nil
}

func (c *CommandClient) Read(ctx context.Context, pv string) (float64, error) {
	errFactory := errors.New()

	out, err := c.run(ctx, c.getTool, "-t", "-w", c.wait(), pv)
	if err != nil {
		return 0, errFactory.Wrap(ErrCommandFailed, err)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrInvalidValue, err)
	}

	return value, nil
}

func (c *CommandClient) Write(ctx context.Context, pv string, value float64) error {
	errFactory := errors.New()

	formatted := strconv.FormatFloat(value, 'g', -1, 64)
	if _, err := c.run(ctx, c.putTool, "-t", "-w", c.wait(), pv, formatted); err != nil {
		return errFactory.Wrap(ErrCommandFailed, err)
	}
	logger.Debug().Str("pv", pv).Str("value", formatted).Msg("caput")

	return nil
}

func (c *CommandClient) IsConnected(ctx context.Context, pv string) bool {
	_, err := c.Read(ctx, pv)
	if err != nil {
		logger.Debug().Str("pv", pv).Err(err).Msg("PV connect check failed")
	}

	return err == nil
}

func (c *CommandClient) wait() string {
	return strconv.FormatFloat(c.timeout.Seconds(), 'f', -1, 64)
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.New().Wrap(errors.ErrOperationFailed, err).WithMessage(msg)
		}
		return nil, err
	}

	// caget prints "Channel connect timed out" on stdout with exit status 0
	// for some versions.
	if strings.Contains(stdout.String(), "not found") || strings.Contains(stdout.String(), "timed out") {
		return nil, errors.New().WithData(errors.ErrTimeout, strings.TrimSpace(stdout.String()))
	}

	return stdout.Bytes(), nil
}
