package loop

import (
	"context"
	"time"

	"codeberg.org/mutker/pidctl/internal/channel"
	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
	"codeberg.org/mutker/pidctl/internal/record"
)

// Visualizer receives every corrected/current pair after it was written.
type Visualizer interface {
	Update(corrected, current float64) error
}

type cleanupFunc struct {
	name string
	fn   func() error
}

// Driver runs one role against one channel until it is interrupted,
// faults, or reaches its iteration bound.
type Driver struct {
	role       string
	channel    channel.Channel
	stepper    Stepper
	sink       record.Sink
	visualizer Visualizer
	clock      Clock
	delay      time.Duration
	sampleTime time.Duration
	limit      int
	cleanups   []cleanupFunc

	state     State
	iteration int
}

type Option func(*Driver)

// WithRole names the driver in log output.
func WithRole(role string) Option {
	return func(d *Driver) {
		d.role = role
	}
}

func WithSink(sink record.Sink) Option {
	return func(d *Driver) {
		d.sink = sink
	}
}

func WithVisualizer(v Visualizer) Option {
	return func(d *Driver) {
		d.visualizer = v
	}
}

func WithClock(clock Clock) Option {
	return func(d *Driver) {
		d.clock = clock
	}
}

// WithDelay sets the pause between two iterations.
func WithDelay(delay time.Duration) Option {
	return func(d *Driver) {
		d.delay = delay
	}
}

// WithSampleTime sets the minimum period of one iteration. The driver
// sleeps for the longer of delay and sample time.
func WithSampleTime(sampleTime time.Duration) Option {
	return func(d *Driver) {
		d.sampleTime = sampleTime
	}
}

// WithIterations stops the driver after n iterations. Zero runs until
// the context is cancelled.
func WithIterations(n int) Option {
	return func(d *Driver) {
		d.limit = n
	}
}

// WithCleanup registers fn to run during cleanup. Cleanups run after the
// sink is closed, last registered first.
func WithCleanup(name string, fn func() error) Option {
	return func(d *Driver) {
		d.cleanups = append(d.cleanups, cleanupFunc{name: name, fn: fn})
	}
}

func New(ch channel.Channel, stepper Stepper, opts ...Option) *Driver {
	d := &Driver{
		role:    "loop",
		channel: ch,
		stepper: stepper,
		sink:    record.Noop(),
		clock:   SystemClock(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Driver) State() State {
	return d.state
}

// Iterations returns the number of completed iterations.
func (d *Driver) Iterations() int {
	return d.iteration
}

// Run executes the loop. Cancelling ctx interrupts the loop between
// iterations; an iteration in progress always finishes its write. Run
// returns nil after an interrupt or a bounded run, and the fatal error
// otherwise. Cleanup runs in every case.
func (d *Driver) Run(ctx context.Context) error {
	errFactory := errors.New()

	if d.state != Idle {
		return errFactory.WithData(errors.ErrInvalidArgument, "driver already ran")
	}

	d.setState(Running)
	start := d.clock.Now()

	var runErr error
	for {
		if ctx.Err() != nil {
			d.setState(Interrupted)
			break
		}

		if err := d.iterate(context.WithoutCancel(ctx), start); err != nil {
			runErr = err
			d.setState(Faulted)
			break
		}
		d.iteration++

		if d.limit > 0 && d.iteration >= d.limit {
			logger.Info().Str("role", d.role).Int("iterations", d.iteration).Msg("Iteration limit reached")
			break
		}

		if err := d.sleep(ctx); err != nil {
			d.setState(Interrupted)
			break
		}
	}

	d.setState(Cleanup)
	cleanupErr := d.cleanup()
	d.setState(Terminated)

	if runErr != nil {
		return runErr
	}

	return cleanupErr
}

func (d *Driver) iterate(ctx context.Context, start time.Time) error {
	current, err := d.channel.Read(ctx)
	if err != nil {
		return err
	}

	elapsed := d.clock.Now().Sub(start)

	next, err := d.stepper.Step(ctx, current, elapsed)
	if err != nil {
		return err
	}

	if err := d.channel.Write(ctx, next); err != nil {
		return err
	}

	rec := record.Record{
		Elapsed:   elapsed,
		Corrected: next,
		Current:   current,
	}
	if err := d.sink.Append(ctx, rec); err != nil {
		return err
	}

	logger.Debug().
		Str("role", d.role).
		Float64("time", elapsed.Seconds()).
		Float64("corrected", next).
		Float64("current", current).
		Msg("")

	if d.visualizer != nil {
		if err := d.visualizer.Update(next, current); err != nil {
			logger.Warn().Err(err).Msg("Failed to update plot")
		}
	}

	return nil
}

func (d *Driver) sleep(ctx context.Context) error {
	wait := max(d.delay, d.sampleTime)
	if wait <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.clock.After(wait):
		return nil
	}
}

func (d *Driver) cleanup() error {
	errFactory := errors.New()

	var first error
	fail := func(name string, err error) {
		logger.Error().Err(err).Str("step", name).Msg("Cleanup step failed")
		if first == nil {
			first = errFactory.Wrap(errors.ErrShutdownFailed, err)
		}
	}

	if err := d.sink.Close(); err != nil {
		fail("log", err)
	}
	if err := d.channel.Close(); err != nil {
		fail("channel", err)
	}

	for i := len(d.cleanups) - 1; i >= 0; i-- {
		c := d.cleanups[i]
		if err := c.fn(); err != nil {
			fail(c.name, err)
		}
	}

	return first
}

func (d *Driver) setState(s State) {
	logger.Debug().Str("role", d.role).Stringer("from", d.state).Stringer("to", s).Msg("Driver state changed")
	d.state = s
}
