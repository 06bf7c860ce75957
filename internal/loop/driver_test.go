package loop_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/pidctl/internal/channel"
	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/loop"
	"codeberg.org/mutker/pidctl/internal/noise"
	"codeberg.org/mutker/pidctl/internal/pid"
	"codeberg.org/mutker/pidctl/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	ch := make(chan time.Time, 1)
	ch <- c.now

	return ch
}

type memChannel struct {
	value   float64
	writes  []float64
	readErr error
	onWrite func(ctx context.Context)
	closed  bool
}

func (m *memChannel) Read(_ context.Context) (float64, error) {
	if m.readErr != nil {
		return 0, m.readErr
	}

	return m.value, nil
}

func (m *memChannel) Write(ctx context.Context, v float64) error {
	if m.onWrite != nil {
		m.onWrite(ctx)
	}
	m.value = v
	m.writes = append(m.writes, v)

	return nil
}

func (m *memChannel) LastKnown() float64 { return m.value }
func (*memChannel) Name() string         { return "mem" }

func (m *memChannel) Close() error {
	m.closed = true
	return nil
}

type memSink struct {
	records []record.Record
	closed  bool
}

func (s *memSink) Append(_ context.Context, rec record.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *memSink) Close() error {
	s.closed = true
	return nil
}

type recordingVisualizer struct {
	pairs [][2]float64
}

func (v *recordingVisualizer) Update(corrected, current float64) error {
	v.pairs = append(v.pairs, [2]float64{corrected, current})
	return nil
}

func controlStepper(t *testing.T, params pid.Parameters) *loop.ControlStepper {
	t.Helper()

	c, err := pid.New(params)
	require.NoError(t, err)

	return loop.NewControlStepper(c, 1)
}

func TestDebugLoopConverges(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		kp    float64
	}{
		{"already at setpoint", 1.0, 1},
		{"full proportional step", -2.0, 1},
		{"half proportional step", 3.0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "debugEnv.txt")
			require.NoError(t, os.WriteFile(path, []byte(channel.FormatValue(tt.start)), 0o644))

			params := pid.Parameters{Kp: tt.kp, Setpoint: 1, OutputMin: -3, OutputMax: 3}
			d := loop.New(channel.NewFile(path), controlStepper(t, params),
				loop.WithClock(newFakeClock()),
				loop.WithIterations(80),
			)

			require.NoError(t, d.Run(context.Background()))
			assert.Equal(t, 80, d.Iterations())
			assert.Equal(t, loop.Terminated, d.State())

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			value, err := strconv.ParseFloat(strings.TrimSpace(string(content)), 64)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, value, 1e-9)
		})
	}
}

func TestRecordsAndVisualizerFollowWrites(t *testing.T) {
	ch := &memChannel{value: 0}
	sink := &memSink{}
	vis := &recordingVisualizer{}
	clock := newFakeClock()

	d := loop.New(ch, controlStepper(t, pid.Unbounded(0.5, 0, 0, 2)),
		loop.WithSink(sink),
		loop.WithVisualizer(vis),
		loop.WithClock(clock),
		loop.WithDelay(100*time.Millisecond),
		loop.WithIterations(3),
	)
	require.NoError(t, d.Run(context.Background()))

	require.Len(t, sink.records, 3)
	assert.Equal(t, []float64{1, 1.5, 1.75}, ch.writes)
	for i, rec := range sink.records {
		assert.Equal(t, ch.writes[i], rec.Corrected)
		assert.Equal(t, time.Duration(i)*100*time.Millisecond, rec.Elapsed)
		assert.Equal(t, [2]float64{rec.Corrected, rec.Current}, vis.pairs[i])
	}
	assert.Equal(t, 0.0, sink.records[0].Current)

	// no sleep after the last iteration
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, clock.slept)
	assert.True(t, sink.closed)
	assert.True(t, ch.closed)
}

func TestSampleTimeIsMinimumPeriod(t *testing.T) {
	clock := newFakeClock()
	d := loop.New(&memChannel{}, controlStepper(t, pid.Unbounded(1, 0, 0, 0)),
		loop.WithClock(clock),
		loop.WithDelay(10*time.Millisecond),
		loop.WithSampleTime(250*time.Millisecond),
		loop.WithIterations(2),
	)
	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, []time.Duration{250 * time.Millisecond}, clock.slept)
}

func TestInterruptCompletesCurrentWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeCtxErr error
	ch := &memChannel{value: 0}
	ch.onWrite = func(wctx context.Context) {
		cancel()
		writeCtxErr = wctx.Err()
	}
	sink := &memSink{}

	var cleaned []string
	d := loop.New(ch, controlStepper(t, pid.Unbounded(1, 0, 0, 1)),
		loop.WithSink(sink),
		loop.WithClock(newFakeClock()),
		loop.WithCleanup("first", func() error { cleaned = append(cleaned, "first"); return nil }),
		loop.WithCleanup("second", func() error { cleaned = append(cleaned, "second"); return nil }),
	)

	require.NoError(t, d.Run(ctx))

	require.NoError(t, writeCtxErr)
	assert.Equal(t, []float64{1}, ch.writes)
	assert.Len(t, sink.records, 1)
	assert.Equal(t, 1, d.Iterations())
	assert.Equal(t, []string{"second", "first"}, cleaned)
	assert.True(t, sink.closed)
}

func TestCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := &memChannel{}
	d := loop.New(ch, controlStepper(t, pid.Unbounded(1, 0, 0, 1)), loop.WithClock(newFakeClock()))

	require.NoError(t, d.Run(ctx))
	assert.Empty(t, ch.writes)
	assert.True(t, ch.closed)
	assert.Equal(t, loop.Terminated, d.State())
}

func TestFaultRunsCleanup(t *testing.T) {
	ch := &memChannel{readErr: errors.New().WithData(errors.ErrChannelUnavailable, "gone")}
	sink := &memSink{}
	cleaned := false

	d := loop.New(ch, controlStepper(t, pid.Unbounded(1, 0, 0, 1)),
		loop.WithSink(sink),
		loop.WithClock(newFakeClock()),
		loop.WithCleanup("owned", func() error { cleaned = true; return nil }),
	)

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrChannelUnavailable))
	assert.True(t, cleaned)
	assert.True(t, sink.closed)
	assert.Equal(t, loop.Terminated, d.State())
}

func TestCleanupFailureIsReported(t *testing.T) {
	d := loop.New(&memChannel{}, controlStepper(t, pid.Unbounded(1, 0, 0, 1)),
		loop.WithClock(newFakeClock()),
		loop.WithIterations(1),
		loop.WithCleanup("release", func() error { return os.ErrPermission }),
	)

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrShutdownFailed))
}

func TestRunTwice(t *testing.T) {
	d := loop.New(&memChannel{}, controlStepper(t, pid.Unbounded(1, 0, 0, 1)),
		loop.WithClock(newFakeClock()),
		loop.WithIterations(1),
	)
	require.NoError(t, d.Run(context.Background()))

	err := d.Run(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestParseFallbackKeepsLoopRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debugEnv.txt")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	ch := channel.NewFile(path, channel.WithInitial(0.5))
	d := loop.New(ch, controlStepper(t, pid.Unbounded(1, 0, 0, 1)),
		loop.WithClock(newFakeClock()),
		loop.WithIterations(2),
	)

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, 1, ch.Fallbacks())
	assert.Equal(t, 1.0, ch.LastKnown())
}

func TestNoiseLoop(t *testing.T) {
	ch := &memChannel{value: 1}
	model := noise.NewGaussian(0, 0.25, 1)
	d := loop.New(ch, loop.NewNoiseStepper(model, noise.Config{Variant: noise.Gaussian}),
		loop.WithClock(newFakeClock()),
		loop.WithDelay(50*time.Millisecond),
		loop.WithIterations(4),
	)

	require.NoError(t, d.Run(context.Background()))
	assert.InDeltaSlice(t, []float64{1.25, 1.5, 1.75, 2.0}, ch.writes, 1e-12)
}

func TestNoiseStepperNonFiniteCurrent(t *testing.T) {
	s := loop.NewNoiseStepper(noise.NewGaussian(0, 0.5, 1), noise.Config{Variant: noise.Gaussian})

	next, err := s.Step(context.Background(), math.NaN(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, next)
}

func TestNoiseStepperSinePacing(t *testing.T) {
	cfg := noise.Config{Variant: noise.Sine, Period: 10 * time.Second, Amplitude: 1}
	model := noise.NewSine(1, 0)
	s := loop.NewNoiseStepper(model, cfg)

	value := 0.0
	for elapsed := time.Duration(0); elapsed <= 10*time.Second; elapsed += 50 * time.Millisecond {
		var err error
		value, err = s.Step(context.Background(), value, elapsed)
		require.NoError(t, err)
	}

	// one full period returns to the starting phase
	assert.Equal(t, 0, model.Phase())
	assert.InDelta(t, 0.0, value, 1e-9)
}

func TestControlStepperFallback(t *testing.T) {
	s := controlStepper(t, pid.Unbounded(1, 0, 0, 1))

	next, err := s.Step(context.Background(), math.Inf(1), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1.0, next)
	assert.Equal(t, 1.0, s.Controller().LastError())
}

func TestControlStepperScale(t *testing.T) {
	c, err := pid.New(pid.Unbounded(1, 0, 0, 3))
	require.NoError(t, err)
	s := loop.NewControlStepper(c, 0.5)

	next, err := s.Step(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, next)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", loop.Idle.String())
	assert.Equal(t, "interrupted", loop.Interrupted.String())
	assert.Equal(t, "terminated", loop.Terminated.String())
	assert.Equal(t, "unknown", loop.State(42).String())
}
