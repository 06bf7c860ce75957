package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"codeberg.org/mutker/pidctl/internal/channel"
	"codeberg.org/mutker/pidctl/internal/config"
	"codeberg.org/mutker/pidctl/internal/epics"
	"codeberg.org/mutker/pidctl/internal/logger"
	"codeberg.org/mutker/pidctl/internal/loop"
	"codeberg.org/mutker/pidctl/internal/metrics"
	"codeberg.org/mutker/pidctl/internal/noise"
	"codeberg.org/mutker/pidctl/internal/ownedfile"
	"codeberg.org/mutker/pidctl/internal/pid"
	"codeberg.org/mutker/pidctl/internal/plot"
	"codeberg.org/mutker/pidctl/internal/record"
	"codeberg.org/mutker/pidctl/internal/supervisor"
	"codeberg.org/mutker/pidctl/internal/telemetry"
)

// defaultSpawnWait bounds how long the controller waits for a spawned
// noise process to create the shared file.
const defaultSpawnWait = 5 * time.Second

type cleanupStep struct {
	name string
	fn   func() error
}

// session collects everything one run opens, so a failed setup can be
// unwound and a successful one handed to the driver.
type session struct {
	cfg       *config.Config
	sinks     []record.Sink
	cleanups  []cleanupStep
	telemetry *telemetry.Service
}

func run(ctx context.Context, cfg *config.Config) error {
	s := &session{cfg: cfg}

	d, err := s.build(ctx)
	if err != nil {
		s.abort()
		return err
	}

	logger.Info().
		Str("role", string(cfg.Role)).
		Str("mode", string(cfg.Mode)).
		Str("channel", cfg.Channel()).
		Msg("Starting loop")

	err = d.Run(ctx)
	logger.Info().Int("iterations", d.Iterations()).Msg("Exiting...")

	return err
}

func (s *session) build(ctx context.Context) (*loop.Driver, error) {
	cfg := s.cfg

	stepper, err := s.stepper()
	if err != nil {
		return nil, err
	}

	ch, err := s.openChannel(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.MetricsAddr != "" {
		svc, err := telemetry.New(telemetryConfig(cfg))
		if err != nil {
			return nil, err
		}
		s.telemetry = svc
		s.sinks = append(s.sinks, svc)
	}

	if err := s.openHistory(); err != nil {
		return nil, err
	}

	if err := s.openLog(); err != nil {
		return nil, err
	}

	opts := []loop.Option{
		loop.WithRole(string(cfg.Role)),
		loop.WithSink(record.Multi(s.sinks...)),
		loop.WithDelay(cfg.Delay),
		loop.WithSampleTime(time.Duration(cfg.PID.SampleTime * float64(time.Second))),
		loop.WithIterations(cfg.Iterations),
	}
	if cfg.Visualize {
		opts = append(opts, loop.WithVisualizer(plot.NewLive(os.Stdout, cfg.PID.Setpoint, plot.DefaultWindow)))
	}
	for _, c := range s.cleanups {
		opts = append(opts, loop.WithCleanup(c.name, c.fn))
	}

	return loop.New(ch, stepper, opts...), nil
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	tc := telemetry.Config{
		ListenAddr: cfg.MetricsAddr,
		Role:       string(cfg.Role),
		Channel:    cfg.Channel(),
	}
	if cfg.Role == config.RoleControl {
		setpoint := cfg.PID.Setpoint
		tc.Setpoint = &setpoint
	}

	return tc
}

func (s *session) stepper() (loop.Stepper, error) {
	switch s.cfg.Role {
	case config.RoleNoise:
		model, err := noise.New(s.cfg.Noise)
		if err != nil {
			return nil, err
		}
		return loop.NewNoiseStepper(model, s.cfg.Noise), nil
	default:
		controller, err := pid.New(s.cfg.PID)
		if err != nil {
			return nil, err
		}
		if !s.cfg.PID.Clamped() {
			logger.Info().Msg("Controller output is not clamped")
		}
		return loop.NewControlStepper(controller, s.cfg.GainScale), nil
	}
}

func (s *session) openChannel(ctx context.Context) (channel.Channel, error) {
	cfg := s.cfg

	if cfg.Mode == config.ModeNormal {
		client := epics.NewCommandClient()
		if err := client.LookPath(); err != nil {
			return nil, err
		}
		return channel.OpenPV(ctx, client, cfg.PV+channel.OutCurrentSuffix, cfg.Force, s.observeFallback)
	}

	file := channel.NewFile(cfg.File,
		channel.WithInitial(cfg.Initial),
		channel.WithFallbackObserver(s.observeFallback),
	)

	if cfg.Role == config.RoleNoise {
		// the noise process owns the simulated plant
		if err := ownedfile.Claim(cfg.File, cfg.Force); err != nil {
			return nil, err
		}
		if !cfg.NoDelete {
			s.onCleanup("shared file", func() error { return ownedfile.Release(cfg.File) })
		}
		if err := file.Write(ctx, cfg.Initial); err != nil {
			return nil, err
		}
		return file, nil
	}

	wait := cfg.Wait
	if cfg.SpawnNoise {
		if err := s.spawnNoise(); err != nil {
			return nil, err
		}
		if wait == 0 {
			wait = defaultSpawnWait
		}
	}
	if wait > 0 {
		if err := channel.WaitForFile(ctx, cfg.File, wait); err != nil {
			return nil, err
		}
	}

	return file, nil
}

func (s *session) spawnNoise() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	args := []string{string(config.RoleNoise), string(config.ModeDebug), "--" + config.FlagFile, s.cfg.File}
	if s.cfg.ConfigFile != "" {
		args = append(args, "--"+config.FlagConfig, s.cfg.ConfigFile)
	}
	if s.cfg.Force {
		args = append(args, "--"+config.FlagForce)
	}
	if s.cfg.Verbosity > 0 {
		args = append(args, "--"+config.FlagVerbose+"="+strconv.Itoa(s.cfg.Verbosity))
	}

	proc, err := supervisor.Spawn("noise", exe, args...)
	if err != nil {
		return err
	}
	s.onCleanup("noise process", func() error {
		logger.Debug().Int("pid", proc.Pid()).Msg("Stopping noise process")
		return proc.Stop(supervisor.DefaultGracePeriod)
	})

	return nil
}

func (s *session) openHistory() error {
	if s.cfg.HistoryDB == "" {
		return nil
	}

	cfg := metrics.DefaultConfig()
	cfg.DBPath = s.cfg.HistoryDB
	cfg.Enabled = true

	sink, err := metrics.NewRecorder(cfg, metrics.Run{
		Role:     string(s.cfg.Role),
		Mode:     string(s.cfg.Mode),
		Channel:  s.cfg.Channel(),
		Setpoint: s.cfg.PID.Setpoint,
	})
	if err != nil {
		return err
	}
	s.sinks = append(s.sinks, sink)

	return nil
}

func (s *session) openLog() error {
	if !s.cfg.LogEnabled {
		return nil
	}

	if err := ownedfile.Claim(s.cfg.LogFile, s.cfg.Force); err != nil {
		return err
	}

	sink, err := record.CreateFile(s.cfg.LogFile, logHeader(s.cfg))
	if err != nil {
		return err
	}
	s.sinks = append(s.sinks, sink)

	return nil
}

func (s *session) observeFallback(name, reason string) {
	if s.telemetry != nil {
		s.telemetry.ObserveFallback(name, reason)
	}
}

func (s *session) onCleanup(name string, fn func() error) {
	s.cleanups = append(s.cleanups, cleanupStep{name: name, fn: fn})
}

// abort releases whatever build managed to open.
func (s *session) abort() {
	if err := record.Multi(s.sinks...).Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close log")
	}
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		if err := s.cleanups[i].fn(); err != nil {
			logger.Error().Err(err).Str("step", s.cleanups[i].name).Msg("Cleanup step failed")
		}
	}
}
