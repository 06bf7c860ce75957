package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/pidctl/internal/config"
	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the command line and returns the process exit code.
func execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		report(err)
		return 1
	}

	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pidctl",
		Short:         "PID control loop for a process variable or a simulated plant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRoleCmd(config.RoleControl, "run the PID controller"),
		newRoleCmd(config.RoleNoise, "perturb the shared value with synthetic noise"),
		&cobra.Command{
			Use:   "version",
			Short: "print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)

	return root
}

func newRoleCmd(role config.Role, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(role),
		Short: short,
	}

	cmd.AddCommand(
		newModeCmd(role, config.ModeNormal, "drive the EPICS process variable"),
		newModeCmd(role, config.ModeDebug, "drive the shared debug file"),
	)

	return cmd
}

func newModeCmd(role config.Role, mode config.Mode, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(mode),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), role, mode)
			if err != nil {
				return err
			}

			logger.Init(cfg.Verbosity, logger.IsService())
			if cfg.ConfigFile != "" {
				logger.Debug().Str("file", cfg.ConfigFile).Msg("Config loaded")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			stop := catchSignals(cancel)
			defer stop()

			return run(ctx, cfg)
		},
	}

	fs := cmd.Flags()
	config.AddCommonFlags(fs)
	switch role {
	case config.RoleControl:
		config.AddControlFlags(fs)
	case config.RoleNoise:
		config.AddNoiseFlags(fs)
	}
	switch mode {
	case config.ModeNormal:
		config.AddNormalFlags(fs, role)
	case config.ModeDebug:
		config.AddDebugFlags(fs, role)
	}

	return cmd
}

// catchSignals cancels on the first SIGINT or SIGTERM and keeps absorbing
// further ones until stop is called, so a repeated interrupt cannot cut
// cleanup short.
func catchSignals(cancel context.CancelFunc) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		received := false
		for {
			select {
			case sig := <-sigs:
				if received {
					logger.Warn().Str("signal", sig.String()).Msg("Already shutting down, waiting for cleanup")
					continue
				}
				received = true
				logger.Info().Str("signal", sig.String()).Msg("Received termination signal.")
				cancel()
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		<-exited
		signal.Stop(sigs)
	}
}

func report(err error) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.ErrorWithCode(appErr).Msg(errors.GetErrorMessage(appErr.Code()))
		return
	}

	logger.Error().Str("error_code", string(errors.CodeOf(err))).Err(err).Msg("pidctl failed")
}
