package config

import "github.com/spf13/pflag"

// Flag names, also used as config file keys and PIDCTL_* environment
// variables (dashes become underscores).
const (
	FlagConfig      = "config"
	FlagVerbose     = "verbose"
	FlagForce       = "force"
	FlagDelay       = "delay"
	FlagIterations  = "iterations"
	FlagVisualize   = "visualize"
	FlagLog         = "log"
	FlagLogFile     = "log-file"
	FlagHistoryDB   = "history-db"
	FlagMetricsAddr = "metrics-addr"

	FlagFile       = "file"
	FlagPV         = "pv"
	FlagInitial    = "initial"
	FlagNoDelete   = "no-delete"
	FlagWait       = "wait"
	FlagSpawnNoise = "spawn-noise"
	FlagGainScale  = "gain-scale"

	FlagKp         = "kp"
	FlagKi         = "ki"
	FlagKd         = "kd"
	FlagSetpoint   = "setpoint"
	FlagMin        = "min"
	FlagMax        = "max"
	FlagSampleTime = "sample-time"

	FlagStrength  = "noise-strength"
	FlagDrift     = "drift"
	FlagNoiseType = "noise-type"
	FlagPeriod    = "period"
	FlagAmplitude = "amplitude"
	FlagShift     = "shift"
	FlagSeed      = "seed"
)

const (
	DefaultKp            = 0.5
	DefaultKi            = 0.3
	DefaultKd            = 0.0
	DefaultSetpoint      = 1.0
	DefaultMin           = -3.0
	DefaultMax           = 3.0
	DefaultControlDelay  = 0.0
	DefaultNoiseDelay    = 0.05
	DefaultStrength      = 0.5
	DefaultDrift         = 0.0
	DefaultNoiseType     = "gaussian"
	DefaultPeriod        = 10.0
	DefaultAmplitude     = 1.0
	DefaultInitial       = 1.0
	DefaultGainScale     = 1.0
	DefaultFile          = "debugEnv.txt"
	DefaultLogFile       = "log.txt"
	DefaultPV            = "I1SV02"
	DefaultConfigPath    = "/etc"
	DefaultConfigName    = "pidctl"
	DefaultEnvPrefix     = "PIDCTL"
)

// AddCommonFlags registers flags shared by every role and mode.
func AddCommonFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "config file (default /etc/pidctl.toml)")
	fs.CountP(FlagVerbose, "v", "verbose output, repeat for more")
	fs.Bool(FlagForce, false, "force connectivity checks to pass and overwrite existing files")
	fs.Int(FlagIterations, 0, "stop after this many iterations (0 runs until interrupted)")
	fs.Bool(FlagLog, false, "log every iteration to --log-file")
	fs.String(FlagLogFile, DefaultLogFile, "file used for logging")
	fs.String(FlagHistoryDB, "", "store every iteration in this sqlite database")
	fs.String(FlagMetricsAddr, "", "serve Prometheus metrics on this address, e.g. :9105")
}

// AddControlFlags registers PID controller flags.
func AddControlFlags(fs *pflag.FlagSet) {
	fs.Float64P(FlagKp, "p", DefaultKp, "coefficient of the proportional term")
	fs.Float64P(FlagKi, "i", DefaultKi, "coefficient of the integral term")
	fs.Float64P(FlagKd, "d", DefaultKd, "coefficient of the derivative term")
	fs.Float64P(FlagSetpoint, "n", DefaultSetpoint, "value the controller aims for")
	fs.Float64(FlagMin, DefaultMin, "minimum controller output (-inf disables)")
	fs.Float64(FlagMax, DefaultMax, "maximum controller output (inf disables)")
	fs.Float64(FlagSampleTime, 0, "minimum seconds between two controller updates")
	fs.Float64P(FlagDelay, "D", DefaultControlDelay, "seconds to wait between iterations")
	fs.Bool(FlagVisualize, false, "plot the values live in the terminal")
}

// AddNoiseFlags registers noise model flags.
func AddNoiseFlags(fs *pflag.FlagSet) {
	fs.Float64(FlagStrength, DefaultStrength, "strength of the gaussian noise")
	fs.Float64(FlagDrift, DefaultDrift, "drift added to every gaussian sample")
	fs.String(FlagNoiseType, DefaultNoiseType, "noise model: gaussian, sine or mix")
	fs.Float64(FlagPeriod, DefaultPeriod, "seconds per sine cycle")
	fs.Float64(FlagAmplitude, DefaultAmplitude, "sine amplitude")
	fs.Float64(FlagShift, 0, "sine vertical shift")
	fs.Uint64(FlagSeed, 0, "random seed for gaussian noise (0 seeds from the clock)")
	fs.Float64P(FlagDelay, "D", DefaultNoiseDelay, "seconds to wait between iterations")
}

// AddDebugFlags registers flags of the file backend.
func AddDebugFlags(fs *pflag.FlagSet, role Role) {
	fs.StringP(FlagFile, "f", DefaultFile, "text file simulating the plant")
	switch role {
	case RoleControl:
		fs.Duration(FlagWait, 0, "wait this long for the shared file to appear")
		fs.Bool(FlagSpawnNoise, false, "start and own a noise process on the same file")
	case RoleNoise:
		fs.Float64(FlagInitial, DefaultInitial, "value written when creating the file")
		fs.Bool(FlagNoDelete, false, "keep the file after exiting")
	}
}

// AddNormalFlags registers flags of the PV backend.
func AddNormalFlags(fs *pflag.FlagSet, role Role) {
	fs.String(FlagPV, DefaultPV, "process variable to drive")
	if role == RoleControl {
		fs.Float64(FlagGainScale, DefaultGainScale, "scale applied to the controller output before writing")
	}
}
