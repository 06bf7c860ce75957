package config

import (
	"math"
	"strings"
	"time"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/noise"
	"codeberg.org/mutker/pidctl/internal/pid"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the immutable run configuration of one process.
type Config struct {
	Role       Role
	Mode       Mode
	ConfigFile string

	Verbosity   int
	Force       bool
	Delay       time.Duration
	Iterations  int
	Visualize   bool
	LogEnabled  bool
	LogFile     string
	HistoryDB   string
	MetricsAddr string

	File       string
	PV         string
	Initial    float64
	NoDelete   bool
	Wait       time.Duration
	SpawnNoise bool
	GainScale  float64

	PID   pid.Parameters
	Noise noise.Config
}

// Channel returns the name of the shared value this process drives.
func (c *Config) Channel() string {
	if c.Mode == ModeNormal {
		return c.PV
	}

	return c.File
}

// settings mirrors the flag set as viper sees it.
type settings struct {
	Verbose     int     `mapstructure:"verbose" validate:"gte=0"`
	Force       bool    `mapstructure:"force"`
	Delay       float64 `mapstructure:"delay" validate:"gte=0"`
	Iterations  int     `mapstructure:"iterations" validate:"gte=0"`
	Visualize   bool    `mapstructure:"visualize"`
	Log         bool    `mapstructure:"log"`
	LogFile     string  `mapstructure:"log-file" validate:"required_if=Log true"`
	HistoryDB   string  `mapstructure:"history-db"`
	MetricsAddr string  `mapstructure:"metrics-addr" validate:"omitempty,hostname_port"`

	File       string        `mapstructure:"file"`
	PV         string        `mapstructure:"pv"`
	Initial    float64       `mapstructure:"initial"`
	NoDelete   bool          `mapstructure:"no-delete"`
	Wait       time.Duration `mapstructure:"wait" validate:"gte=0"`
	SpawnNoise bool          `mapstructure:"spawn-noise"`
	GainScale  float64       `mapstructure:"gain-scale"`

	Kp         float64 `mapstructure:"kp"`
	Ki         float64 `mapstructure:"ki"`
	Kd         float64 `mapstructure:"kd"`
	Setpoint   float64 `mapstructure:"setpoint"`
	Min        float64 `mapstructure:"min" validate:"ltefield=Max"`
	Max        float64 `mapstructure:"max"`
	SampleTime float64 `mapstructure:"sample-time" validate:"gte=0"`

	Strength  float64 `mapstructure:"noise-strength"`
	Drift     float64 `mapstructure:"drift"`
	NoiseType string  `mapstructure:"noise-type"`
	Period    float64 `mapstructure:"period"`
	Amplitude float64 `mapstructure:"amplitude"`
	Shift     float64 `mapstructure:"shift"`
	Seed      uint64  `mapstructure:"seed"`
}

// Load resolves the configuration for role and mode. Values come from,
// in increasing precedence: built-in defaults, the TOML config file,
// PIDCTL_* environment variables and explicitly set flags.
func Load(flags *pflag.FlagSet, role Role, mode Mode) (*Config, error) {
	errFactory := errors.New()

	if !role.IsValid() {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "unknown role "+string(role))
	}
	if !mode.IsValid() {
		return nil, errFactory.WithData(errors.ErrUnsupportedBackend, string(mode))
	}

	v := viper.New()
	setDefaults(v, role)

	configFile, err := readConfigFile(v, flags)
	if err != nil {
		return nil, err
	}

	v.SetEnvPrefix(DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := validator.New().Struct(s); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	cfg := &Config{
		Role:        role,
		Mode:        mode,
		ConfigFile:  configFile,
		Verbosity:   s.Verbose,
		Force:       s.Force,
		Delay:       seconds(s.Delay),
		Iterations:  s.Iterations,
		Visualize:   s.Visualize,
		LogEnabled:  s.Log,
		LogFile:     s.LogFile,
		HistoryDB:   s.HistoryDB,
		MetricsAddr: s.MetricsAddr,
		File:        s.File,
		PV:          s.PV,
		Initial:     s.Initial,
		NoDelete:    s.NoDelete,
		Wait:        s.Wait,
		SpawnNoise:  s.SpawnNoise,
		GainScale:   s.GainScale,
	}

	switch role {
	case RoleControl:
		cfg.PID = pid.Parameters{
			Kp:         s.Kp,
			Ki:         s.Ki,
			Kd:         s.Kd,
			Setpoint:   s.Setpoint,
			OutputMin:  s.Min,
			OutputMax:  s.Max,
			SampleTime: s.SampleTime,
		}
		if err := cfg.PID.Validate(); err != nil {
			return nil, err
		}
		if math.IsNaN(cfg.GainScale) || math.IsInf(cfg.GainScale, 0) {
			return nil, errFactory.WithData(errors.ErrInvalidConfig, "gain-scale must be finite")
		}
	case RoleNoise:
		variant, err := noise.ParseVariant(s.NoiseType)
		if err != nil {
			return nil, err
		}
		cfg.Noise = noise.Config{
			Variant:   variant,
			Strength:  s.Strength,
			Drift:     s.Drift,
			Period:    seconds(s.Period),
			Amplitude: s.Amplitude,
			Shift:     s.Shift,
			Seed:      s.Seed,
		}
		if err := cfg.Noise.Validate(); err != nil {
			return nil, err
		}
		if mode == ModeNormal && !cfg.Force {
			return nil, errFactory.WithData(errors.ErrInvalidConfig,
				"noise in normal mode perturbs a real device, use --force to confirm")
		}
	}

	if mode == ModeNormal && cfg.PV == "" {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "pv must not be empty")
	}
	if mode == ModeDebug && cfg.File == "" {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "file must not be empty")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, role Role) {
	v.SetDefault(FlagLogFile, DefaultLogFile)
	v.SetDefault(FlagFile, DefaultFile)
	v.SetDefault(FlagPV, DefaultPV)
	v.SetDefault(FlagInitial, DefaultInitial)
	v.SetDefault(FlagGainScale, DefaultGainScale)

	v.SetDefault(FlagKp, DefaultKp)
	v.SetDefault(FlagKi, DefaultKi)
	v.SetDefault(FlagKd, DefaultKd)
	v.SetDefault(FlagSetpoint, DefaultSetpoint)
	v.SetDefault(FlagMin, DefaultMin)
	v.SetDefault(FlagMax, DefaultMax)

	v.SetDefault(FlagStrength, DefaultStrength)
	v.SetDefault(FlagDrift, DefaultDrift)
	v.SetDefault(FlagNoiseType, DefaultNoiseType)
	v.SetDefault(FlagPeriod, DefaultPeriod)
	v.SetDefault(FlagAmplitude, DefaultAmplitude)

	if role == RoleNoise {
		v.SetDefault(FlagDelay, DefaultNoiseDelay)
	} else {
		v.SetDefault(FlagDelay, DefaultControlDelay)
	}
}

// readConfigFile loads an explicit --config file, or /etc/pidctl.toml
// when present. It returns the path that was read, if any.
func readConfigFile(v *viper.Viper, flags *pflag.FlagSet) (string, error) {
	errFactory := errors.New()

	v.SetConfigType("toml")

	explicit := ""
	if f := flags.Lookup(FlagConfig); f != nil {
		explicit = f.Value.String()
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(DefaultConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit == "" && errors.As(err, &notFound) {
			return "", nil
		}

		return "", errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return v.ConfigFileUsed(), nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
