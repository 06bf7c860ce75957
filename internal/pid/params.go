package pid

import (
	"math"

	"codeberg.org/mutker/pidctl/internal/errors"
)

// Parameters is the immutable tuning of one controller.
type Parameters struct {
	Kp         float64 `mapstructure:"kp"`
	Ki         float64 `mapstructure:"ki"`
	Kd         float64 `mapstructure:"kd"`
	Setpoint   float64 `mapstructure:"setpoint"`
	OutputMin  float64 `mapstructure:"output_min"`
	OutputMax  float64 `mapstructure:"output_max"`
	SampleTime float64 `mapstructure:"sample_time" validate:"gte=0"`
}

// Unbounded returns parameters without output limits.
func Unbounded(kp, ki, kd, setpoint float64) Parameters {
	return Parameters{
		Kp:        kp,
		Ki:        ki,
		Kd:        kd,
		Setpoint:  setpoint,
		OutputMin: math.Inf(-1),
		OutputMax: math.Inf(1),
	}
}

// Clamped reports whether the parameters carry a finite output limit.
func (p Parameters) Clamped() bool {
	return !math.IsInf(p.OutputMin, -1) || !math.IsInf(p.OutputMax, 1)
}

func (p Parameters) Validate() error {
	errFactory := errors.New()

	for name, v := range map[string]float64{"kp": p.Kp, "ki": p.Ki, "kd": p.Kd, "setpoint": p.Setpoint} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errFactory.WithData(errors.ErrInvalidConfig, name+" must be finite")
		}
	}
	if math.IsNaN(p.OutputMin) || math.IsNaN(p.OutputMax) {
		return errFactory.WithData(errors.ErrInvalidConfig, "output limits must not be NaN")
	}
	if p.OutputMin > p.OutputMax {
		return errFactory.WithData(errors.ErrInvalidConfig, "output_min must not exceed output_max")
	}
	if p.SampleTime < 0 || math.IsNaN(p.SampleTime) {
		return errFactory.WithData(errors.ErrInvalidConfig, "sample_time must be >= 0")
	}

	return nil
}
