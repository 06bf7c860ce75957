package loop

import (
	"context"
	"math"
	"time"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
	"codeberg.org/mutker/pidctl/internal/noise"
	"codeberg.org/mutker/pidctl/internal/pid"
)

// FallbackValue replaces a measured value that is not a finite number.
const FallbackValue = 0.0

// Stepper computes the next shared value from the current one. elapsed
// is the time since the loop started.
type Stepper interface {
	Step(ctx context.Context, current float64, elapsed time.Duration) (float64, error)
}

// ControlStepper drives the shared value toward the controller setpoint.
// The controller output is applied incrementally: next = current + scale*output.
type ControlStepper struct {
	controller *pid.Controller
	scale      float64
	last       time.Duration
}

func NewControlStepper(controller *pid.Controller, scale float64) *ControlStepper {
	return &ControlStepper{
		controller: controller,
		scale:      scale,
	}
}

func (s *ControlStepper) Step(_ context.Context, current float64, elapsed time.Duration) (float64, error) {
	dt := max(elapsed-s.last, 0).Seconds()
	s.last = elapsed

	output, err := s.controller.Compute(current, dt)
	if errors.HasCode(err, errors.ErrInvalidInput) {
		logger.Info().
			Float64("measured", current).
			Float64("fallback", FallbackValue).
			Msg("Measured value is not a number, using fallback")
		current = FallbackValue
		output, err = s.controller.Compute(current, dt)
	}
	if err != nil {
		return 0, err
	}

	return current + s.scale*output, nil
}

// Controller returns the wrapped controller.
func (s *ControlStepper) Controller() *pid.Controller {
	return s.controller
}

// NoiseStepper perturbs the shared value with one noise sample per step.
type NoiseStepper struct {
	model noise.Model
	cfg   noise.Config
	index int
}

func NewNoiseStepper(model noise.Model, cfg noise.Config) *NoiseStepper {
	return &NoiseStepper{
		model: model,
		cfg:   cfg,
	}
}

func (s *NoiseStepper) Step(_ context.Context, current float64, elapsed time.Duration) (float64, error) {
	if math.IsNaN(current) || math.IsInf(current, 0) {
		logger.Info().Float64("current", current).Msg("Current value is not a number, using fallback")
		current = FallbackValue
	}

	tick := s.index
	if s.model.Variant() != noise.Gaussian {
		// sine phase follows wall time, not the call rate
		tick = s.cfg.TickAt(elapsed)
	}
	s.index++

	return current + s.model.Sample(tick), nil
}
