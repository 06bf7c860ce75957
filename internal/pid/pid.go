// Package pid implements a clamped PID controller with conditional
// integration anti-windup.
package pid

import (
	"math"

	"codeberg.org/mutker/pidctl/internal/errors"
)

// Controller holds the mutable loop state for one set of Parameters.
// It is not safe for concurrent use.
type Controller struct {
	params Parameters

	integral   float64
	lastError  float64
	lastOutput float64
}

func New(params Parameters) (*Controller, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Controller{params: params}, nil
}

// Compute advances the controller by dt seconds and returns the clamped
// output for the measured value.
//
// A step whose integration would leave the output beyond a limit while
// pushing further into it is computed without that integration, so the
// integral never winds up against the rail. Integration resumes on the
// first step whose output falls back inside the limits, or whose error
// pulls away from the rail.
func (c *Controller) Compute(measured, dt float64) (float64, error) {
	errFactory := errors.New()

	if math.IsNaN(measured) || math.IsInf(measured, 0) {
		return c.lastOutput, errFactory.WithData(errors.ErrInvalidInput, measured)
	}
	if dt < 0 || math.IsNaN(dt) {
		return c.lastOutput, errFactory.WithData(errors.ErrInvalidArgument, "dt must be >= 0")
	}

	p := c.params
	err := p.Setpoint - measured

	proportional := p.Kp * err

	var derivative float64
	if dt > 0 {
		derivative = p.Kd * (err - c.lastError) / dt
	}

	step := p.Ki * err * dt
	integral := c.integral + step
	raw := proportional + integral + derivative

	switch {
	case raw > p.OutputMax && step > 0, raw < p.OutputMin && step < 0:
		integral = c.integral
		raw = proportional + integral + derivative
	}

	c.integral = integral
	c.lastError = err
	c.lastOutput = clamp(raw, p.OutputMin, p.OutputMax)

	return c.lastOutput, nil
}

func (c *Controller) Parameters() Parameters {
	return c.params
}

func (c *Controller) Integral() float64 {
	return c.integral
}

func (c *Controller) LastError() float64 {
	return c.lastError
}

func (c *Controller) LastOutput() float64 {
	return c.lastOutput
}

func clamp(value, minValue, maxValue float64) float64 {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}

	return value
}
