package pid_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newController(t *testing.T, params pid.Parameters) *pid.Controller {
	t.Helper()
	c, err := pid.New(params)
	require.NoError(t, err)
	return c
}

func TestProportionalOnly(t *testing.T) {
	c := newController(t, pid.Unbounded(1, 0, 0, 5))

	out, err := c.Compute(3, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out, 1e-12)
	assert.InDelta(t, 2.0, c.LastError(), 1e-12)
	assert.InDelta(t, 2.0, c.LastOutput(), 1e-12)
}

func TestZeroDtSkipsDerivativeAndIntegral(t *testing.T) {
	c := newController(t, pid.Unbounded(0, 1, 1, 1))

	out, err := c.Compute(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out)
	assert.Equal(t, 0.0, c.Integral())
	assert.InDelta(t, 1.0, c.LastError(), 1e-12)
}

func TestIntegralAndDerivative(t *testing.T) {
	c := newController(t, pid.Unbounded(0, 2, 0.5, 1))

	// error 1, dt 0.5: integral = 2*1*0.5 = 1, derivative = 0.5*(1-0)/0.5 = 1
	out, err := c.Compute(0, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out, 1e-12)
	assert.InDelta(t, 1.0, c.Integral(), 1e-12)

	// error 0.5: integral = 1 + 2*0.5*0.5 = 1.5, derivative = 0.5*(0.5-1)/0.5 = -0.5
	out, err = c.Compute(0.5, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out, 1e-12)
	assert.InDelta(t, 1.5, c.Integral(), 1e-12)
}

func TestClampAndRecovery(t *testing.T) {
	params := pid.Unbounded(5, 0, 0, 1)
	params.OutputMin = -1
	params.OutputMax = 1
	c := newController(t, params)

	// raw = 5*(1-0) = 5
	out, err := c.Compute(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out)
	assert.Equal(t, 1.0, c.LastOutput())
	assert.InDelta(t, 1.0, c.LastError(), 1e-12)

	out, err = c.Compute(1.5, 1)
	require.NoError(t, err)
	assert.Less(t, out, 1.0, "opposite-sign error must move the output off the rail")
}

func TestAntiWindup(t *testing.T) {
	params := pid.Unbounded(0, 1, 0, 1)
	params.OutputMin = -1
	params.OutputMax = 1
	c := newController(t, params)

	for range 50 {
		out, err := c.Compute(0, 1)
		require.NoError(t, err)
		assert.Equal(t, 1.0, out)
	}
	assert.InDelta(t, 1.0, c.Integral(), 1e-12, "integral must not wind up while saturated")

	// error reverses: the integral unwinds on the very next call
	out, err := c.Compute(2, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out, 1e-12)
}

func TestIntegrationResumesInsideLimits(t *testing.T) {
	c := newController(t, pid.Parameters{Kp: 1, Ki: 1, Setpoint: 5, OutputMin: -1, OutputMax: 1})

	out, err := c.Compute(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out)
	assert.Equal(t, 0.0, c.Integral())

	// same error sign, but the output is no longer saturated
	out, err = c.Compute(4.5, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out)
	assert.Equal(t, 0.5, c.Integral())
}

func TestAntiWindupLowerRail(t *testing.T) {
	params := pid.Unbounded(0, 1, 0, 0)
	params.OutputMin = -2
	params.OutputMax = 2
	c := newController(t, params)

	for range 20 {
		_, err := c.Compute(1, 1)
		require.NoError(t, err)
	}
	assert.InDelta(t, -2.0, c.Integral(), 1e-12)
	assert.Equal(t, -2.0, c.LastOutput())

	out, err := c.Compute(-1, 1)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, out, 1e-12)
}

func TestUnclampedIntegration(t *testing.T) {
	c := newController(t, pid.Unbounded(0, 1, 0, 1))

	for range 10 {
		_, err := c.Compute(0, 1)
		require.NoError(t, err)
	}
	assert.InDelta(t, 10.0, c.LastOutput(), 1e-12)
}

func TestOutputAlwaysWithinLimits(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for range 200 {
		lo := rng.Float64()*10 - 5
		hi := lo + rng.Float64()*10
		params := pid.Parameters{
			Kp:        rng.Float64() * 5,
			Ki:        rng.Float64() * 5,
			Kd:        rng.Float64() * 5,
			Setpoint:  rng.Float64()*20 - 10,
			OutputMin: lo,
			OutputMax: hi,
		}
		c := newController(t, params)

		for range 50 {
			measured := rng.NormFloat64() * 100
			out, err := c.Compute(measured, rng.Float64())
			require.NoError(t, err)
			assert.GreaterOrEqual(t, out, lo)
			assert.LessOrEqual(t, out, hi)
		}
	}
}

func TestNonFiniteInput(t *testing.T) {
	c := newController(t, pid.Unbounded(1, 0, 0, 0))

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := c.Compute(v, 1)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrInvalidInput))
	}
}

func TestNegativeDt(t *testing.T) {
	c := newController(t, pid.Unbounded(1, 0, 0, 0))

	_, err := c.Compute(1, -1)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestParametersValidate(t *testing.T) {
	bad := pid.Unbounded(1, 0, 0, 0)
	bad.OutputMin = 2
	bad.OutputMax = 1
	_, err := pid.New(bad)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))

	bad = pid.Unbounded(1, 0, 0, 0)
	bad.SampleTime = -1
	assert.Error(t, bad.Validate())

	bad = pid.Unbounded(math.NaN(), 0, 0, 0)
	assert.Error(t, bad.Validate())

	assert.False(t, pid.Unbounded(1, 0, 0, 0).Clamped())
	clamped := pid.Unbounded(1, 0, 0, 0)
	clamped.OutputMax = 3
	assert.True(t, clamped.Clamped())
}
