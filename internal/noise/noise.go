// Package noise generates synthetic plant disturbance.
//
// Every model returns a perturbation to be added to an accumulating value.
// Sine returns the delta between consecutive points of a precomputed cycle
// rather than an absolute value, so it never overwrites what the controller
// has written.
package noise

import (
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"codeberg.org/mutker/pidctl/internal/errors"
)

// SampleCount is the number of precomputed points in one sine cycle.
const SampleCount = 100

type Variant int

const (
	Gaussian Variant = iota + 1
	Sine
	Mix
)

func (v Variant) String() string {
	switch v {
	case Gaussian:
		return "gaussian"
	case Sine:
		return "sine"
	case Mix:
		return "mix"
	default:
		return "unknown"
	}
}

// ParseVariant maps a configuration name to a Variant.
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gaussian", "normal", "random":
		return Gaussian, nil
	case "sine", "sin":
		return Sine, nil
	case "mix", "mixed":
		return Mix, nil
	default:
		return 0, errors.New().WithData(errors.ErrUnrecognizedNoise, name)
	}
}

// Config is the immutable noise configuration built at startup.
type Config struct {
	Variant   Variant
	Strength  float64
	Drift     float64
	Period    time.Duration
	Amplitude float64
	Shift     float64
	// Seed makes Gaussian draws reproducible. Zero seeds from the clock.
	Seed uint64
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Variant {
	case Gaussian:
	case Sine, Mix:
		if c.Period <= 0 {
			return errFactory.WithData(errors.ErrInvalidConfig, "period must be > 0")
		}
	default:
		return errFactory.WithData(errors.ErrUnrecognizedNoise, c.Variant.String())
	}

	return nil
}

// TickAt converts the time elapsed since the loop started into a sine
// tick index, so a full cycle of SampleCount ticks spans one Period no
// matter how often the model is sampled.
func (c Config) TickAt(elapsed time.Duration) int {
	if c.Period <= 0 || elapsed <= 0 {
		return 0
	}

	return int(float64(elapsed) / float64(c.Period) * SampleCount)
}

// Model produces one perturbation per logical tick.
type Model interface {
	Sample(tick int) float64
	Variant() Variant
}

// New builds the model for cfg.Variant.
func New(cfg Config) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Variant {
	case Gaussian:
		return NewGaussian(cfg.Strength, cfg.Drift, cfg.Seed), nil
	case Sine:
		return NewSine(cfg.Amplitude, cfg.Shift), nil
	case Mix:
		return NewMix(NewGaussian(cfg.Strength, cfg.Drift, cfg.Seed), NewSine(cfg.Amplitude, cfg.Shift)), nil
	}

	return nil, errors.New().WithData(errors.ErrUnrecognizedNoise, cfg.Variant.String())
}

type GaussianModel struct {
	strength float64
	drift    float64
	rng      *rand.Rand
}

// NewGaussian draws strength*N(0,1)+drift. Identical non-zero seeds
// reproduce identical sequences.
func NewGaussian(strength, drift float64, seed uint64) *GaussianModel {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &GaussianModel{
		strength: strength,
		drift:    drift,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (g *GaussianModel) Sample(_ int) float64 {
	return g.strength*g.rng.NormFloat64() + g.drift
}

func (*GaussianModel) Variant() Variant {
	return Gaussian
}

type SineModel struct {
	points [SampleCount]float64
	phase  int
}

func NewSine(amplitude, shift float64) *SineModel {
	s := &SineModel{}
	for k := range s.points {
		s.points[k] = amplitude*math.Sin(2*math.Pi*float64(k)/SampleCount) + shift
	}

	return s
}

// Sample moves the phase to tick and returns the change from the previous
// phase. Repeating a tick yields 0.
func (s *SineModel) Sample(tick int) float64 {
	next := tick % SampleCount
	if next < 0 {
		next += SampleCount
	}

	delta := s.points[next] - s.points[s.phase]
	s.phase = next

	return delta
}

// Phase returns the current index into the precomputed cycle.
func (s *SineModel) Phase() int {
	return s.phase
}

func (*SineModel) Variant() Variant {
	return Sine
}

// MixModel averages one Gaussian and one Sine sample taken at the same tick.
type MixModel struct {
	gaussian *GaussianModel
	sine     *SineModel
}

func NewMix(gaussian *GaussianModel, sine *SineModel) *MixModel {
	return &MixModel{gaussian: gaussian, sine: sine}
}

func (m *MixModel) Sample(tick int) float64 {
	g := m.gaussian.Sample(tick)
	s := m.sine.Sample(tick)

	return (g + s) / 2
}

func (*MixModel) Variant() Variant {
	return Mix
}
