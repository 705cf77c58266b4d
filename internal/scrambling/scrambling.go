// Package scrambling randomizes event coordinates to build background-like
// trial data from experimental data.
package scrambling

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"gollh/domain/core"
	"gollh/internal/events"
	"gollh/internal/livetime"
	"gollh/ports"
)

const (
	siderealLength = 0.997269566
	siderealOffset = 2.54199002505
)

// Method scrambles the given events in place.
type Method interface {
	Scramble(rss ports.RandomState, data *events.Table) error
}

// UniformRA redraws only the "ra" field uniformly within [Lo, Hi).
type UniformRA struct {
	Lo, Hi float64
}

// NewUniformRA returns the method for the full circle [0, 2π).
func NewUniformRA() *UniformRA {
	return &UniformRA{Lo: 0, Hi: 2 * math.Pi}
}

// NewUniformRAInRange returns the method for a custom RA range.
func NewUniformRAInRange(lo, hi float64) (*UniformRA, error) {
	if !(hi > lo) {
		return nil, core.NewValidationError("ra range", fmt.Sprintf("upper bound %g must exceed lower bound %g", hi, lo))
	}
	return &UniformRA{Lo: lo, Hi: hi}, nil
}

func (m *UniformRA) Scramble(rss ports.RandomState, data *events.Table) error {
	return data.SetFloat64("ra", rss.Uniform(m.Lo, m.Hi, data.Len()))
}

// TimeDep draws a new detection time for every event, picking a good run
// with probability proportional to its share of experimental events and a
// time uniformly within that run, then rotates the local azimuth into RA.
type TimeDep struct {
	starts  []float64
	stops   []float64
	weights []float64
}

// NewTimeDep derives run weights from the experimental event times.
func NewTimeDep(exp, grl *events.Table) (*TimeDep, error) {
	if exp == nil || grl == nil {
		return nil, core.NewValidationError("time scrambling", "experimental data and good-run list are required")
	}
	times, err := exp.Float64("time")
	if err != nil {
		return nil, err
	}
	starts, err := grl.Float64("start")
	if err != nil {
		return nil, err
	}
	stops, err := grl.Float64("stop")
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, core.NewDegenerateError("time scrambling", "no experimental events")
	}

	weights := make([]float64, len(starts))
	for i := range starts {
		n := 0
		for _, t := range times {
			if t > starts[i] && t < stops[i] {
				n++
			}
		}
		weights[i] = float64(n) / float64(len(times))
	}
	sum := floats.Sum(weights)
	if sum <= 0 {
		return nil, core.NewDegenerateError("time scrambling", "no experimental events inside any good run")
	}
	floats.Scale(1/sum, weights)

	return &TimeDep{
		starts:  append([]float64(nil), starts...),
		stops:   append([]float64(nil), stops...),
		weights: weights,
	}, nil
}

// Weights returns the normalized run weights.
func (m *TimeDep) Weights() []float64 { return append([]float64(nil), m.weights...) }

func (m *TimeDep) Scramble(rss ports.RandomState, data *events.Table) error {
	azi, err := data.Float64("azi")
	if err != nil {
		return err
	}
	runs, err := rss.Choice(len(m.starts), data.Len(), m.weights, true)
	if err != nil {
		return fmt.Errorf("drawing runs: %w", err)
	}
	lo := make([]float64, len(runs))
	hi := make([]float64, len(runs))
	for i, r := range runs {
		lo[i], hi[i] = m.starts[r], m.stops[r]
	}
	times, err := rss.UniformRange(lo, hi)
	if err != nil {
		return err
	}
	if err := data.SetFloat64("time", times); err != nil {
		return err
	}
	return data.SetFloat64("ra", AzimuthRAConverter(azi, times))
}

// AzimuthRAConverter rotates azimuth into right ascension (and back) for the
// given MJD times, approximating the detector axis as the pole.
func AzimuthRAConverter(angles, mjd []float64) []float64 {
	out := make([]float64, len(angles))
	for i := range angles {
		residual := math.Mod(mjd[i]/siderealLength, 1)
		out[i] = mod2Pi(siderealOffset + 2*math.Pi*residual - angles[i])
	}
	return out
}

// TimeGenerator produces random detection times.
type TimeGenerator interface {
	GenerateTimes(rss ports.RandomState, n int) []float64
}

// LivetimeTimeGenerator draws times uniformly within the detector uptime.
type LivetimeTimeGenerator struct {
	Livetime *livetime.Livetime
}

func (g LivetimeTimeGenerator) GenerateTimes(rss ports.RandomState, n int) []float64 {
	return g.Livetime.MJDsFromUniform(rss.Uniform(0, 1, n))
}

// HorToEquFunc transforms local (azimuth, zenith) coordinates at the given
// times into (ra, dec).
type HorToEquFunc func(azi, zen, mjd []float64) (ra, dec []float64)

// TimeScrambling draws new times and recomputes both equatorial coordinates
// from the local ones.
type TimeScrambling struct {
	gen       TimeGenerator
	transform HorToEquFunc
}

func NewTimeScrambling(gen TimeGenerator, transform HorToEquFunc) (*TimeScrambling, error) {
	if gen == nil || transform == nil {
		return nil, core.NewValidationError("time scrambling", "time generator and transform are required")
	}
	return &TimeScrambling{gen: gen, transform: transform}, nil
}

func (m *TimeScrambling) Scramble(rss ports.RandomState, data *events.Table) error {
	azi, err := data.Float64("azi")
	if err != nil {
		return err
	}
	zen, err := data.Float64("zen")
	if err != nil {
		return err
	}
	mjds := m.gen.GenerateTimes(rss, data.Len())
	ra, dec := m.transform(azi, zen, mjds)
	if err := data.SetFloat64("time", mjds); err != nil {
		return err
	}
	if err := data.SetFloat64("ra", ra); err != nil {
		return err
	}
	return data.SetFloat64("dec", dec)
}

// Scrambler applies a scrambling method.
type Scrambler struct {
	method Method
}

func NewScrambler(method Method) (*Scrambler, error) {
	if method == nil {
		return nil, core.NewValidationError("scrambler", "method must not be nil")
	}
	return &Scrambler{method: method}, nil
}

func (s *Scrambler) Method() Method { return s.method }

// ScrambleData scrambles data, or a copy of it when copyData is set, and returns
// the scrambled table.
func (s *Scrambler) ScrambleData(rss ports.RandomState, data *events.Table, copyData bool) (*events.Table, error) {
	if copyData {
		data = data.Copy()
	}
	if err := s.method.Scramble(rss, data); err != nil {
		return nil, fmt.Errorf("scrambling data: %w", err)
	}
	return data, nil
}

func mod2Pi(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x
}
