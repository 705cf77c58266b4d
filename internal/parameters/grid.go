// Package parameters defines discretized parameter axes and the per-source
// parameter arrays passed between the weighting components.
package parameters

import (
	"fmt"
	"math"

	"gollh/domain/core"
)

const (
	maxDecimals      = 10
	uniformityRelTol = 1e-6
	gridPointRelTol  = 1e-9
)

// Grid is an ordered, uniformly spaced sequence of values for one parameter.
type Grid struct {
	name     string
	values   []float64
	delta    float64
	decimals int
}

// NewGrid creates a grid from explicit values. The values must be strictly
// increasing and uniformly spaced. They are rounded to the number of decimals
// needed to represent the step exactly.
func NewGrid(name string, values []float64) (*Grid, error) {
	if name == "" {
		return nil, core.NewValidationError("parameter grid", "name must not be empty")
	}
	if len(values) < 2 {
		return nil, core.NewValidationError("parameter grid "+name, "at least two values are required")
	}
	delta := values[1] - values[0]
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if !(d > 0) {
			return nil, core.NewValidationError("parameter grid "+name, fmt.Sprintf("values not strictly increasing at index %d", i))
		}
		if math.Abs(d-delta) > uniformityRelTol*math.Abs(delta) {
			return nil, core.NewValidationError("parameter grid "+name, fmt.Sprintf("non-uniform spacing at index %d: %g != %g", i, d, delta))
		}
	}
	decimals := decimalsFor(delta)
	g := &Grid{
		name:     name,
		delta:    round(delta, decimals),
		decimals: decimals,
		values:   make([]float64, len(values)),
	}
	for i, v := range values {
		g.values[i] = round(v, decimals)
	}
	return g, nil
}

// NewLinearGrid creates a grid from lower to upper (inclusive when upper lies
// on a grid point) with the given step.
func NewLinearGrid(name string, lower, upper, delta float64) (*Grid, error) {
	if !(delta > 0) {
		return nil, core.NewValidationError("parameter grid "+name, "delta must be positive")
	}
	if !(upper > lower) {
		return nil, core.NewValidationError("parameter grid "+name, "upper must be greater than lower")
	}
	n := int(math.Floor((upper-lower)/delta+gridPointRelTol)) + 1
	values := make([]float64, n)
	for i := range values {
		values[i] = lower + float64(i)*delta
	}
	return NewGrid(name, values)
}

func (g *Grid) Name() string     { return g.name }
func (g *Grid) Len() int         { return len(g.values) }
func (g *Grid) Delta() float64   { return g.delta }
func (g *Grid) Lower() float64   { return g.values[0] }
func (g *Grid) Upper() float64   { return g.values[len(g.values)-1] }
func (g *Grid) Decimals() int    { return g.decimals }
func (g *Grid) At(i int) float64 { return g.values[i] }

// Values returns a copy of the grid values.
func (g *Grid) Values() []float64 {
	return append([]float64(nil), g.values...)
}

// AsLinearGrid returns a grid with the given step covering the same bounds.
func (g *Grid) AsLinearGrid(delta float64) (*Grid, error) {
	return NewLinearGrid(g.name, g.Lower(), g.Upper(), delta)
}

// WithExtraLowerAndUpperBin returns a copy extended by one step at each end.
func (g *Grid) WithExtraLowerAndUpperBin() *Grid {
	values := make([]float64, 0, len(g.values)+2)
	values = append(values, round(g.Lower()-g.delta, g.decimals))
	values = append(values, g.values...)
	values = append(values, round(g.Upper()+g.delta, g.decimals))
	return &Grid{name: g.name, values: values, delta: g.delta, decimals: g.decimals}
}

// Contains reports whether v lies within [Lower, Upper].
func (g *Grid) Contains(v float64) bool {
	tol := gridPointRelTol * g.delta
	return v >= g.Lower()-tol && v <= g.Upper()+tol
}

// Bracket returns the indices of the grid points enclosing v and the
// fractional position t in [0, 1] of v between them. A value exactly on the
// upper edge maps to the last interval with t=1.
func (g *Grid) Bracket(v float64) (lo, hi int, t float64, err error) {
	if !g.Contains(v) {
		return 0, 0, 0, core.NewValidationError("parameter "+g.name,
			fmt.Sprintf("value %g outside grid range [%g, %g]", v, g.Lower(), g.Upper()))
	}
	pos := (v - g.Lower()) / g.delta
	lo = int(math.Floor(pos + gridPointRelTol))
	if lo >= len(g.values)-1 {
		lo = len(g.values) - 2
	}
	if lo < 0 {
		lo = 0
	}
	hi = lo + 1
	t = pos - float64(lo)
	if math.Abs(t) < gridPointRelTol {
		t = 0
	}
	if math.Abs(t-1) < gridPointRelTol {
		t = 1
	}
	return lo, hi, t, nil
}

// RoundToLowerGridPoint returns the largest grid value not above v.
func (g *Grid) RoundToLowerGridPoint(v float64) float64 {
	i := math.Floor((v-g.Lower())/g.delta + gridPointRelTol)
	return round(g.Lower()+i*g.delta, g.decimals)
}

// RoundToUpperGridPoint returns the smallest grid value not below v.
func (g *Grid) RoundToUpperGridPoint(v float64) float64 {
	i := math.Ceil((v-g.Lower())/g.delta - gridPointRelTol)
	return round(g.Lower()+i*g.delta, g.decimals)
}

// RoundToNearestGridPoint returns the grid value closest to v.
func (g *Grid) RoundToNearestGridPoint(v float64) float64 {
	i := math.Round((v - g.Lower()) / g.delta)
	return round(g.Lower()+i*g.delta, g.decimals)
}

func (g *Grid) String() string {
	return fmt.Sprintf("%s: %d values in [%g, %g], delta=%g", g.name, len(g.values), g.Lower(), g.Upper(), g.delta)
}

func decimalsFor(delta float64) int {
	for d := 0; d <= maxDecimals; d++ {
		scaled := delta * math.Pow10(d)
		if math.Abs(scaled-math.Round(scaled)) < 1e-6*math.Max(1, math.Abs(scaled)) {
			return d
		}
	}
	return maxDecimals
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}
