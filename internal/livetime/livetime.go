// Package livetime describes detector uptime as a set of MJD intervals.
package livetime

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"gollh/domain/core"
	"gollh/internal/events"
)

// Provider is anything that can state a livetime in days: a plain scalar or
// a Livetime built from good-run intervals.
type Provider interface {
	LivetimeDays() float64
}

// Days is a scalar livetime.
type Days float64

func (d Days) LivetimeDays() float64 { return float64(d) }

// Livetime holds sorted, non-overlapping uptime intervals in MJD.
type Livetime struct {
	starts []float64
	stops  []float64
}

// New validates and sorts the given intervals.
func New(starts, stops []float64) (*Livetime, error) {
	if len(starts) != len(stops) {
		return nil, fmt.Errorf("%w: %d starts vs %d stops", core.ErrShapeMismatch, len(starts), len(stops))
	}
	if len(starts) == 0 {
		return nil, core.NewValidationError("livetime", "at least one uptime interval is required")
	}
	idx := make([]int, len(starts))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return starts[idx[a]] < starts[idx[b]] })

	lt := &Livetime{starts: make([]float64, len(starts)), stops: make([]float64, len(stops))}
	for i, j := range idx {
		if !(stops[j] > starts[j]) {
			return nil, core.NewValidationError("livetime", fmt.Sprintf("interval %d has stop %g <= start %g", j, stops[j], starts[j]))
		}
		lt.starts[i], lt.stops[i] = starts[j], stops[j]
		if i > 0 && lt.starts[i] < lt.stops[i-1] {
			return nil, core.NewValidationError("livetime", fmt.Sprintf("interval starting at %g overlaps the previous one", lt.starts[i]))
		}
	}
	return lt, nil
}

// FromGRL builds the livetime from a good-run-list table with "start" and "stop" MJD fields.
func FromGRL(grl *events.Table) (*Livetime, error) {
	starts, err := grl.Float64("start")
	if err != nil {
		return nil, fmt.Errorf("good-run list: %w", err)
	}
	stops, err := grl.Float64("stop")
	if err != nil {
		return nil, fmt.Errorf("good-run list: %w", err)
	}
	return New(starts, stops)
}

// LivetimeDays returns the total uptime.
func (lt *Livetime) LivetimeDays() float64 {
	return floats.Sum(lt.Durations())
}

// Durations returns the length in days of each interval.
func (lt *Livetime) Durations() []float64 {
	d := make([]float64, len(lt.starts))
	floats.SubTo(d, lt.stops, lt.starts)
	return d
}

func (lt *Livetime) NIntervals() int { return len(lt.starts) }

// TimeWindow returns the first start and the last stop.
func (lt *Livetime) TimeWindow() (start, stop float64) {
	return lt.starts[0], lt.stops[len(lt.stops)-1]
}

// Interval returns the i-th interval.
func (lt *Livetime) Interval(i int) (start, stop float64) {
	return lt.starts[i], lt.stops[i]
}

// IsOn reports whether the detector was taking data at mjd.
func (lt *Livetime) IsOn(mjd float64) bool {
	i := sort.SearchFloat64s(lt.starts, mjd)
	if i < len(lt.starts) && lt.starts[i] == mjd {
		return true
	}
	i--
	return i >= 0 && mjd < lt.stops[i]
}

// MJDsFromUniform maps uniform variates u in [0, 1) onto uptime so that the
// resulting times are uniformly distributed over the live intervals.
func (lt *Livetime) MJDsFromUniform(u []float64) []float64 {
	d := lt.Durations()
	cum := make([]float64, len(d))
	floats.CumSum(cum, d)
	total := cum[len(cum)-1]

	out := make([]float64, len(u))
	for k, x := range u {
		target := x * total
		i := sort.SearchFloat64s(cum, target)
		if i < len(cum) && cum[i] == target {
			i++
		}
		if i >= len(cum) {
			i = len(cum) - 1
		}
		before := 0.0
		if i > 0 {
			before = cum[i-1]
		}
		out[k] = lt.starts[i] + (target - before)
	}
	return out
}
