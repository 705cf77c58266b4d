package pdf

import (
	"fmt"
	"math"

	"gollh/domain/core"
	"gollh/internal/events"
)

// InterpolatedSet evaluates probabilities between grid points by multi-linear
// interpolation of the exact grid PDFs enclosing the requested parameters.
type InterpolatedSet[T PDF] struct {
	*Set[T]
}

// NewInterpolatedSet wraps an exact-match set.
func NewInterpolatedSet[T PDF](set *Set[T]) *InterpolatedSet[T] {
	return &InterpolatedSet[T]{Set: set}
}

// GetProb interpolates the probability of every event. Every grid parameter
// must be present in params; other parameters are passed to the grid PDFs.
// The returned gradients hold the interpolation slope for each grid
// parameter plus the weighted gradients reported by the grid PDFs.
func (s *InterpolatedSet[T]) GetProb(data DataSource, params map[string]float64) ([]float64, map[string][]float64, error) {
	grids := s.grids.Grids()
	d := len(grids)
	lo := make([]float64, d)
	hi := make([]float64, d)
	frac := make([]float64, d)
	for i, g := range grids {
		v, ok := params[g.Name()]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q required for interpolation", core.ErrParameterNotFound, g.Name())
		}
		l, h, t, err := g.Bracket(v)
		if err != nil {
			return nil, nil, err
		}
		lo[i], hi[i], frac[i] = g.At(l), g.At(h), t
	}

	var prob []float64
	grads := make(map[string][]float64)
	for corner := 0; corner < 1<<d; corner++ {
		gridParams := make(map[string]float64, d)
		callParams := make(map[string]float64, len(params))
		for k, v := range params {
			callParams[k] = v
		}
		w := 1.0
		for i, g := range grids {
			if corner&(1<<i) != 0 {
				gridParams[g.Name()] = hi[i]
				w *= frac[i]
			} else {
				gridParams[g.Name()] = lo[i]
				w *= 1 - frac[i]
			}
			callParams[g.Name()] = gridParams[g.Name()]
		}

		p, err := s.GetPDF(gridParams)
		if err != nil {
			return nil, nil, err
		}
		cp, cgrads, err := p.GetProb(data, callParams)
		if err != nil {
			return nil, nil, err
		}
		if prob == nil {
			prob = make([]float64, len(cp))
		}

		for j := range cp {
			prob[j] += w * cp[j]
		}
		for name, g := range cgrads {
			acc := gradSlot(grads, name, len(cp))
			for j := range g {
				acc[j] += w * g[j]
			}
		}
		for i, g := range grids {
			// d(weight)/d(param_i) for this corner
			dw := 1 / g.Delta()
			if corner&(1<<i) == 0 {
				dw = -dw
			}
			for k := range grids {
				if k == i {
					continue
				}
				if corner&(1<<k) != 0 {
					dw *= frac[k]
				} else {
					dw *= 1 - frac[k]
				}
			}
			acc := gradSlot(grads, g.Name(), len(cp))
			for j := range cp {
				acc[j] += dw * cp[j]
			}
		}
	}

	for j, v := range prob {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, core.NewDegenerateError("interpolated pdf", fmt.Sprintf("non-finite probability for event %d", j))
		}
	}
	return prob, grads, nil
}

// AssertIsValidForExpData checks all grid PDFs.
func (s *InterpolatedSet[T]) AssertIsValidForExpData(data *events.Table) error {
	return s.Set.AssertIsValidForExpData(data)
}

func gradSlot(grads map[string][]float64, name string, n int) []float64 {
	g, ok := grads[name]
	if !ok {
		g = make([]float64, n)
		grads[name] = g
	}
	return g
}
