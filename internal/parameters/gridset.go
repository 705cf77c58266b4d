package parameters

import (
	"fmt"

	"gollh/domain/core"
)

// GridSet is an ordered set of grids keyed by parameter name.
type GridSet struct {
	grids []*Grid
	index map[string]int
}

// NewGridSet creates a set from the given grids. Duplicate names are a consistency error.
func NewGridSet(grids ...*Grid) (*GridSet, error) {
	s := &GridSet{index: make(map[string]int)}
	for _, g := range grids {
		if err := s.Add(g); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a grid.
func (s *GridSet) Add(g *Grid) error {
	if g == nil {
		return core.NewValidationError("parameter grid set", "grid must not be nil")
	}
	if _, ok := s.index[g.Name()]; ok {
		return core.NewDuplicateKeyError("parameter grid", g.Name())
	}
	s.index[g.Name()] = len(s.grids)
	s.grids = append(s.grids, g)
	return nil
}

func (s *GridSet) Len() int { return len(s.grids) }

// Grids returns the grids in insertion order.
func (s *GridSet) Grids() []*Grid {
	return append([]*Grid(nil), s.grids...)
}

// Names returns the parameter names in insertion order.
func (s *GridSet) Names() []string {
	names := make([]string, len(s.grids))
	for i, g := range s.grids {
		names[i] = g.Name()
	}
	return names
}

// Get returns the grid of the named parameter.
func (s *GridSet) Get(name string) (*Grid, error) {
	i, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrParameterGridMissing, name)
	}
	return s.grids[i], nil
}

// Copy returns a shallow copy of the set. Grids are immutable and shared.
func (s *GridSet) Copy() *GridSet {
	out := &GridSet{index: make(map[string]int, len(s.index))}
	for k, v := range s.index {
		out.index[k] = v
	}
	out.grids = append(out.grids, s.grids...)
	return out
}

// WithExtraLowerAndUpperBin returns a set with every grid extended by one step at each end.
func (s *GridSet) WithExtraLowerAndUpperBin() *GridSet {
	out := s.Copy()
	for i, g := range out.grids {
		out.grids[i] = g.WithExtraLowerAndUpperBin()
	}
	return out
}

// NPermutations returns the size of the Cartesian product of all grids.
func (s *GridSet) NPermutations() int {
	if len(s.grids) == 0 {
		return 0
	}
	n := 1
	for _, g := range s.grids {
		n *= g.Len()
	}
	return n
}

// ParameterPermutationDictList enumerates the Cartesian product of all grid
// values. The first grid varies slowest, the last fastest. The order is the
// canonical key order for bulk PDF construction.
func (s *GridSet) ParameterPermutationDictList() []map[string]float64 {
	n := s.NPermutations()
	out := make([]map[string]float64, n)
	for k := 0; k < n; k++ {
		p := make(map[string]float64, len(s.grids))
		rem := k
		for i := len(s.grids) - 1; i >= 0; i-- {
			g := s.grids[i]
			p[g.Name()] = g.values[rem%g.Len()]
			rem /= g.Len()
		}
		out[k] = p
	}
	return out
}
