// Package binning provides bin-edge and bin-center utilities.
package binning

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"gollh/domain/core"
)

// Definition is a named one-dimensional binning given by its edges.
type Definition struct {
	Name  string
	Edges []float64
}

// NewDefinition validates that edges are strictly increasing with at least one bin.
func NewDefinition(name string, edges []float64) (*Definition, error) {
	if len(edges) < 2 {
		return nil, core.NewValidationError("binning "+name, "at least two edges are required")
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, core.NewValidationError("binning "+name, fmt.Sprintf("edges not strictly increasing at index %d", i))
		}
	}
	return &Definition{Name: name, Edges: append([]float64(nil), edges...)}, nil
}

// NewLinearDefinition creates n equally wide bins between lower and upper.
func NewLinearDefinition(name string, lower, upper float64, n int) (*Definition, error) {
	if n < 1 || !(upper > lower) {
		return nil, core.NewValidationError("binning "+name, "need n >= 1 and upper > lower")
	}
	edges := make([]float64, n+1)
	floats.Span(edges, lower, upper)
	return NewDefinition(name, edges)
}

func (d *Definition) NBins() int         { return len(d.Edges) - 1 }
func (d *Definition) LowerEdge() float64 { return d.Edges[0] }
func (d *Definition) UpperEdge() float64 { return d.Edges[len(d.Edges)-1] }

// BinCenters returns the centers of the bins.
func (d *Definition) BinCenters() []float64 {
	return BinCentersFromEdges(d.Edges)
}

// BinWidths returns the widths of the bins.
func (d *Definition) BinWidths() []float64 {
	w := make([]float64, d.NBins())
	for i := range w {
		w[i] = d.Edges[i+1] - d.Edges[i]
	}
	return w
}

// Digitize returns the bin index of v, or -1 when v is outside [lower, upper].
// The upper edge belongs to the last bin.
func (d *Definition) Digitize(v float64) int {
	if v < d.LowerEdge() || v > d.UpperEdge() {
		return -1
	}
	idx := sort.SearchFloat64s(d.Edges, v)
	if idx < len(d.Edges) && d.Edges[idx] == v {
		idx++
	}
	idx--
	if idx >= d.NBins() {
		idx = d.NBins() - 1
	}
	return idx
}

// BinCentersFromEdges returns the midpoints between consecutive edges.
func BinCentersFromEdges(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	centers := make([]float64, len(edges)-1)
	for i := range centers {
		centers[i] = 0.5 * (edges[i] + edges[i+1])
	}
	return centers
}

// BinIndicesFromLowerAndUpperEdges finds for each value the bin i with
// lower[i] <= v < upper[i]. A value outside every bin is an error.
func BinIndicesFromLowerAndUpperEdges(lower, upper, values []float64) ([]int, error) {
	if len(lower) != len(upper) {
		return nil, fmt.Errorf("%w: %d lower edges vs %d upper edges", core.ErrShapeMismatch, len(lower), len(upper))
	}
	idxs := make([]int, len(values))
	for i, v := range values {
		idxs[i] = -1
		for j := range lower {
			if v >= lower[j] && v < upper[j] {
				idxs[i] = j
				break
			}
		}
		if idxs[i] < 0 {
			return nil, core.NewValidationError("value", fmt.Sprintf("%g is not covered by any bin", v))
		}
	}
	return idxs, nil
}
