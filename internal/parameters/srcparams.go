package parameters

import (
	"fmt"

	"gollh/domain/core"
)

// NoGlobalIndex marks a source parameter that is not a floating global parameter.
const NoGlobalIndex = -1

// SrcParamsArray holds, per source, the local value of every source
// parameter and the index of the global fit parameter it maps to.
// A negative global index means the value is fixed and has no gradient.
type SrcParamsArray struct {
	n         int
	names     []string
	values    map[string][]float64
	globalIdx map[string][]int
}

// NewSrcParamsArray creates an array for n sources.
func NewSrcParamsArray(n int) *SrcParamsArray {
	return &SrcParamsArray{
		n:         n,
		values:    make(map[string][]float64),
		globalIdx: make(map[string][]int),
	}
}

// Set stores the values and global indices of one parameter for all sources.
func (a *SrcParamsArray) Set(name string, values []float64, gpidx []int) error {
	if len(values) != a.n || len(gpidx) != a.n {
		return fmt.Errorf("%w: parameter %q needs %d values and indices, got %d and %d",
			core.ErrShapeMismatch, name, a.n, len(values), len(gpidx))
	}
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = append([]float64(nil), values...)
	a.globalIdx[name] = append([]int(nil), gpidx...)
	return nil
}

// SetFixed stores a fixed value for all sources.
func (a *SrcParamsArray) SetFixed(name string, value float64) error {
	values := make([]float64, a.n)
	gpidx := make([]int, a.n)
	for i := range values {
		values[i] = value
		gpidx[i] = NoGlobalIndex
	}
	return a.Set(name, values, gpidx)
}

// Len returns the number of sources.
func (a *SrcParamsArray) Len() int { return a.n }

// Names returns the parameter names in insertion order.
func (a *SrcParamsArray) Names() []string { return append([]string(nil), a.names...) }

// Values returns the per-source values of a parameter.
func (a *SrcParamsArray) Values(name string) ([]float64, error) {
	v, ok := a.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: source parameter %q", core.ErrParameterNotFound, name)
	}
	return v, nil
}

// GlobalIndices returns the per-source global parameter indices of a parameter.
func (a *SrcParamsArray) GlobalIndices(name string) ([]int, error) {
	v, ok := a.globalIdx[name]
	if !ok {
		return nil, fmt.Errorf("%w: source parameter %q", core.ErrParameterNotFound, name)
	}
	return v, nil
}

// Slice returns the sub-array of sources [lo, hi).
func (a *SrcParamsArray) Slice(lo, hi int) (*SrcParamsArray, error) {
	if lo < 0 || hi > a.n || lo > hi {
		return nil, fmt.Errorf("%w: slice [%d, %d) of %d sources", core.ErrShapeMismatch, lo, hi, a.n)
	}
	out := NewSrcParamsArray(hi - lo)
	for _, name := range a.names {
		out.names = append(out.names, name)
		out.values[name] = a.values[name][lo:hi]
		out.globalIdx[name] = a.globalIdx[name][lo:hi]
	}
	return out, nil
}
