// Package detsigyield computes the expected number of detected signal events
// per source for a dataset, flux model and livetime.
package detsigyield

import (
	"fmt"

	"gollh/domain/core"
	"gollh/domain/dataset"
	"gollh/internal/flux"
	"gollh/internal/livetime"
	"gollh/internal/parameters"
	"gollh/internal/source"
)

// DetSigYield maps source positions and source parameters to the mean
// detected signal event count per source. Gradients are keyed by the global
// fit parameter index; parameters with a negative index get no entry.
type DetSigYield interface {
	ParamNames() []string
	Dataset() *dataset.Dataset
	FluxModel() flux.Model
	Livetime() livetime.Provider
	SourcesToArray(sources []*source.PointLike) (source.Array, error)
	Evaluate(srcs source.Array, params *parameters.SrcParamsArray) (yields []float64, grads map[int][]float64, err error)
}

// Builder constructs a DetSigYield for one dataset and flux model.
type Builder interface {
	ConstructDetSigYield(ds *dataset.Dataset, data *dataset.Data, fm flux.Model, lt livetime.Provider) (DetSigYield, error)
}

// Base holds the construction inputs shared by all implementations and
// validates call arguments.
type Base struct {
	paramNames []string
	dataset    *dataset.Dataset
	fluxModel  flux.Model
	livetime   livetime.Provider
}

// NewBase validates the construction inputs.
func NewBase(paramNames []string, ds *dataset.Dataset, fm flux.Model, lt livetime.Provider) (Base, error) {
	if err := AssertConstructArgs(ds, fm, lt); err != nil {
		return Base{}, err
	}
	seen := make(map[string]bool, len(paramNames))
	for _, n := range paramNames {
		if n == "" || seen[n] {
			return Base{}, core.NewValidationError("detector signal yield", fmt.Sprintf("parameter names must be unique and non-empty: %v", paramNames))
		}
		seen[n] = true
	}
	return Base{
		paramNames: append([]string(nil), paramNames...),
		dataset:    ds,
		fluxModel:  fm,
		livetime:   lt,
	}, nil
}

// AssertConstructArgs fails fast on missing or invalid builder inputs.
func AssertConstructArgs(ds *dataset.Dataset, fm flux.Model, lt livetime.Provider) error {
	if ds == nil {
		return core.NewValidationError("dataset", "must not be nil")
	}
	if fm == nil {
		return core.NewValidationError("flux model", "must not be nil")
	}
	if lt == nil {
		return core.NewValidationError("livetime", "must be a number of days or a Livetime")
	}
	if !(lt.LivetimeDays() > 0) {
		return core.NewValidationError("livetime", fmt.Sprintf("must be positive, got %g days", lt.LivetimeDays()))
	}
	return nil
}

func (b Base) ParamNames() []string        { return append([]string(nil), b.paramNames...) }
func (b Base) Dataset() *dataset.Dataset   { return b.dataset }
func (b Base) FluxModel() flux.Model       { return b.fluxModel }
func (b Base) Livetime() livetime.Provider { return b.livetime }

// LivetimeSeconds returns the livetime converted to seconds.
func (b Base) LivetimeSeconds() float64 {
	return b.livetime.LivetimeDays() * core.SecondsPerDay
}

// SourcesToArray converts the sources to the columnar form.
func (b Base) SourcesToArray(sources []*source.PointLike) (source.Array, error) {
	for i, s := range sources {
		if s == nil {
			return source.Array{}, core.NewValidationError("sources", fmt.Sprintf("source %d is nil", i))
		}
	}
	return source.ToArray(sources), nil
}

// AssertCallArgs checks that the parameter array covers every source and
// carries every declared parameter.
func (b Base) AssertCallArgs(srcs source.Array, params *parameters.SrcParamsArray) error {
	if params == nil {
		return core.NewValidationError("source parameters", "must not be nil")
	}
	if params.Len() != srcs.Len() {
		return fmt.Errorf("%w: %d sources vs %d source parameter rows", core.ErrShapeMismatch, srcs.Len(), params.Len())
	}
	for _, n := range b.paramNames {
		if _, err := params.Values(n); err != nil {
			return err
		}
		if _, err := params.GlobalIndices(n); err != nil {
			return err
		}
	}
	return nil
}

// NullBuilder is a placeholder that fails whenever it is used.
type NullBuilder struct{}

func (NullBuilder) ConstructDetSigYield(*dataset.Dataset, *dataset.Data, flux.Model, livetime.Provider) (DetSigYield, error) {
	return nil, fmt.Errorf("%w: the null detector signal yield builder cannot construct a detector signal yield", core.ErrNotImplemented)
}
