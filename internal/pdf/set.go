package pdf

import (
	"fmt"

	"gollh/domain/core"
	"gollh/internal/events"
	"gollh/internal/parameters"
)

// Set is an exact-match registry of PDFs of one type keyed by the hash of
// their grid parameter values. It never creates or approximates entries.
type Set[T PDF] struct {
	role     Role
	grids    *parameters.GridSet
	registry map[core.ParamsHash]T
	keys     []core.ParamsHash
}

// NewSet creates an empty set over the given grids.
func NewSet[T PDF](role Role, grids *parameters.GridSet) *Set[T] {
	return &Set[T]{
		role:     role,
		grids:    grids,
		registry: make(map[core.ParamsHash]T),
	}
}

func (s *Set[T]) Role() Role                   { return s.role }
func (s *Set[T]) GridSet() *parameters.GridSet { return s.grids }
func (s *Set[T]) Len() int                     { return len(s.keys) }

// Keys returns the registered hashes in insertion order.
func (s *Set[T]) Keys() []core.ParamsHash {
	return append([]core.ParamsHash(nil), s.keys...)
}

// GridFitParamsList is the canonical enumeration of grid points.
func (s *Set[T]) GridFitParamsList() []map[string]float64 {
	return s.grids.ParameterPermutationDictList()
}

// AddPDF registers p under the hash of params. An existing key is a
// consistency error.
func (s *Set[T]) AddPDF(p T, params map[string]float64) error {
	h := core.ComputeParamsHash(params)
	if _, ok := s.registry[h]; ok {
		return core.NewDuplicateKeyError("pdf for parameters", fmt.Sprint(params))
	}
	s.registry[h] = p
	s.keys = append(s.keys, h)
	return nil
}

// GetPDF returns the PDF registered for exactly these parameter values.
func (s *Set[T]) GetPDF(params map[string]float64) (T, error) {
	p, err := s.GetPDFByHash(core.ComputeParamsHash(params))
	if err != nil {
		return p, fmt.Errorf("%w for parameters %v", err, params)
	}
	return p, nil
}

// GetPDFByHash returns the PDF registered under h.
func (s *Set[T]) GetPDFByHash(h core.ParamsHash) (T, error) {
	p, ok := s.registry[h]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: key %s", core.ErrPDFNotFound, h)
	}
	return p, nil
}

// AssertIsValidForExpData checks every registered PDF against the data.
func (s *Set[T]) AssertIsValidForExpData(data *events.Table) error {
	for _, h := range s.keys {
		if err := s.registry[h].AssertIsValidForExpData(data); err != nil {
			return fmt.Errorf("pdf %s: %w", h, err)
		}
	}
	return nil
}
