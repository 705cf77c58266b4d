// Package trialdata manages the events of one trial and the derived data
// fields computed from them, recomputing each field only when what it
// depends on has changed.
package trialdata

import (
	"fmt"

	"gollh/domain/core"
	"gollh/internal/events"
	"gollh/internal/sourcehypo"
)

// DependencyKind is the class a data field belongs to.
type DependencyKind int

const (
	SourceOnlyKind DependencyKind = iota
	StaticKind
	FitParamKind
)

func (k DependencyKind) String() string {
	switch k {
	case SourceOnlyKind:
		return "source-only"
	case StaticKind:
		return "static"
	case FitParamKind:
		return "fit-parameter"
	default:
		return fmt.Sprintf("DependencyKind(%d)", int(k))
	}
}

// Dependency declares what a data field must be recomputed for.
type Dependency struct {
	kind      DependencyKind
	fitParams []string
}

// SourceOnly fields depend on the source hypotheses.
func SourceOnly() Dependency { return Dependency{kind: SourceOnlyKind} }

// Static fields depend only on the trial events.
func Static() Dependency { return Dependency{kind: StaticKind} }

// FitParamDependent fields depend on the named fit parameters.
func FitParamDependent(names ...string) Dependency {
	return Dependency{kind: FitParamKind, fitParams: append([]string(nil), names...)}
}

func (d Dependency) Kind() DependencyKind { return d.kind }

// FieldFunc computes the values of a data field.
type FieldFunc func(tdm *Manager, shgMgr *sourcehypo.Manager, fitParams map[string]float64) (events.Column, error)

// DataField is a named, lazily computed derived column.
type DataField struct {
	name   string
	dep    Dependency
	fn     FieldFunc
	values events.Column
	// stamp of the trial events the values were computed from
	stamp events.Stamp

	cachedFitParams map[string]float64
}

func newDataField(name string, dep Dependency, fn FieldFunc) (*DataField, error) {
	if name == "" {
		return nil, core.NewValidationError("data field", "name must not be empty")
	}
	if fn == nil {
		return nil, core.NewValidationError("data field "+name, "function must not be nil")
	}
	if dep.kind == FitParamKind && len(dep.fitParams) == 0 {
		return nil, core.NewValidationError("data field "+name, "a fit parameter dependent field must name its fit parameters")
	}
	return &DataField{name: name, dep: dep, fn: fn}, nil
}

func (f *DataField) Name() string           { return f.name }
func (f *DataField) Dependency() Dependency { return f.dep }
func (f *DataField) Values() events.Column  { return f.values }

func (f *DataField) compute(tdm *Manager, shgMgr *sourcehypo.Manager, fitParams map[string]float64) error {
	stamp := tdm.eventsStamp()
	values, err := f.fn(tdm, shgMgr, fitParams)
	if err != nil {
		return fmt.Errorf("data field %q: %w", f.name, err)
	}
	f.values = values
	f.stamp = stamp
	return nil
}

func (f *DataField) reset() {
	f.values = nil
	f.stamp = events.Stamp{}
	f.cachedFitParams = nil
}

// current reports whether the values belong to the given trial events.
func (f *DataField) current(stamp events.Stamp) bool {
	return f.values != nil && f.stamp == stamp
}

// computeForFitParams recomputes if the trial events changed or any declared
// fit parameter value differs from the values of the previous computation.
func (f *DataField) computeForFitParams(tdm *Manager, shgMgr *sourcehypo.Manager, fitParams map[string]float64) error {
	current := make(map[string]float64, len(f.dep.fitParams))
	for _, name := range f.dep.fitParams {
		v, ok := fitParams[name]
		if !ok {
			return fmt.Errorf("%w: data field %q depends on fit parameter %q", core.ErrParameterNotFound, f.name, name)
		}
		current[name] = v
	}
	if f.cachedFitParams != nil && f.current(tdm.eventsStamp()) {
		changed := false
		for name, v := range current {
			if f.cachedFitParams[name] != v {
				changed = true
				break
			}
		}
		if !changed {
			return nil
		}
	}
	if err := f.compute(tdm, shgMgr, fitParams); err != nil {
		return err
	}
	f.cachedFitParams = current
	return nil
}
