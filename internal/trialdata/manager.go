package trialdata

import (
	"fmt"

	"gollh/domain/core"
	"gollh/internal"
	"gollh/internal/events"
	"gollh/internal/sourcehypo"
)

// Manager owns the events of the current trial and the derived data fields.
// StateID increases every time a set of fields is recomputed so downstream
// caches can detect stale values.
type Manager struct {
	indexField string

	sourceFields   []*DataField
	staticFields   []*DataField
	fitParamFields []*DataField
	byName         map[string]*DataField

	events  *events.Table
	stateID int64
	log     *internal.Logger
}

// NewManager creates a manager. A non-empty indexField makes each new trial's
// events stably sorted by that field.
func NewManager(indexField string) *Manager {
	return &Manager{
		indexField: indexField,
		byName:     make(map[string]*DataField),
		stateID:    -1,
		log:        internal.DefaultLogger.WithComponent("TrialDataManager"),
	}
}

// StateID identifies the current state of the trial data.
func (m *Manager) StateID() int64 { return m.stateID }

func (m *Manager) eventsStamp() events.Stamp {
	if m.events == nil {
		return events.Stamp{}
	}
	return m.events.Stamp()
}

// Events returns the current trial events.
func (m *Manager) Events() *events.Table { return m.events }

// NEvents returns the number of current trial events.
func (m *Manager) NEvents() int {
	if m.events == nil {
		return 0
	}
	return m.events.Len()
}

// AddDataField registers a derived field. The dependency class is fixed at
// registration and names must be unique across all classes.
func (m *Manager) AddDataField(name string, dep Dependency, fn FieldFunc) error {
	if _, ok := m.byName[name]; ok {
		return core.NewDuplicateKeyError("data field", name)
	}
	f, err := newDataField(name, dep, fn)
	if err != nil {
		return err
	}
	switch dep.kind {
	case SourceOnlyKind:
		m.sourceFields = append(m.sourceFields, f)
	case StaticKind:
		m.staticFields = append(m.staticFields, f)
	case FitParamKind:
		m.fitParamFields = append(m.fitParamFields, f)
	default:
		return core.NewValidationError("data field "+name, fmt.Sprintf("unknown dependency %s", dep.kind))
	}
	m.byName[name] = f
	return nil
}

// InitializeForNewTrial replaces the trial events, recomputes the
// source-only and static fields for them, drops the fit parameter dependent
// values of the previous trial and advances the state.
func (m *Manager) InitializeForNewTrial(shgMgr *sourcehypo.Manager, tdEvents *events.Table) error {
	if tdEvents == nil {
		return core.NewValidationError("trial events", "must not be nil")
	}
	if m.indexField != "" {
		if err := tdEvents.SortByField(m.indexField); err != nil {
			return fmt.Errorf("sorting trial events by %q: %w", m.indexField, err)
		}
	}
	m.events = tdEvents
	for _, f := range m.fitParamFields {
		f.reset()
	}
	if err := m.CalculateSourceDataFields(shgMgr); err != nil {
		return err
	}
	if err := m.CalculateStaticDataFields(shgMgr); err != nil {
		return err
	}
	m.stateID++
	m.log.Trace("initialized trial with %d events, state id %d", tdEvents.Len(), m.stateID)
	return nil
}

// ChangeSourceHypoGroupManager recomputes the source-only fields for a new source topology.
func (m *Manager) ChangeSourceHypoGroupManager(shgMgr *sourcehypo.Manager) error {
	return m.CalculateSourceDataFields(shgMgr)
}

// CalculateSourceDataFields recomputes every source-only field.
func (m *Manager) CalculateSourceDataFields(shgMgr *sourcehypo.Manager) error {
	if len(m.sourceFields) == 0 {
		return nil
	}
	for _, f := range m.sourceFields {
		if err := f.compute(m, shgMgr, nil); err != nil {
			return err
		}
	}
	m.stateID++
	return nil
}

// CalculateStaticDataFields recomputes every static field.
func (m *Manager) CalculateStaticDataFields(shgMgr *sourcehypo.Manager) error {
	if len(m.staticFields) == 0 {
		return nil
	}
	for _, f := range m.staticFields {
		if err := f.compute(m, shgMgr, nil); err != nil {
			return err
		}
	}
	m.stateID++
	return nil
}

// CalculateFitParamDataFields recomputes the fit parameter dependent fields
// whose parameters changed. The state advances whenever such fields exist.
func (m *Manager) CalculateFitParamDataFields(shgMgr *sourcehypo.Manager, fitParams map[string]float64) error {
	if len(m.fitParamFields) == 0 {
		return nil
	}
	for _, f := range m.fitParamFields {
		if err := f.computeForFitParams(m, shgMgr, fitParams); err != nil {
			return err
		}
	}
	m.stateID++
	return nil
}

// GetData resolves a name against the raw event columns, then the
// source-only, static and fit parameter dependent fields. Values computed
// from other events than the current ones are reported as not calculated.
func (m *Manager) GetData(name string) (events.Column, error) {
	if m.events != nil && m.events.Has(name) {
		return m.events.GetData(name)
	}
	for _, fields := range [][]*DataField{m.sourceFields, m.staticFields, m.fitParamFields} {
		for _, f := range fields {
			if f.name == name {
				if !f.current(m.eventsStamp()) {
					return nil, fmt.Errorf("%w: %q has not been calculated", core.ErrDataFieldNotFound, name)
				}
				return f.values, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", core.ErrDataFieldNotFound, name)
}

// GetFloat64 resolves a numeric field.
func (m *Manager) GetFloat64(name string) ([]float64, error) {
	col, err := m.GetData(name)
	if err != nil {
		return nil, err
	}
	return events.AsFloat64(name, col)
}
