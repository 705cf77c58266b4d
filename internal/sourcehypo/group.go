// Package sourcehypo groups sources that share a flux model and detector
// signal yield builders into source hypothesis groups.
package sourcehypo

import (
	"fmt"

	"gollh/domain/core"
	"gollh/internal/detsigyield"
	"gollh/internal/flux"
	"gollh/internal/source"
)

// Group is a set of sources sharing one flux model. It carries either one
// detector signal yield builder for all datasets or one per dataset.
type Group struct {
	Sources   []*source.PointLike
	FluxModel flux.Model
	Builders  []detsigyield.Builder
}

// NewGroup validates the group inputs.
func NewGroup(sources []*source.PointLike, fm flux.Model, builders ...detsigyield.Builder) (*Group, error) {
	if len(sources) == 0 {
		return nil, core.NewValidationError("source hypothesis group", "at least one source is required")
	}
	if fm == nil {
		return nil, core.NewValidationError("source hypothesis group", "flux model must not be nil")
	}
	if len(builders) == 0 {
		return nil, core.NewValidationError("source hypothesis group", "at least one detector signal yield builder is required")
	}
	return &Group{Sources: sources, FluxModel: fm, Builders: builders}, nil
}

// Weights returns the source weights in source order.
func (g *Group) Weights() []float64 {
	w := make([]float64, len(g.Sources))
	for i, s := range g.Sources {
		w[i] = s.Weight
	}
	return w
}

// BuilderFor returns the builder used for the dataset at dsIdx.
func (g *Group) BuilderFor(dsIdx, nDatasets int) (detsigyield.Builder, error) {
	switch len(g.Builders) {
	case 1:
		return g.Builders[0], nil
	case nDatasets:
		return g.Builders[dsIdx], nil
	default:
		return nil, fmt.Errorf("%w: group has %d builders, expected 1 or %d", core.ErrBuilderCount, len(g.Builders), nDatasets)
	}
}

// Manager holds the source hypothesis groups in a fixed order. Sources are
// numbered globally by concatenating the groups in that order.
type Manager struct {
	groups  []*Group
	offsets []int
	n       int
}

// NewManager creates a manager over the given groups.
func NewManager(groups ...*Group) *Manager {
	m := &Manager{}
	for _, g := range groups {
		m.Add(g)
	}
	return m
}

// Add appends a group.
func (m *Manager) Add(g *Group) {
	m.offsets = append(m.offsets, m.n)
	m.groups = append(m.groups, g)
	m.n += len(g.Sources)
}

func (m *Manager) Groups() []*Group { return append([]*Group(nil), m.groups...) }
func (m *Manager) NGroups() int     { return len(m.groups) }
func (m *Manager) NSources() int    { return m.n }

// SourceRange returns the global source index range [lo, hi) of group i.
func (m *Manager) SourceRange(i int) (lo, hi int) {
	return m.offsets[i], m.offsets[i] + len(m.groups[i].Sources)
}

// Sources returns all sources in global order.
func (m *Manager) Sources() []*source.PointLike {
	out := make([]*source.PointLike, 0, m.n)
	for _, g := range m.groups {
		out = append(out, g.Sources...)
	}
	return out
}
