// Package pdf defines the probability density capability evaluated per event
// and the keyed registries of PDFs built over parameter grids.
package pdf

import (
	"fmt"

	"gollh/internal/events"
)

// DataSource resolves event columns by name. Both *events.Table and the
// trial data manager satisfy it.
type DataSource interface {
	GetData(name string) (events.Column, error)
}

// PDF evaluates a probability density for every event of a data source.
// Gradients are keyed by parameter name and may be nil.
type PDF interface {
	GetProb(data DataSource, params map[string]float64) (prob []float64, grads map[string][]float64, err error)
	// AssertIsValidForExpData fails unless every event of data has a defined probability.
	AssertIsValidForExpData(data *events.Table) error
}

// Role tags a PDF as describing signal or background.
type Role int

const (
	RoleSignal Role = iota
	RoleBackground
)

func (r Role) String() string {
	switch r {
	case RoleSignal:
		return "signal"
	case RoleBackground:
		return "background"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Tagged attaches a role to a PDF.
type Tagged struct {
	PDF
	role Role
}

func Signal(p PDF) Tagged     { return Tagged{PDF: p, role: RoleSignal} }
func Background(p PDF) Tagged { return Tagged{PDF: p, role: RoleBackground} }

func (t Tagged) Role() Role { return t.role }

func float64Field(data DataSource, name string) ([]float64, error) {
	col, err := data.GetData(name)
	if err != nil {
		return nil, err
	}
	return events.AsFloat64(name, col)
}
