package pdf

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"gollh/domain/core"
	"gollh/internal/binning"
	"gollh/internal/events"
)

// HistogramPDF is a binned density of one event field. The density
// integrates to norm over the binning range.
type HistogramPDF struct {
	field   string
	binning *binning.Definition
	density []float64
}

// NewHistogramPDF histograms the weighted values and normalizes the result so
// that it integrates to norm. A histogram with zero total weight is a
// degenerate PDF and an error.
func NewHistogramPDF(field string, b *binning.Definition, values, weights []float64, norm float64) (*HistogramPDF, error) {
	if len(values) != len(weights) {
		return nil, fmt.Errorf("%w: %d values vs %d weights", core.ErrShapeMismatch, len(values), len(weights))
	}
	h := make([]float64, b.NBins())
	for i, v := range values {
		if idx := b.Digitize(v); idx >= 0 {
			h[idx] += weights[i]
		}
	}
	total := floats.Sum(h)
	if !(total > 0) {
		return nil, core.NewDegenerateError("histogram pdf of "+field, "total weight is not positive")
	}
	widths := b.BinWidths()
	for i := range h {
		h[i] = h[i] / total / widths[i] * norm
	}
	return &HistogramPDF{field: field, binning: b, density: h}, nil
}

func (p *HistogramPDF) Field() string { return p.field }

// Density returns a copy of the per-bin density.
func (p *HistogramPDF) Density() []float64 { return append([]float64(nil), p.density...) }

// GetProb looks up the bin density of every event. Events outside the
// binning get probability zero.
func (p *HistogramPDF) GetProb(data DataSource, _ map[string]float64) ([]float64, map[string][]float64, error) {
	values, err := float64Field(data, p.field)
	if err != nil {
		return nil, nil, err
	}
	prob := make([]float64, len(values))
	for i, v := range values {
		if idx := p.binning.Digitize(v); idx >= 0 {
			prob[i] = p.density[idx]
		}
	}
	return prob, nil, nil
}

// AssertIsValidForExpData fails when any event falls outside the binning.
func (p *HistogramPDF) AssertIsValidForExpData(data *events.Table) error {
	values, err := data.Float64(p.field)
	if err != nil {
		return err
	}
	for i, v := range values {
		if p.binning.Digitize(v) < 0 {
			return core.NewValidationError("event "+fmt.Sprint(i),
				fmt.Sprintf("%s=%g outside pdf range [%g, %g]", p.field, v, p.binning.LowerEdge(), p.binning.UpperEdge()))
		}
	}
	return nil
}
