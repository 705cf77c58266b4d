package pdf

import (
	"fmt"
	"math"

	"gollh/domain/core"
	"gollh/internal/events"
)

// GaussianSpatialPDF is the two-dimensional Gaussian point-spread density
// around a source, evaluated from the angular distance field "psi" and the
// per-event angular uncertainty "ang_err".
type GaussianSpatialPDF struct {
	PsiField   string
	SigmaField string
	SigmaFloor float64
}

// NewGaussianSpatialPDF uses the conventional field names.
func NewGaussianSpatialPDF() *GaussianSpatialPDF {
	return &GaussianSpatialPDF{PsiField: "psi", SigmaField: "ang_err", SigmaFloor: 1e-6}
}

func (p *GaussianSpatialPDF) GetProb(data DataSource, _ map[string]float64) ([]float64, map[string][]float64, error) {
	psi, err := float64Field(data, p.PsiField)
	if err != nil {
		return nil, nil, err
	}
	sigma, err := float64Field(data, p.SigmaField)
	if err != nil {
		return nil, nil, err
	}
	if len(psi) != len(sigma) {
		return nil, nil, fmt.Errorf("%w: %d psi values vs %d sigmas", core.ErrShapeMismatch, len(psi), len(sigma))
	}
	prob := make([]float64, len(psi))
	for i := range psi {
		s2 := math.Max(sigma[i], p.SigmaFloor)
		s2 *= s2
		prob[i] = math.Exp(-psi[i]*psi[i]/(2*s2)) / (2 * math.Pi * s2)
	}
	return prob, nil, nil
}

// AssertIsValidForExpData requires a positive angular uncertainty for every event.
func (p *GaussianSpatialPDF) AssertIsValidForExpData(data *events.Table) error {
	sigma, err := data.Float64(p.SigmaField)
	if err != nil {
		return err
	}
	for i, s := range sigma {
		if !(s > 0) {
			return core.NewValidationError("event "+fmt.Sprint(i), fmt.Sprintf("%s=%g must be positive", p.SigmaField, s))
		}
	}
	return nil
}
