// Package flux provides differential neutrino flux models.
package flux

import (
	"fmt"
	"math"

	"gollh/domain/core"
)

// Model is a parameterized differential flux dN/dE.
type Model interface {
	// Evaluate returns the differential flux at energy e.
	Evaluate(e float64) float64
	// Integral returns the integral of the flux over [eLo, eHi].
	Integral(eLo, eHi float64) float64
	// InvNormedCDF maps u in [0, 1] to the energy below which a fraction u of
	// the flux in [eMin, eMax] lies.
	InvNormedCDF(u, eMin, eMax float64) float64
	ParamNames() []string
	Params() map[string]float64
	// WithParams returns a copy with the given parameters replaced.
	WithParams(params map[string]float64) (Model, error)
}

// PowerLaw is Phi0 * (E/E0)^-Gamma.
type PowerLaw struct {
	Phi0  float64
	E0    float64
	Gamma float64
}

// NewPowerLaw validates the normalization energy.
func NewPowerLaw(phi0, e0, gamma float64) (*PowerLaw, error) {
	if !(e0 > 0) {
		return nil, core.NewValidationError("power law E0", fmt.Sprintf("must be positive, got %g", e0))
	}
	return &PowerLaw{Phi0: phi0, E0: e0, Gamma: gamma}, nil
}

func (p *PowerLaw) Evaluate(e float64) float64 {
	return p.Phi0 * math.Pow(e/p.E0, -p.Gamma)
}

func (p *PowerLaw) Integral(eLo, eHi float64) float64 {
	if p.isLog() {
		return p.Phi0 * p.E0 * math.Log(eHi/eLo)
	}
	k := 1 - p.Gamma
	return p.Phi0 * p.E0 / k * (math.Pow(eHi/p.E0, k) - math.Pow(eLo/p.E0, k))
}

func (p *PowerLaw) InvNormedCDF(u, eMin, eMax float64) float64 {
	if p.isLog() {
		return eMin * math.Pow(eMax/eMin, u)
	}
	k := 1 - p.Gamma
	lo := math.Pow(eMin, k)
	hi := math.Pow(eMax, k)
	return math.Pow(u*(hi-lo)+lo, 1/k)
}

func (p *PowerLaw) isLog() bool {
	return math.Abs(p.Gamma-1) < 1e-12
}

func (p *PowerLaw) ParamNames() []string {
	return []string{"gamma"}
}

func (p *PowerLaw) Params() map[string]float64 {
	return map[string]float64{"gamma": p.Gamma}
}

// WithParams accepts "gamma" and rejects unknown names.
func (p *PowerLaw) WithParams(params map[string]float64) (Model, error) {
	cp := *p
	for name, v := range params {
		switch name {
		case "gamma":
			cp.Gamma = v
		default:
			return nil, fmt.Errorf("%w: power law has no parameter %q", core.ErrParameterNotFound, name)
		}
	}
	return &cp, nil
}

func (p *PowerLaw) String() string {
	return fmt.Sprintf("%g * (E / %g GeV)^-%g", p.Phi0, p.E0, p.Gamma)
}
