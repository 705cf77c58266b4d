package siggen

import (
	"math"

	"gollh/domain/core"
	"gollh/ports"
)

// Smeared holds the reconstructed quantities of a batch of signal events.
type Smeared struct {
	LogEnergy []float64
	Psi       []float64
	AngErr    []float64
	Valid     []bool
}

// EventSmearer maps true energies onto reconstructed observables.
type EventSmearer interface {
	Smear(rss ports.RandomState, trueEnergy []float64) (Smeared, error)
}

// GaussianSmearer smears log10 energy with a normal distribution and the
// direction with a two-dimensional normal of width AngularSigma. Events
// outside [LogEnergyMin, LogEnergyMax] or scattered beyond π are invalid.
type GaussianSmearer struct {
	LogEnergySigma float64
	AngularSigma   float64
	LogEnergyMin   float64
	LogEnergyMax   float64
}

func NewGaussianSmearer(logESigma, angSigma, logEMin, logEMax float64) (*GaussianSmearer, error) {
	if logESigma < 0 || !(angSigma > 0) {
		return nil, core.NewValidationError("gaussian smearer", "widths must be non-negative and the angular width positive")
	}
	if !(logEMax > logEMin) {
		return nil, core.NewValidationError("gaussian smearer", "energy range is empty")
	}
	return &GaussianSmearer{
		LogEnergySigma: logESigma,
		AngularSigma:   angSigma,
		LogEnergyMin:   logEMin,
		LogEnergyMax:   logEMax,
	}, nil
}

func (s *GaussianSmearer) Smear(rss ports.RandomState, trueEnergy []float64) (Smeared, error) {
	n := len(trueEnergy)
	out := Smeared{
		LogEnergy: make([]float64, n),
		Psi:       make([]float64, n),
		AngErr:    make([]float64, n),
		Valid:     make([]bool, n),
	}
	dLogE := rss.Normal(0, math.Max(s.LogEnergySigma, 0), n)
	u := rss.Uniform(0, 1, n)
	for i, e := range trueEnergy {
		out.LogEnergy[i] = math.Log10(e) + dLogE[i]
		// Rayleigh distributed opening angle
		out.Psi[i] = s.AngularSigma * math.Sqrt(-2*math.Log(1-u[i]))
		out.AngErr[i] = s.AngularSigma
		out.Valid[i] = e > 0 &&
			out.LogEnergy[i] >= s.LogEnergyMin && out.LogEnergy[i] <= s.LogEnergyMax &&
			out.Psi[i] <= math.Pi
	}
	return out, nil
}
