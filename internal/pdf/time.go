package pdf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"gollh/domain/core"
	"gollh/internal/events"
	"gollh/internal/livetime"
)

// TimeProfile is the unnormalized shape of a signal flare in MJD.
type TimeProfile interface {
	Value(mjd float64) float64
	// Integral integrates the profile over [t1, t2].
	Integral(t1, t2 float64) float64
}

// BoxProfile is constant between Start and End and zero elsewhere.
type BoxProfile struct {
	Start, End float64
}

func (b BoxProfile) Value(mjd float64) float64 {
	if mjd >= b.Start && mjd <= b.End {
		return 1
	}
	return 0
}

func (b BoxProfile) Integral(t1, t2 float64) float64 {
	return math.Max(0, math.Min(t2, b.End)-math.Max(t1, b.Start))
}

// GaussianProfile is a Gaussian flare centered on Mu.
type GaussianProfile struct {
	Mu, Sigma float64
}

func (g GaussianProfile) normal() distuv.Normal {
	return distuv.Normal{Mu: g.Mu, Sigma: g.Sigma}
}

func (g GaussianProfile) Value(mjd float64) float64 {
	return g.normal().Prob(mjd)
}

func (g GaussianProfile) Integral(t1, t2 float64) float64 {
	n := g.normal()
	return n.CDF(t2) - n.CDF(t1)
}

// TimePDF is a signal time density normalized over the detector uptime.
// Events outside the uptime have zero probability.
type TimePDF struct {
	TimeField string

	lt      *livetime.Livetime
	profile TimeProfile
	norm    float64
}

// NewTimePDF normalizes profile over the uptime intervals of lt. A profile
// with no weight inside the uptime fails with ErrDegenerate.
func NewTimePDF(lt *livetime.Livetime, profile TimeProfile) (*TimePDF, error) {
	if lt == nil {
		return nil, core.NewValidationError("time pdf", "livetime must not be nil")
	}
	if profile == nil {
		return nil, core.NewValidationError("time pdf", "profile must not be nil")
	}
	norm := 0.0
	for i := 0; i < lt.NIntervals(); i++ {
		norm += profile.Integral(lt.Interval(i))
	}
	if !(norm > 0) {
		return nil, core.NewDegenerateError("time pdf", "the flare profile does not overlap the detector uptime")
	}
	return &TimePDF{TimeField: "time", lt: lt, profile: profile, norm: norm}, nil
}

// NewBoxTimePDF creates a box shaped flare between start and end.
func NewBoxTimePDF(lt *livetime.Livetime, start, end float64) (*TimePDF, error) {
	if !(end > start) {
		return nil, core.NewValidationError("box time pdf", fmt.Sprintf("end %g must be after start %g", end, start))
	}
	return NewTimePDF(lt, BoxProfile{Start: start, End: end})
}

// NewGaussianTimePDF creates a Gaussian flare.
func NewGaussianTimePDF(lt *livetime.Livetime, mu, sigma float64) (*TimePDF, error) {
	if !(sigma > 0) {
		return nil, core.NewValidationError("gaussian time pdf", fmt.Sprintf("sigma %g must be positive", sigma))
	}
	return NewTimePDF(lt, GaussianProfile{Mu: mu, Sigma: sigma})
}

// Norm is the profile integral over the uptime.
func (p *TimePDF) Norm() float64 { return p.norm }

func (p *TimePDF) GetProb(data DataSource, _ map[string]float64) ([]float64, map[string][]float64, error) {
	t, err := float64Field(data, p.TimeField)
	if err != nil {
		return nil, nil, err
	}
	prob := make([]float64, len(t))
	for i, mjd := range t {
		if p.lt.IsOn(mjd) {
			prob[i] = p.profile.Value(mjd) / p.norm
		}
	}
	return prob, nil, nil
}

// AssertIsValidForExpData requires every event time to lie inside the uptime.
func (p *TimePDF) AssertIsValidForExpData(data *events.Table) error {
	t, err := data.Float64(p.TimeField)
	if err != nil {
		return err
	}
	for i, mjd := range t {
		if !p.lt.IsOn(mjd) {
			return core.NewValidationError("event "+fmt.Sprint(i), fmt.Sprintf("%s=%g is outside the detector uptime", p.TimeField, mjd))
		}
	}
	return nil
}
