// Package source describes the point-like sources tested for signal.
package source

import (
	"fmt"
	"math"

	"gollh/domain/core"
)

// PointLike is a source at a fixed equatorial position. Weight is its
// relative contribution within its hypothesis group.
type PointLike struct {
	Name   string
	RA     float64
	Dec    float64
	Weight float64
}

// NewPointLike validates the position, in radians.
func NewPointLike(name string, ra, dec, weight float64) (*PointLike, error) {
	if ra < 0 || ra >= 2*math.Pi {
		return nil, core.NewValidationError("source "+name, fmt.Sprintf("ra %g outside [0, 2pi)", ra))
	}
	if dec < -math.Pi/2 || dec > math.Pi/2 {
		return nil, core.NewValidationError("source "+name, fmt.Sprintf("dec %g outside [-pi/2, pi/2]", dec))
	}
	if weight < 0 {
		return nil, core.NewValidationError("source "+name, "weight must not be negative")
	}
	return &PointLike{Name: name, RA: ra, Dec: dec, Weight: weight}, nil
}

// Array is the fixed-schema columnar form of a list of sources consumed by
// detector signal yield evaluators.
type Array struct {
	RA     []float64
	Dec    []float64
	SinDec []float64
	Weight []float64
}

// ToArray converts sources to their columnar form.
func ToArray(sources []*PointLike) Array {
	a := Array{
		RA:     make([]float64, len(sources)),
		Dec:    make([]float64, len(sources)),
		SinDec: make([]float64, len(sources)),
		Weight: make([]float64, len(sources)),
	}
	for i, s := range sources {
		a.RA[i] = s.RA
		a.Dec[i] = s.Dec
		a.SinDec[i] = math.Sin(s.Dec)
		a.Weight[i] = s.Weight
	}
	return a
}

func (a Array) Len() int { return len(a.RA) }

// AngularSeparation returns the great-circle distance between two positions.
func AngularSeparation(ra1, dec1, ra2, dec2 float64) float64 {
	sinDDec := math.Sin((dec2 - dec1) / 2)
	sinDRA := math.Sin((ra2 - ra1) / 2)
	h := sinDDec*sinDDec + math.Cos(dec1)*math.Cos(dec2)*sinDRA*sinDRA
	return 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}

// PsiToDecAndRA places points at angular distance psi from the source along
// the given position angles.
func PsiToDecAndRA(srcRA, srcDec float64, psi, phi []float64) (ra, dec []float64) {
	ra = make([]float64, len(psi))
	dec = make([]float64, len(psi))
	sd, cd := math.Sincos(srcDec)
	for i := range psi {
		sp, cp := math.Sincos(psi[i])
		sinDec := sd*cp + cd*sp*math.Cos(phi[i])
		dec[i] = math.Asin(math.Max(-1, math.Min(1, sinDec)))
		dra := math.Atan2(math.Sin(phi[i])*sp*cd, cp-sd*sinDec)
		ra[i] = math.Mod(srcRA+dra+2*math.Pi, 2*math.Pi)
	}
	return ra, dec
}
