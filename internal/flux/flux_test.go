package flux

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gollh/domain/core"
)

func TestPowerLaw_IntegralMatchesNumeric(t *testing.T) {
	for _, gamma := range []float64{1, 2, 2.7} {
		p, err := NewPowerLaw(1e-18, 1e3, gamma)
		require.NoError(t, err)

		// log-space trapezoid
		const n = 20000
		lo, hi := math.Log(1e2), math.Log(1e6)
		sum := 0.0
		for i := 0; i < n; i++ {
			a := lo + (hi-lo)*float64(i)/n
			b := lo + (hi-lo)*float64(i+1)/n
			fa := p.Evaluate(math.Exp(a)) * math.Exp(a)
			fb := p.Evaluate(math.Exp(b)) * math.Exp(b)
			sum += 0.5 * (fa + fb) * (b - a)
		}
		assert.InEpsilon(t, sum, p.Integral(1e2, 1e6), 1e-5, "gamma=%g", gamma)
	}
}

func TestPowerLaw_InvNormedCDF(t *testing.T) {
	p, _ := NewPowerLaw(1, 1, 2)
	assert.InDelta(t, 10.0, p.InvNormedCDF(0, 10, 1000), 1e-9)
	assert.InDelta(t, 1000.0, p.InvNormedCDF(1, 10, 1000), 1e-6)

	e := p.InvNormedCDF(0.3, 10, 1000)
	assert.InDelta(t, 0.3, p.Integral(10, e)/p.Integral(10, 1000), 1e-9)

	flat, _ := NewPowerLaw(1, 1, 1)
	assert.InDelta(t, 100.0, flat.InvNormedCDF(0.5, 10, 1000), 1e-9)
}

func TestPowerLaw_WithParams(t *testing.T) {
	p, _ := NewPowerLaw(1, 1e3, 2)
	m, err := p.WithParams(map[string]float64{"gamma": 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, m.Params()["gamma"])
	assert.Equal(t, 2.0, p.Gamma)

	_, err = p.WithParams(map[string]float64{"beta": 1})
	assert.ErrorIs(t, err, core.ErrParameterNotFound)

	_, err = NewPowerLaw(1, 0, 2)
	assert.ErrorIs(t, err, core.ErrValidation)
}
