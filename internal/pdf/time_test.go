package pdf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gollh/domain/core"
	"gollh/internal/events"
	"gollh/internal/livetime"
)

func twoRuns(t *testing.T) *livetime.Livetime {
	t.Helper()
	lt, err := livetime.New([]float64{20, 0}, []float64{30, 10})
	require.NoError(t, err)
	return lt
}

func timeEvents(t *testing.T, mjd ...float64) *events.Table {
	t.Helper()
	tbl, err := events.FromColumns(map[string]events.Column{"time": events.Float64Column(mjd)})
	require.NoError(t, err)
	return tbl
}

func TestBoxTimePDF_NormalizedOverUptime(t *testing.T) {
	p, err := NewBoxTimePDF(twoRuns(t), 5, 25)
	require.NoError(t, err)
	assert.InDelta(t, 10, p.Norm(), 1e-12)

	prob, grads, err := p.GetProb(timeEvents(t, 7, 15, 22, 27), nil)
	require.NoError(t, err)
	assert.Nil(t, grads)
	assert.InDeltaSlice(t, []float64{0.1, 0, 0.1, 0}, prob, 1e-12)

	assert.NoError(t, p.AssertIsValidForExpData(timeEvents(t, 1, 29)))
	assert.True(t, core.IsValidationError(p.AssertIsValidForExpData(timeEvents(t, 15))))
}

func TestGaussianTimePDF_IntegratesToOne(t *testing.T) {
	lt := twoRuns(t)
	p, err := NewGaussianTimePDF(lt, 10, 4)
	require.NoError(t, err)

	const n = 30000
	mjd := make([]float64, n)
	for i := range mjd {
		mjd[i] = (float64(i) + 0.5) * 30 / n
	}
	prob, _, err := p.GetProb(timeEvents(t, mjd...), nil)
	require.NoError(t, err)
	sum := 0.0
	for _, v := range prob {
		sum += v * 30 / n
	}
	assert.InDelta(t, 1, sum, 1e-6)

	// The peak sits in the gap between the runs and gets no probability.
	prob, _, err = p.GetProb(timeEvents(t, 10, 9.99), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, prob[0])
	assert.InDelta(t, math.Exp(-0.0001/32)/(4*math.Sqrt(2*math.Pi))/p.Norm(), prob[1], 1e-12)
}

func TestTimePDF_Validation(t *testing.T) {
	lt := twoRuns(t)
	_, err := NewBoxTimePDF(lt, 12, 18)
	assert.True(t, core.IsNumericalError(err), "box inside the gap between runs")

	_, err = NewBoxTimePDF(lt, 5, 5)
	assert.True(t, core.IsValidationError(err))
	_, err = NewGaussianTimePDF(lt, 5, 0)
	assert.True(t, core.IsValidationError(err))
	_, err = NewTimePDF(nil, BoxProfile{Start: 0, End: 1})
	assert.True(t, core.IsValidationError(err))

	p, err := NewBoxTimePDF(lt, 0, 30)
	require.NoError(t, err)
	noTime, err := events.FromColumns(map[string]events.Column{"ra": events.Float64Column{1}})
	require.NoError(t, err)
	_, _, err = p.GetProb(noTime, nil)
	assert.Error(t, err)
}
