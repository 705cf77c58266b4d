package binning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gollh/domain/core"
)

func TestNewDefinition_Validation(t *testing.T) {
	_, err := NewDefinition("sin_dec", []float64{0})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = NewDefinition("sin_dec", []float64{0, 1, 1})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestDefinition_CentersAndDigitize(t *testing.T) {
	d, err := NewLinearDefinition("sin_dec", -1, 1, 4)
	require.NoError(t, err)

	assert.Equal(t, 4, d.NBins())
	assert.InDeltaSlice(t, []float64{-0.75, -0.25, 0.25, 0.75}, d.BinCenters(), 1e-12)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0.5, 0.5}, d.BinWidths(), 1e-12)

	assert.Equal(t, 0, d.Digitize(-1))
	assert.Equal(t, 1, d.Digitize(-0.5))
	assert.Equal(t, 2, d.Digitize(0.1))
	assert.Equal(t, 3, d.Digitize(1))
	assert.Equal(t, -1, d.Digitize(1.01))
}

func TestBinIndicesFromLowerAndUpperEdges(t *testing.T) {
	lower := []float64{0, 1, 2}
	upper := []float64{1, 2, 3}

	idx, err := BinIndicesFromLowerAndUpperEdges(lower, upper, []float64{0.5, 2.5, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, idx)

	_, err = BinIndicesFromLowerAndUpperEdges(lower, upper, []float64{3})
	assert.ErrorIs(t, err, core.ErrValidation)
}
