package source

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gollh/domain/core"
)

func TestNewPointLike_Validation(t *testing.T) {
	_, err := NewPointLike("bad", 7, 0, 1)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = NewPointLike("bad", 1, 2, 1)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = NewPointLike("bad", 1, 0, -1)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestToArray(t *testing.T) {
	a, err := NewPointLike("a", 1, math.Pi/6, 0.25)
	require.NoError(t, err)
	b, err := NewPointLike("b", 2, 0, 0.75)
	require.NoError(t, err)

	arr := ToArray([]*PointLike{a, b})
	assert.Equal(t, 2, arr.Len())
	assert.Equal(t, []float64{1, 2}, arr.RA)
	assert.InDelta(t, 0.5, arr.SinDec[0], 1e-12)
	assert.Equal(t, []float64{0.25, 0.75}, arr.Weight)
}

func TestPsiToDecAndRA_RoundTrip(t *testing.T) {
	srcRA, srcDec := 1.2, 0.3
	psi := []float64{0.01, 0.1, 0.5, 1.0}
	phi := []float64{0, 1.3, 2.9, 5.1}

	ra, dec := PsiToDecAndRA(srcRA, srcDec, psi, phi)
	for i := range psi {
		assert.InDelta(t, psi[i], AngularSeparation(srcRA, srcDec, ra[i], dec[i]), 1e-9)
		assert.GreaterOrEqual(t, ra[i], 0.0)
		assert.Less(t, ra[i], 2*math.Pi)
	}
}
