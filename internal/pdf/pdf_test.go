package pdf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gollh/domain/core"
	"gollh/internal/binning"
	"gollh/internal/events"
	"gollh/internal/parameters"
)

// linearPDF returns gamma*x + sigma for every event, independent of the
// params passed at evaluation time.
type linearPDF struct {
	gamma float64
	sigma float64
}

func (p *linearPDF) GetProb(data DataSource, _ map[string]float64) ([]float64, map[string][]float64, error) {
	x, err := float64Field(data, "x")
	if err != nil {
		return nil, nil, err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = p.gamma*v + p.sigma
	}
	return out, nil, nil
}

func (p *linearPDF) AssertIsValidForExpData(*events.Table) error { return nil }

func gammaGridSet(t *testing.T) *parameters.GridSet {
	t.Helper()
	g, err := parameters.NewLinearGrid("gamma", 1.0, 5.0, 1.0)
	require.NoError(t, err)
	set, err := parameters.NewGridSet(g)
	require.NoError(t, err)
	return set
}

func testEvents(t *testing.T) *events.Table {
	t.Helper()
	tbl := events.NewTable()
	require.NoError(t, tbl.AddColumn("x", events.Float64Column{0.5, 1, 2}))
	return tbl
}

func TestSet_AddGetDuplicate(t *testing.T) {
	set := NewSet[*linearPDF](RoleSignal, gammaGridSet(t))
	p := &linearPDF{gamma: 2}

	require.NoError(t, set.AddPDF(p, map[string]float64{"gamma": 2}))
	got, err := set.GetPDF(map[string]float64{"gamma": 2})
	require.NoError(t, err)
	assert.Same(t, p, got)

	byHash, err := set.GetPDFByHash(core.ComputeParamsHash(map[string]float64{"gamma": 2}))
	require.NoError(t, err)
	assert.Same(t, p, byHash)

	err = set.AddPDF(&linearPDF{gamma: 2}, map[string]float64{"gamma": 2})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
	assert.Equal(t, 1, set.Len())
}

func TestSet_GetMissing(t *testing.T) {
	set := NewSet[*linearPDF](RoleBackground, gammaGridSet(t))
	require.NoError(t, set.AddPDF(&linearPDF{gamma: 2}, map[string]float64{"gamma": 2}))

	_, err := set.GetPDF(map[string]float64{"gamma": 2.5})
	assert.ErrorIs(t, err, core.ErrPDFNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestBuildSet_ExactGridLookup(t *testing.T) {
	grids := gammaGridSet(t)
	perms := grids.ParameterPermutationDictList()
	require.Len(t, perms, 5)
	for i, p := range perms {
		assert.Equal(t, float64(i+1), p["gamma"])
	}

	set, err := BuildSet(context.Background(), RoleSignal, grids, 3, nil,
		func(ctx context.Context, params map[string]float64) (*linearPDF, error) {
			return &linearPDF{gamma: params["gamma"]}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 5, set.Len())

	p, err := set.GetPDF(map[string]float64{"gamma": 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, p.gamma)

	prob, _, err := p.GetProb(testEvents(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 3, 6}, prob)
}

func TestInterpolatedSet_LinearInGamma(t *testing.T) {
	sigma, err := parameters.NewLinearGrid("sigma", 0, 1, 1)
	require.NoError(t, err)
	grids := gammaGridSet(t)
	require.NoError(t, grids.Add(sigma))

	set, err := BuildSet(context.Background(), RoleSignal, grids, 2, nil,
		func(ctx context.Context, params map[string]float64) (*linearPDF, error) {
			return &linearPDF{gamma: params["gamma"], sigma: params["sigma"]}, nil
		})
	require.NoError(t, err)

	iset := NewInterpolatedSet(set)
	prob, grads, err := iset.GetProb(testEvents(t), map[string]float64{"gamma": 2.5, "sigma": 0.25})
	require.NoError(t, err)

	x := []float64{0.5, 1, 2}
	for i := range x {
		assert.InDelta(t, 2.5*x[i]+0.25, prob[i], 1e-12)
		assert.InDelta(t, x[i], grads["gamma"][i], 1e-12)
		assert.InDelta(t, 1.0, grads["sigma"][i], 1e-12)
	}

	onGrid, _, err := iset.GetProb(testEvents(t), map[string]float64{"gamma": 3, "sigma": 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.5, 3, 6}, onGrid, 1e-12)

	_, _, err = iset.GetProb(testEvents(t), map[string]float64{"gamma": 6, "sigma": 0})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, _, err = iset.GetProb(testEvents(t), map[string]float64{"gamma": 2})
	assert.ErrorIs(t, err, core.ErrParameterNotFound)
}

func TestHistogramPDF(t *testing.T) {
	b, err := binning.NewLinearDefinition("log_energy", 1, 5, 4)
	require.NoError(t, err)

	p, err := NewHistogramPDF("log_energy", b, []float64{1.5, 1.5, 2.5, 4.5}, []float64{1, 1, 1, 1}, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.25, 0, 0.25}, p.Density(), 1e-12)

	tbl := events.NewTable()
	require.NoError(t, tbl.AddColumn("log_energy", events.Float64Column{1.2, 3.5, 6}))
	prob, _, err := p.GetProb(tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0, 0}, prob)
	assert.ErrorIs(t, p.AssertIsValidForExpData(tbl), core.ErrValidation)

	_, err = NewHistogramPDF("log_energy", b, []float64{7}, []float64{1}, 1)
	assert.ErrorIs(t, err, core.ErrDegenerate)
}

func TestGaussianSpatialPDF(t *testing.T) {
	tbl := events.NewTable()
	require.NoError(t, tbl.AddColumn("psi", events.Float64Column{0, 0.01}))
	require.NoError(t, tbl.AddColumn("ang_err", events.Float64Column{0.01, 0.01}))

	p := NewGaussianSpatialPDF()
	prob, _, err := p.GetProb(tbl, nil)
	require.NoError(t, err)
	peak := 1 / (2 * math.Pi * 1e-4)
	assert.InDelta(t, peak, prob[0], 1e-6)
	assert.InDelta(t, peak*math.Exp(-0.5), prob[1], 1e-6)
	assert.NoError(t, p.AssertIsValidForExpData(tbl))

	tagged := Signal(p)
	assert.Equal(t, RoleSignal, tagged.Role())
	assert.Equal(t, "background", Background(p).Role().String())
}
