package detsigyield

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gollh/domain/core"
	"gollh/domain/dataset"
	"gollh/internal/binning"
	"gollh/internal/events"
	"gollh/internal/flux"
	"gollh/internal/livetime"
	"gollh/internal/parameters"
	"gollh/internal/source"
)

// toyMC puts two events (1 TeV and 10 TeV) at each sin_dec bin center; the
// weight of bin i is i+1.
func toyMC(t *testing.T) (*dataset.Dataset, *dataset.Data) {
	t.Helper()
	ds := dataset.New("toy", "")
	b, err := binning.NewLinearDefinition("sin_dec", -1, 1, 4)
	require.NoError(t, err)
	require.NoError(t, ds.AddBinningDefinition(b))

	var dec, energy, weight events.Float64Column
	for i, c := range b.BinCenters() {
		for _, e := range []float64{1e3, 1e4} {
			dec = append(dec, math.Asin(c))
			energy = append(energy, e)
			weight = append(weight, float64(i+1))
		}
	}
	mc, err := events.FromColumns(map[string]events.Column{
		FieldTrueDec:    dec,
		FieldTrueEnergy: energy,
		FieldMCWeight:   weight,
	})
	require.NoError(t, err)
	return ds, &dataset.Data{MC: mc}
}

func expectedYield(binWeight, gamma float64) float64 {
	return 86400 * binWeight * (1 + math.Pow(10, -gamma)) / math.Pi
}

func buildToyYield(t *testing.T) DetSigYield {
	t.Helper()
	ds, data := toyMC(t)
	grid, err := parameters.NewLinearGrid("gamma", 1, 3, 1)
	require.NoError(t, err)
	builder, err := NewPowerLawBuilder(grid, nil, 2)
	require.NoError(t, err)
	fm, err := flux.NewPowerLaw(1, 1e3, 2)
	require.NoError(t, err)

	y, err := builder.ConstructDetSigYield(ds, data, fm, livetime.Days(1))
	require.NoError(t, err)
	return y
}

func TestPowerLaw_YieldAndGradient(t *testing.T) {
	y := buildToyYield(t)
	assert.Equal(t, []string{"gamma"}, y.ParamNames())

	s1, _ := source.NewPointLike("s1", 0.1, math.Asin(0.25), 1)
	s2, _ := source.NewPointLike("s2", 0.2, math.Asin(-0.75), 1)
	srcs, err := y.SourcesToArray([]*source.PointLike{s1, s2})
	require.NoError(t, err)

	params := parameters.NewSrcParamsArray(2)
	require.NoError(t, params.Set("gamma", []float64{2, 1.5}, []int{0, parameters.NoGlobalIndex}))

	yields, grads, err := y.Evaluate(srcs, params)
	require.NoError(t, err)

	assert.InEpsilon(t, expectedYield(3, 2), yields[0], 1e-9)
	want := 0.5 * (expectedYield(1, 1) + expectedYield(1, 2))
	assert.InEpsilon(t, want, yields[1], 1e-9)

	require.Len(t, grads, 1)
	g := grads[0]
	require.Len(t, g, 2)
	// gamma=2 sits on a grid point and uses the [2, 3] interval
	assert.InEpsilon(t, expectedYield(3, 3)-expectedYield(3, 2), g[0], 1e-9)
	assert.Equal(t, 0.0, g[1])
}

func TestPowerLaw_CallValidation(t *testing.T) {
	y := buildToyYield(t)
	s1, _ := source.NewPointLike("s1", 0.1, 0.1, 1)
	srcs, err := y.SourcesToArray([]*source.PointLike{s1})
	require.NoError(t, err)

	_, _, err = y.Evaluate(srcs, parameters.NewSrcParamsArray(2))
	assert.ErrorIs(t, err, core.ErrShapeMismatch)

	_, _, err = y.Evaluate(srcs, parameters.NewSrcParamsArray(1))
	assert.ErrorIs(t, err, core.ErrParameterNotFound)

	params := parameters.NewSrcParamsArray(1)
	require.NoError(t, params.SetFixed("gamma", 3.5))
	_, _, err = y.Evaluate(srcs, params)
	assert.ErrorIs(t, err, core.ErrValidation)
}

type constantFlux struct{}

func (constantFlux) Evaluate(float64) float64                            { return 1 }
func (constantFlux) Integral(lo, hi float64) float64                     { return hi - lo }
func (constantFlux) InvNormedCDF(u, lo, hi float64) float64              { return lo + u*(hi-lo) }
func (constantFlux) ParamNames() []string                                { return nil }
func (constantFlux) Params() map[string]float64                          { return nil }
func (c constantFlux) WithParams(map[string]float64) (flux.Model, error) { return c, nil }

func TestConstruct_ArgumentValidation(t *testing.T) {
	ds, data := toyMC(t)
	grid, _ := parameters.NewLinearGrid("gamma", 1, 3, 1)
	builder, err := NewPowerLawBuilder(grid, nil, 1)
	require.NoError(t, err)
	fm, _ := flux.NewPowerLaw(1, 1e3, 2)

	_, err = builder.ConstructDetSigYield(nil, data, fm, livetime.Days(1))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = builder.ConstructDetSigYield(ds, data, fm, livetime.Days(0))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = builder.ConstructDetSigYield(ds, data, fm, nil)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = builder.ConstructDetSigYield(ds, data, constantFlux{}, livetime.Days(1))
	assert.ErrorIs(t, err, core.ErrValidation)

	sigma, _ := parameters.NewLinearGrid("sigma", 1, 3, 1)
	_, err = NewPowerLawBuilder(sigma, nil, 1)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestNullBuilder_AlwaysFails(t *testing.T) {
	ds, data := toyMC(t)
	fm, _ := flux.NewPowerLaw(1, 1e3, 2)

	var b Builder = NullBuilder{}
	y, err := b.ConstructDetSigYield(ds, data, fm, livetime.Days(1))
	assert.Nil(t, y)
	assert.ErrorIs(t, err, core.ErrNotImplemented)
}
