package bkggen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"gollh/domain/core"
	"gollh/domain/dataset"
	"gollh/internal/detsigyield"
	"gollh/internal/events"
	"gollh/internal/flux"
	"gollh/internal/random"
	"gollh/internal/scrambling"
	"gollh/internal/source"
	"gollh/internal/sourcehypo"
	"gollh/internal/timing"
)

func toyData(t *testing.T) *dataset.Data {
	t.Helper()
	exp, err := events.FromColumns(map[string]events.Column{
		"ra":   events.Float64Column{0.1, 0.2},
		"dec":  events.Float64Column{0.3, 0.4},
		"time": events.Float64Column{55000.1, 55000.2},
	})
	require.NoError(t, err)
	mc, err := events.FromColumns(map[string]events.Column{
		"ra":       events.Float64Column{1, 2, 3, 4},
		"dec":      events.Float64Column{-1, -0.9, 0.5, 0.55},
		"time":     events.Float64Column{55000, 55000, 55000, 55000},
		"true_dec": events.Float64Column{-1, -0.9, 0.5, 0.55},
		"mcweight": events.Float64Column{1, 1, 1, 1},
	})
	require.NoError(t, err)
	data, err := dataset.NewData(exp, mc, nil)
	require.NoError(t, err)
	return data
}

func weightProb(_ *dataset.Dataset, _ *dataset.Data, mc *events.Table) ([]float64, error) {
	return mc.Float64("mcweight")
}

func weightMean(_ *dataset.Dataset, _ *dataset.Data, mc *events.Table) (float64, error) {
	w, err := mc.Float64("mcweight")
	if err != nil {
		return 0, err
	}
	return floats.Sum(w), nil
}

func TestMCDataSampling_RoundedMean(t *testing.T) {
	m, err := NewMCDataSampling(weightProb, MCDataSamplingOptions{
		KeepMCFieldNames:  []string{"mcweight"},
		RequiredExpFields: []string{"ra", "dec"},
	})
	require.NoError(t, err)

	n, bkg, err := m.GenerateEvents(random.NewService(1), dataset.New("toy", ""), toyData(t), 5.4, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, bkg.Len())
	assert.ElementsMatch(t, []string{"dec", "ra", "time"}, bkg.FieldNames())
}

func TestMCDataSampling_MeanRequired(t *testing.T) {
	keep := []string{"mcweight"}
	m, err := NewMCDataSampling(weightProb, MCDataSamplingOptions{KeepMCFieldNames: keep})
	require.NoError(t, err)
	_, _, err = m.GenerateEvents(random.NewService(1), nil, toyData(t), UseCachedMean, true, nil)
	assert.True(t, core.IsValidationError(err))

	m, err = NewMCDataSampling(weightProb, MCDataSamplingOptions{GetMean: weightMean, KeepMCFieldNames: keep})
	require.NoError(t, err)
	n, bkg, err := m.GenerateEvents(random.NewService(1), nil, toyData(t), UseCachedMean, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, bkg.Len())
}

func TestMCDataSampling_CacheFollowsStamp(t *testing.T) {
	calls := 0
	prob := func(ds *dataset.Dataset, data *dataset.Data, mc *events.Table) ([]float64, error) {
		calls++
		return weightProb(ds, data, mc)
	}
	m, err := NewMCDataSampling(prob, MCDataSamplingOptions{KeepMCFieldNames: []string{"mcweight"}})
	require.NoError(t, err)

	data := toyData(t)
	rss := random.NewService(2)
	for i := 0; i < 3; i++ {
		_, _, err := m.GenerateEvents(rss, nil, data, 2, true, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)

	data.MC.Touch()
	_, _, err = m.GenerateEvents(rss, nil, data, 2, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	m.ChangeSourceHypoGroupManager(nil)
	_, _, err = m.GenerateEvents(rss, nil, data, 2, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestMCDataSampling_CacheFollowsExpFields(t *testing.T) {
	calls := 0
	prob := func(ds *dataset.Dataset, data *dataset.Data, mc *events.Table) ([]float64, error) {
		calls++
		return weightProb(ds, data, mc)
	}
	m, err := NewMCDataSampling(prob, MCDataSamplingOptions{KeepMCFieldNames: []string{"mcweight"}})
	require.NoError(t, err)

	data := toyData(t)
	require.NoError(t, data.MC.AddColumn("energy", events.Float64Column{1, 2, 3, 4}))
	rss := random.NewService(6)
	_, bkg, err := m.GenerateEvents(rss, nil, data, 2, false, nil)
	require.NoError(t, err)
	assert.False(t, bkg.Has("energy"))

	mcStamp := data.MC.Stamp()
	require.NoError(t, data.Exp.AddColumn("energy", events.Float64Column{5, 6}))
	_, bkg, err = m.GenerateEvents(rss, nil, data, 2, false, nil)
	require.NoError(t, err)
	assert.Equal(t, mcStamp, data.MC.Stamp())
	assert.Equal(t, 2, calls)
	assert.True(t, bkg.Has("energy"))
}

func TestMCDataSampling_FailedRefreshKeepsCache(t *testing.T) {
	fail, scale, calls := false, 1.0, 0
	prob := func(ds *dataset.Dataset, data *dataset.Data, mc *events.Table) ([]float64, error) {
		calls++
		if fail {
			return nil, assert.AnError
		}
		return weightProb(ds, data, mc)
	}
	mean := func(ds *dataset.Dataset, data *dataset.Data, mc *events.Table) (float64, error) {
		v, err := weightMean(ds, data, mc)
		return scale * v, err
	}
	m, err := NewMCDataSampling(prob, MCDataSamplingOptions{GetMean: mean, KeepMCFieldNames: []string{"mcweight"}})
	require.NoError(t, err)

	first, second := toyData(t), toyData(t)
	rss := random.NewService(7)
	n, _, err := m.GenerateEvents(rss, nil, first, UseCachedMean, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// the mean is computed before the probabilities fail
	fail, scale = true, 10
	_, _, err = m.GenerateEvents(rss, nil, second, UseCachedMean, false, nil)
	require.ErrorIs(t, err, assert.AnError)

	n, _, err = m.GenerateEvents(rss, nil, first, UseCachedMean, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, calls)

	fail = false
	n, _, err = m.GenerateEvents(rss, nil, second, UseCachedMean, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 40, n)
	assert.Equal(t, 3, calls)

	// a failed refresh for the cached data retries on the next call
	fail = true
	second.MC.Touch()
	_, _, err = m.GenerateEvents(rss, nil, second, UseCachedMean, false, nil)
	require.Error(t, err)
	fail = false
	n, _, err = m.GenerateEvents(rss, nil, second, UseCachedMean, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 40, n)
	assert.Equal(t, 5, calls)
}

func TestMCDataSampling_PreSelection(t *testing.T) {
	src, err := source.NewPointLike("src", 0, 0.5, 1)
	require.NoError(t, err)
	pl, err := flux.NewPowerLaw(1, 1e3, 2)
	require.NoError(t, err)
	g, err := sourcehypo.NewGroup([]*source.PointLike{src}, pl, detsigyield.NullBuilder{})
	require.NoError(t, err)
	sel, err := NewDecBandSelection(sourcehypo.NewManager(g), 0.1)
	require.NoError(t, err)

	_, err = NewMCDataSampling(weightProb, MCDataSamplingOptions{PreSelection: sel})
	assert.True(t, core.IsValidationError(err))

	m, err := NewMCDataSampling(weightProb, MCDataSamplingOptions{
		GetMean:          weightMean,
		PreSelection:     sel,
		UniqueEvents:     true,
		KeepMCFieldNames: []string{"mcweight"},
	})
	require.NoError(t, err)

	tl := timing.NewTimeLord()
	// mean 4 over all MC, 2 inside the band: half of the 4 events are drawn
	n, bkg, err := m.GenerateEvents(random.NewService(3), nil, toyData(t), UseCachedMean, false, tl)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Equal(t, 2, bkg.Len())
	dec, err := bkg.Float64("dec")
	require.NoError(t, err)
	assert.ElementsMatch(t, []float64{0.5, 0.55}, dec)

	assert.True(t, tl.HasTaskRecord("Draw MC background indices."))
	assert.True(t, tl.HasTaskRecord("Pre-select MC events."))
}

func TestMCDataSampling_Scrambled(t *testing.T) {
	ra, err := scrambling.NewUniformRAInRange(10, 11)
	require.NoError(t, err)
	scr, err := scrambling.NewScrambler(ra)
	require.NoError(t, err)
	m, err := NewMCDataSampling(weightProb, MCDataSamplingOptions{
		Scrambler:        scr,
		KeepMCFieldNames: []string{"mcweight"},
	})
	require.NoError(t, err)

	_, bkg, err := m.GenerateEvents(random.NewService(4), nil, toyData(t), 20, false, nil)
	require.NoError(t, err)
	values, err := bkg.Float64("ra")
	require.NoError(t, err)
	require.Len(t, values, 20)
	for _, v := range values {
		assert.True(t, v >= 10 && v < 11)
	}
}

func TestDataScrambling(t *testing.T) {
	scr, err := scrambling.NewScrambler(scrambling.NewUniformRA())
	require.NoError(t, err)
	m, err := NewDataScrambling(scr)
	require.NoError(t, err)
	data := toyData(t)
	g, err := NewGenerator(m, dataset.New("toy", ""), data)
	require.NoError(t, err)

	before := data.Exp.Stamp()
	n, bkg, err := g.GenerateBackgroundEvents(random.NewService(5), UseCachedMean, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, bkg.Len())
	assert.Equal(t, before, data.Exp.Stamp())

	_, err = NewGenerator(nil, nil, data)
	assert.True(t, core.IsValidationError(err))
}
