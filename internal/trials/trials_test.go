package trials

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gollh/domain/core"
	"gollh/domain/run"
	"gollh/internal/random"
	"gollh/internal/timing"
)

func TestSummarizeNsFit(t *testing.T) {
	var results []run.Result
	for i := 1; i <= 10; i++ {
		results = append(results, run.Result{MeanNSig: 5, NS: float64(i)})
	}
	results = append(results, run.Result{MeanNSig: 0, NS: 0}, run.Result{MeanNSig: 0, NS: 2})

	sum, err := SummarizeNsFit(results)
	require.NoError(t, err)
	require.Len(t, sum, 2)

	assert.Equal(t, 0.0, sum[0].MeanNSig)
	assert.Equal(t, 2, sum[0].NTrials)
	assert.Equal(t, 1.0, sum[0].Median)

	assert.Equal(t, 5.0, sum[1].MeanNSig)
	assert.Equal(t, 10, sum[1].NTrials)
	assert.Equal(t, 5.5, sum[1].Median)
	assert.InDelta(t, 2.431, sum[1].Lower, 1e-12)
	assert.InDelta(t, 8.569, sum[1].Upper, 1e-12)

	_, err = SummarizeNsFit(nil)
	assert.True(t, core.IsValidationError(err))
}

func TestTSStatistics(t *testing.T) {
	results := []run.Result{{TS: 0}, {TS: 0}, {TS: 1}, {TS: 4}}
	assert.Equal(t, 0.5, TSFractionAbove(results, 0))
	assert.Equal(t, 0.25, TSFractionAbove(results, 1))
	assert.True(t, math.IsNaN(TSFractionAbove(nil, 0)))

	p, err := BkgTSPercentile(results, 50)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)
	p, err = BkgTSPercentile(results, 100)
	require.NoError(t, err)
	assert.Equal(t, 4.0, p)
	_, err = BkgTSPercentile(nil, 50)
	assert.True(t, core.IsValidationError(err))

	mean, _, err := TSDistribution(results)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, mean, 1e-12)
}

func TestPercentile_LinearBetweenRanks(t *testing.T) {
	x := []float64{4, 1, 3, 2}
	cases := map[float64]float64{0: 1, 25: 1.75, 50: 2.5, 90: 3.7, 100: 4}
	for pct, want := range cases {
		got, err := Percentile(x, pct)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-12, "pct %g", pct)
	}
	assert.Equal(t, []float64{4, 1, 3, 2}, x, "input left unsorted")

	one, err := Percentile([]float64{7}, 84.1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, one)

	_, err = Percentile(x, 101)
	assert.True(t, core.IsValidationError(err))
	_, err = Percentile(nil, 50)
	assert.True(t, core.IsValidationError(err))
}

func TestFitNs(t *testing.T) {
	// pure background: ns pinned at zero
	ns, ts, err := FitNs([]float64{0.5, 0.2, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ns)
	assert.Equal(t, 0.0, ts)

	// one strong signal-like event among background: the stationary point
	// of (x-1)/(N+ns(x-1)) - 1/(N-ns) with x=11, N=2 is ns = 0.9
	ns, ts, err = FitNs([]float64{11, 0}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, ns, 1e-6)
	want := 2 * (math.Log1p(0.45*10) + math.Log1p(-0.45))
	assert.InDelta(t, want, ts, 1e-6)
	assert.Greater(t, ts, 0.0)

	_, _, err = FitNs([]float64{1, 2}, 1)
	assert.True(t, core.IsValidationError(err))
	_, _, err = FitNs([]float64{math.NaN()}, 1)
	assert.True(t, errors.Is(err, core.ErrDegenerate))
}

func TestRunner_DeterministicAcrossWorkers(t *testing.T) {
	rn := run.NewRun("bkg", run.KindBackground, 8, []string{"toy"}, nil, 5, "test")
	trial := func(_ context.Context, rss *random.Service, res *run.Result) error {
		res.NBkg = rss.Poisson(10)
		res.TS = rss.Uniform(0, 1, 1)[0]
		return nil
	}

	serial, err := NewRunner(1, 5, nil)
	require.NoError(t, err)
	a, err := serial.Run(context.Background(), rn, trial)
	require.NoError(t, err)

	tl := timing.NewTimeLord()
	parallel, err := NewRunner(4, 5, tl)
	require.NoError(t, err)
	b, err := parallel.Run(context.Background(), rn, trial)
	require.NoError(t, err)

	require.Len(t, a, 8)
	for i := range a {
		assert.Equal(t, i, b[i].Index)
		assert.Equal(t, a[i].Seed, b[i].Seed)
		assert.Equal(t, a[i].NBkg, b[i].NBkg)
		assert.Equal(t, a[i].TS, b[i].TS)
		assert.Equal(t, rn.ID, b[i].RunID)
	}
	rec, err := tl.TaskRecord("Run trial.")
	require.NoError(t, err)
	assert.Equal(t, 8, rec.NIter())
}

func TestRunner_PropagatesErrors(t *testing.T) {
	rn := run.NewRun("bkg", run.KindBackground, 3, nil, nil, 1, "test")
	r, err := NewRunner(2, 1, nil)
	require.NoError(t, err)
	boom := errors.New("boom")
	_, err = r.Run(context.Background(), rn, func(_ context.Context, _ *random.Service, res *run.Result) error {
		if res.Index == 1 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewRunner(0, 1, nil)
	assert.True(t, core.IsValidationError(err))
}
