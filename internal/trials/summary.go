// Package trials runs pseudo-experiments and summarizes their outcomes.
package trials

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"gollh/domain/core"
	"gollh/domain/run"
)

// Percentiles of the one sigma band around the median.
const (
	LowerSigmaPercentile = 15.9
	UpperSigmaPercentile = 84.1
)

// NsSummary summarizes the fitted number of signal events of all trials
// injected with the same mean number of signal events.
type NsSummary struct {
	MeanNSig float64
	NTrials  int
	Median   float64
	Lower    float64
	Upper    float64
}

// SummarizeNsFit groups the trials by MeanNSig, in ascending order.
func SummarizeNsFit(results []run.Result) ([]NsSummary, error) {
	if len(results) == 0 {
		return nil, core.NewValidationError("trial summary", "no trials given")
	}
	byMean := make(map[float64]stats.Float64Data)
	for _, r := range results {
		byMean[r.MeanNSig] = append(byMean[r.MeanNSig], r.NS)
	}
	means := make([]float64, 0, len(byMean))
	for m := range byMean {
		means = append(means, m)
	}
	sort.Float64s(means)

	out := make([]NsSummary, 0, len(means))
	for _, m := range means {
		ns := byMean[m]
		median, err := stats.Median(ns)
		if err != nil {
			return nil, fmt.Errorf("median ns for mean_n_sig %g: %w", m, err)
		}
		lo, err := Percentile(ns, LowerSigmaPercentile)
		if err != nil {
			return nil, fmt.Errorf("lower ns percentile for mean_n_sig %g: %w", m, err)
		}
		hi, err := Percentile(ns, UpperSigmaPercentile)
		if err != nil {
			return nil, fmt.Errorf("upper ns percentile for mean_n_sig %g: %w", m, err)
		}
		out = append(out, NsSummary{MeanNSig: m, NTrials: len(ns), Median: median, Lower: lo, Upper: hi})
	}
	return out, nil
}

// TSFractionAbove returns the fraction of trials with a test statistic
// strictly greater than threshold.
func TSFractionAbove(results []run.Result, threshold float64) float64 {
	if len(results) == 0 {
		return math.NaN()
	}
	n := 0
	for _, r := range results {
		if r.TS > threshold {
			n++
		}
	}
	return float64(n) / float64(len(results))
}

// Percentile interpolates linearly between the closest ranks: the value at
// fractional rank (n-1)*pct/100 of the sorted data.
func Percentile(x []float64, pct float64) (float64, error) {
	if len(x) == 0 {
		return math.NaN(), core.NewValidationError("percentile", "no values given")
	}
	if !(pct >= 0 && pct <= 100) {
		return math.NaN(), core.NewValidationError("percentile", fmt.Sprintf("%g is outside [0, 100]", pct))
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	// LinInterp reaches sorted[k] at p*n == k+1
	n := float64(len(sorted))
	p := math.Min(((n-1)*pct/100+1)/n, 1)
	return stat.Quantile(p, stat.LinInterp, sorted, nil), nil
}

// BkgTSPercentile returns the percentile of the test statistic.
func BkgTSPercentile(results []run.Result, pct float64) (float64, error) {
	ts := make([]float64, len(results))
	for i, r := range results {
		ts[i] = r.TS
	}
	v, err := Percentile(ts, pct)
	if err != nil {
		return math.NaN(), fmt.Errorf("ts percentile: %w", err)
	}
	return v, nil
}

// TSDistribution returns the mean and standard deviation of the test statistic.
func TSDistribution(results []run.Result) (mean, std float64, err error) {
	ts := make(stats.Float64Data, len(results))
	for i, r := range results {
		ts[i] = r.TS
	}
	if mean, err = stats.Mean(ts); err != nil {
		return 0, 0, core.NewValidationError("ts distribution", err.Error())
	}
	if std, err = stats.StandardDeviation(ts); err != nil {
		return 0, 0, core.NewValidationError("ts distribution", err.Error())
	}
	return mean, std, nil
}
