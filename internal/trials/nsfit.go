package trials

import (
	"math"

	"gollh/domain/core"
)

const bisectIterations = 200

// FitNs maximizes the mixture log-likelihood
//
//	log L(ns) = sum_i log(1 + ns/N (x_i - 1))
//
// over ns in [0, N], where x_i is the signal over background ratio of event
// i and N is the total number of events. It returns the best fit ns and the
// test statistic 2 log L(ns).
func FitNs(sOverB []float64, nTotal int) (ns, ts float64, err error) {
	if nTotal < len(sOverB) || nTotal == 0 {
		return 0, 0, core.NewValidationError("ns fit", "total event count must be positive and cover all events")
	}
	for _, x := range sOverB {
		if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, 0, core.NewDegenerateError("ns fit", "signal over background ratios must be finite and non-negative")
		}
	}
	n := float64(nTotal)
	grad := func(ns float64) float64 {
		var g float64
		for _, x := range sOverB {
			a := (x - 1) / n
			g += a / (1 + ns*a)
		}
		return g
	}
	// events outside sOverB contribute x = 0
	extra := float64(nTotal - len(sOverB))
	gradAll := func(ns float64) float64 {
		a := -1 / n
		return grad(ns) + extra*a/(1+ns*a)
	}

	if gradAll(0) <= 0 {
		return 0, 0, nil
	}
	lo, hi := 0.0, n
	if g := gradAll(hi); !math.IsNaN(g) && !math.IsInf(g, 0) && g > 0 {
		lo = hi
	} else {
		for i := 0; i < bisectIterations && hi-lo > 1e-12*n; i++ {
			mid := 0.5 * (lo + hi)
			if gradAll(mid) > 0 {
				lo = mid
			} else {
				hi = mid
			}
		}
	}
	ns = lo
	return ns, 2 * logL(sOverB, extra, n, ns), nil
}

func logL(sOverB []float64, extra, n, ns float64) float64 {
	var l float64
	for _, x := range sOverB {
		l += math.Log1p(ns / n * (x - 1))
	}
	return l + extra*math.Log1p(-ns/n)
}
