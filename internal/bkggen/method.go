// Package bkggen generates background events for pseudo experiments.
package bkggen

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"gollh/domain/core"
	"gollh/domain/dataset"
	"gollh/internal"
	"gollh/internal/events"
	"gollh/internal/scrambling"
	"gollh/internal/sourcehypo"
	"gollh/internal/timing"
	"gollh/ports"
)

// Method generates background events for one dataset.
type Method interface {
	// GenerateEvents returns the drawn number of background events and the
	// events themselves. A negative mean selects the method's own mean.
	GenerateEvents(rss ports.RandomState, ds *dataset.Dataset, data *dataset.Data, mean float64, poisson bool, tl *timing.TimeLord) (int, *events.Table, error)
	ChangeSourceHypoGroupManager(mgr *sourcehypo.Manager)
}

// MeanFunc returns the mean number of background events of mc.
type MeanFunc func(ds *dataset.Dataset, data *dataset.Data, mc *events.Table) (float64, error)

// EventProbFunc returns the background probability of every mc event.
type EventProbFunc func(ds *dataset.Dataset, data *dataset.Data, mc *events.Table) ([]float64, error)

// UseCachedMean asks GenerateEvents to use the mean function's value.
const UseCachedMean = -1.0

// MCDataSamplingOptions configures an MCDataSampling method.
type MCDataSamplingOptions struct {
	GetMean           MeanFunc
	UniqueEvents      bool
	Scrambler         *scrambling.Scrambler
	KeepMCFieldNames  []string
	PreSelection      EventSelection
	RequiredExpFields []string
}

// MCDataSampling draws background events from monte-carlo according to
// per-event background probabilities. It is safe for concurrent use.
type MCDataSampling struct {
	getEventProb EventProbFunc
	opts         MCDataSamplingOptions

	mu sync.Mutex

	cachedKey            cacheKey
	cacheValid           bool
	cacheMCPreSelected   *events.Table
	cacheEventProb       []float64
	cacheEventProbPreSel []float64
	cacheMean            float64
	cacheHasMean         bool

	log *internal.Logger
}

func NewMCDataSampling(getEventProb EventProbFunc, opts MCDataSamplingOptions) (*MCDataSampling, error) {
	if getEventProb == nil {
		return nil, core.NewValidationError("mc data sampling", "event probability function is required")
	}
	if opts.PreSelection != nil && opts.GetMean == nil {
		return nil, core.NewValidationError("mc data sampling", "an event pre-selection requires a mean function")
	}
	return &MCDataSampling{
		getEventProb: getEventProb,
		opts:         opts,
		log:          internal.DefaultLogger.WithComponent("BkgGen"),
	}, nil
}

// ChangeSourceHypoGroupManager forwards the new sources to the
// pre-selection and invalidates the cache.
func (m *MCDataSampling) ChangeSourceHypoGroupManager(mgr *sourcehypo.Manager) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opts.PreSelection != nil {
		m.opts.PreSelection.ChangeSourceHypoGroupManager(mgr)
	}
	m.cacheValid = false
}

// cacheKey identifies the monte-carlo state and the kept fields a cache was built from.
type cacheKey struct {
	mc     events.Stamp
	fields string
}

// refreshCache rebuilds the cache when the monte-carlo table or the kept
// fields changed. The cache is replaced only after every step succeeded.
func (m *MCDataSampling) refreshCache(ds *dataset.Dataset, data *dataset.Data, tl *timing.TimeLord) error {
	keep := unique(m.opts.RequiredExpFields, data.ExpFieldNames(), m.opts.KeepMCFieldNames)
	key := cacheKey{mc: data.MC.Stamp(), fields: strings.Join(keep, ",")}
	if m.cacheValid && m.cachedKey == key {
		return nil
	}
	m.log.Debug("monte-carlo data of dataset %q changed from %v to %v", datasetName(ds), m.cachedKey, key)

	mc := data.MC.Copy(keep...)

	var (
		mean    float64
		hasMean bool
	)
	if m.opts.GetMean != nil {
		err := timing.Time(tl, "Calculate total MC background mean.", func() error {
			var err error
			mean, err = m.opts.GetMean(ds, data, mc)
			return err
		})
		if err != nil {
			return fmt.Errorf("calculating background mean: %w", err)
		}
		hasMean = true
	}

	var prob []float64
	err := timing.Time(tl, "Calculate MC background event probability cache.", func() error {
		var err error
		if prob, err = m.getEventProb(ds, data, mc); err != nil {
			return err
		}
		if len(prob) != mc.Len() {
			return fmt.Errorf("%w: %d probabilities for %d monte-carlo events", core.ErrShapeMismatch, len(prob), mc.Len())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("calculating background event probabilities: %w", err)
	}

	selected, probPreSel := mc, []float64(nil)
	if m.opts.PreSelection != nil {
		var idx []int
		err := timing.Time(tl, "Pre-select MC events.", func() error {
			var err error
			selected, idx, err = m.opts.PreSelection.SelectEvents(mc)
			return err
		})
		if err != nil {
			return fmt.Errorf("pre-selecting monte-carlo events: %w", err)
		}
		probPreSel = make([]float64, len(idx))
		for i, j := range idx {
			probPreSel[i] = prob[j]
		}
	}

	m.cachedKey = key
	m.cacheMCPreSelected = selected
	m.cacheEventProb = prob
	m.cacheEventProbPreSel = probPreSel
	m.cacheMean, m.cacheHasMean = mean, hasMean
	m.cacheValid = true
	return nil
}

func (m *MCDataSampling) GenerateEvents(rss ports.RandomState, ds *dataset.Dataset, data *dataset.Data, mean float64, poisson bool, tl *timing.TimeLord) (int, *events.Table, error) {
	if data == nil || data.MC == nil {
		return 0, nil, core.NewValidationError("mc data sampling", "monte-carlo data is required")
	}
	m.mu.Lock()
	if err := m.refreshCache(ds, data, tl); err != nil {
		m.mu.Unlock()
		return 0, nil, err
	}
	selected, probAll, probPreSel := m.cacheMCPreSelected, m.cacheEventProb, m.cacheEventProbPreSel
	cachedMean, hasMean := m.cacheMean, m.cacheHasMean
	m.mu.Unlock()

	if mean < 0 {
		if !hasMean {
			return 0, nil, core.NewValidationError("background mean", "neither a mean nor a mean function was given")
		}
		mean = cachedMean
	}

	var nBkg int
	if poisson {
		nBkg = rss.Poisson(mean)
	} else {
		nBkg = int(math.Round(mean))
	}

	meanSelected := mean
	p := probAll
	if m.opts.PreSelection != nil {
		err := timing.Time(tl, "Calculate selected MC background mean.", func() error {
			var err error
			meanSelected, err = m.opts.GetMean(ds, data, selected)
			return err
		})
		if err != nil {
			return 0, nil, fmt.Errorf("calculating selected background mean: %w", err)
		}
	}
	pBinomial := 1.0
	if mean > 0 {
		pBinomial = meanSelected / mean
	}
	if m.opts.PreSelection != nil {
		tt := timing.StartTask(tl, "Get p array.")
		p = make([]float64, len(probPreSel))
		for i, v := range probPreSel {
			p[i] = v / pBinomial
		}
		tt.Stop()
	}
	nSelected := int(math.Round(float64(nBkg) * pBinomial))

	var idx []int
	err := timing.Time(tl, "Draw MC background indices.", func() error {
		var err error
		idx, err = rss.Choice(selected.Len(), nSelected, p, !m.opts.UniqueEvents)
		return err
	})
	if err != nil {
		return 0, nil, fmt.Errorf("drawing background events: %w", err)
	}

	tt := timing.StartTask(tl, "Select MC background events from indices.")
	bkg := selected.Take(idx)
	tt.Stop()

	if m.opts.Scrambler != nil {
		err := timing.Time(tl, "Scramble MC background data.", func() error {
			var err error
			bkg, err = m.opts.Scrambler.ScrambleData(rss, bkg, false)
			return err
		})
		if err != nil {
			return 0, nil, err
		}
	}

	tt = timing.StartTask(tl, "Remove MC specific data fields from MC events.")
	bkg.TidyUp(unique(m.opts.RequiredExpFields, data.ExpFieldNames()))
	tt.Stop()

	m.log.Trace("generated %d background events (%d selected) for dataset %q", nBkg, len(idx), datasetName(ds))
	return nBkg, bkg, nil
}

func datasetName(ds *dataset.Dataset) string {
	if ds == nil {
		return ""
	}
	return ds.Name
}

func unique(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lists {
		for _, n := range l {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
