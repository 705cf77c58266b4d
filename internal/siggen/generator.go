// Package siggen injects simulated signal events for a set of point sources.
package siggen

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"gollh/domain/core"
	"gollh/internal"
	"gollh/internal/events"
	"gollh/internal/livetime"
	"gollh/internal/source"
	"gollh/internal/sourcehypo"
	"gollh/ports"
)

// Output fields of generated signal events.
const (
	FieldRA        = "ra"
	FieldDec       = "dec"
	FieldSinDec    = "sin_dec"
	FieldLogEnergy = "log_energy"
	FieldAngErr    = "ang_err"
	FieldTime      = "time"
	FieldSrcIdx    = "src_idx"
)

// Options configures a Generator.
type Options struct {
	EnergyMin   float64 `validate:"gt=0"`
	EnergyMax   float64 `validate:"gtfield=EnergyMin"`
	MaxAttempts int     `validate:"min=1"`
	// Livetime, when set, draws detection times uniformly within uptime.
	Livetime *livetime.Livetime
}

// Generator draws signal events from the flux models of the source
// hypothesis groups.
type Generator struct {
	shgMgr  *sourcehypo.Manager
	smearer EventSmearer
	opts    Options
	log     *internal.Logger

	srcs    []*source.PointLike
	fluxIdx []int
	weights []float64
}

func NewGenerator(shgMgr *sourcehypo.Manager, smearer EventSmearer, opts Options) (*Generator, error) {
	if smearer == nil {
		return nil, core.NewValidationError("signal generator", "event smearer is required")
	}
	if err := validator.New().Struct(opts); err != nil {
		return nil, core.NewValidationError("signal generator options", err.Error())
	}
	g := &Generator{
		smearer: smearer,
		opts:    opts,
		log:     internal.DefaultLogger.WithComponent("SigGen"),
	}
	if err := g.ChangeSourceHypoGroupManager(shgMgr); err != nil {
		return nil, err
	}
	return g, nil
}

// ChangeSourceHypoGroupManager rebinds the generator to new sources.
func (g *Generator) ChangeSourceHypoGroupManager(shgMgr *sourcehypo.Manager) error {
	if shgMgr == nil || shgMgr.NSources() == 0 {
		return core.NewValidationError("signal generator", "at least one source is required")
	}
	g.shgMgr = shgMgr
	g.srcs = g.srcs[:0]
	g.fluxIdx = g.fluxIdx[:0]
	g.weights = g.weights[:0]
	for gi, grp := range shgMgr.Groups() {
		for _, s := range grp.Sources {
			g.srcs = append(g.srcs, s)
			g.fluxIdx = append(g.fluxIdx, gi)
			g.weights = append(g.weights, s.Weight)
		}
	}
	return nil
}

// GenerateSignalEvents returns n valid signal events. Invalid smeared events
// are redrawn; after MaxAttempts rounds without reaching n the generation
// fails with ErrInsufficientValidFraction.
func (g *Generator) GenerateSignalEvents(rss ports.RandomState, n int) (*events.Table, error) {
	if n < 0 {
		return nil, core.NewValidationError("signal events", "count must not be negative")
	}
	srcIdx, err := rss.Choice(len(g.srcs), n, g.weights, true)
	if err != nil {
		return nil, fmt.Errorf("distributing signal events over sources: %w", err)
	}
	perSrc := make([]int, len(g.srcs))
	for _, i := range srcIdx {
		perSrc[i]++
	}

	out := newSignalColumns(n)
	groups := g.shgMgr.Groups()
	for i, want := range perSrc {
		if want == 0 {
			continue
		}
		fm := groups[g.fluxIdx[i]].FluxModel
		got, attempts := 0, 0
		for got < want {
			if attempts == g.opts.MaxAttempts {
				return nil, fmt.Errorf("%w: source %q got %d of %d valid events after %d attempts",
					core.ErrInsufficientValidFraction, g.srcs[i].Name, got, want, attempts)
			}
			attempts++
			need := want - got
			u := rss.Uniform(0, 1, need)
			trueE := make([]float64, need)
			for k := range u {
				trueE[k] = fm.InvNormedCDF(u[k], g.opts.EnergyMin, g.opts.EnergyMax)
			}
			sm, err := g.smearer.Smear(rss, trueE)
			if err != nil {
				return nil, fmt.Errorf("smearing signal events: %w", err)
			}
			phi := rss.Uniform(0, 2*math.Pi, need)
			ra, dec := source.PsiToDecAndRA(g.srcs[i].RA, g.srcs[i].Dec, sm.Psi, phi)
			for k := 0; k < need; k++ {
				if !sm.Valid[k] {
					continue
				}
				out.add(ra[k], dec[k], sm.LogEnergy[k], sm.AngErr[k], int64(i))
				got++
			}
		}
		if attempts > 1 {
			g.log.Debug("source %q needed %d attempts for %d signal events", g.srcs[i].Name, attempts, want)
		}
	}

	if g.opts.Livetime != nil {
		out.time = g.opts.Livetime.MJDsFromUniform(rss.Uniform(0, 1, n))
	}
	return out.table()
}

type signalColumns struct {
	ra, dec, sinDec, logE, angErr, time []float64
	srcIdx                              []int64
}

func newSignalColumns(n int) *signalColumns {
	return &signalColumns{
		ra:     make([]float64, 0, n),
		dec:    make([]float64, 0, n),
		sinDec: make([]float64, 0, n),
		logE:   make([]float64, 0, n),
		angErr: make([]float64, 0, n),
		time:   make([]float64, n),
		srcIdx: make([]int64, 0, n),
	}
}

func (c *signalColumns) add(ra, dec, logE, angErr float64, src int64) {
	c.ra = append(c.ra, ra)
	c.dec = append(c.dec, dec)
	c.sinDec = append(c.sinDec, math.Sin(dec))
	c.logE = append(c.logE, logE)
	c.angErr = append(c.angErr, angErr)
	c.srcIdx = append(c.srcIdx, src)
}

func (c *signalColumns) table() (*events.Table, error) {
	return events.FromColumns(map[string]events.Column{
		FieldRA:        events.Float64Column(c.ra),
		FieldDec:       events.Float64Column(c.dec),
		FieldSinDec:    events.Float64Column(c.sinDec),
		FieldLogEnergy: events.Float64Column(c.logE),
		FieldAngErr:    events.Float64Column(c.angErr),
		FieldTime:      events.Float64Column(c.time),
		FieldSrcIdx:    events.Int64Column(c.srcIdx),
	})
}
