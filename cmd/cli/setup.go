package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gollh/adapters/catalog"
	"gollh/internal/detsigyield"
	"gollh/internal/events"
	"gollh/internal/flux"
	"gollh/internal/livetime"
	"gollh/internal/parameters"
	"gollh/internal/pdf"
	"gollh/internal/source"
	"gollh/internal/sourcehypo"
	"gollh/internal/trialdata"
)

const deg = math.Pi / 180

// loadSources reads the catalog at path, which may be a file or an http(s)
// URL. Without a catalog a single source at (raDeg, decDeg) is used.
func loadSources(ctx context.Context, path string, raDeg, decDeg float64) ([]*source.PointLike, error) {
	if path == "" {
		src, err := source.NewPointLike("src", raDeg*deg, decDeg*deg, 1)
		if err != nil {
			return nil, err
		}
		return []*source.PointLike{src}, nil
	}
	r := catalog.NewReader()
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return r.Fetch(ctx, path)
	}
	return r.Load(path)
}

// newPowerLawManager puts all sources in one group with an E^-gamma flux and
// a power law yield builder over gammaGrid.
func newPowerLawManager(srcs []*source.PointLike, gamma float64, gammaGrid *parameters.Grid, ncpu int) (*sourcehypo.Manager, error) {
	fm, err := flux.NewPowerLaw(1, 1e3, gamma)
	if err != nil {
		return nil, err
	}
	builder, err := detsigyield.NewPowerLawBuilder(gammaGrid, nil, ncpu)
	if err != nil {
		return nil, err
	}
	grp, err := sourcehypo.NewGroup(srcs, fm, builder)
	if err != nil {
		return nil, err
	}
	return sourcehypo.NewManager(grp), nil
}

// nearestSourcePsi is the angular distance of every event to its closest source.
func nearestSourcePsi(tdm *trialdata.Manager, shgMgr *sourcehypo.Manager, _ map[string]float64) (events.Column, error) {
	ra, err := tdm.Events().Float64("ra")
	if err != nil {
		return nil, err
	}
	dec, err := tdm.Events().Float64("dec")
	if err != nil {
		return nil, err
	}
	srcs := shgMgr.Sources()
	psi := make(events.Float64Column, len(ra))
	for i := range ra {
		psi[i] = math.Pi
		for _, s := range srcs {
			psi[i] = min(psi[i], source.AngularSeparation(s.RA, s.Dec, ra[i], dec[i]))
		}
	}
	return psi, nil
}

// spatialSOverB evaluates the ratio of a Gaussian point-spread signal density
// around the nearest source to an isotropic background density, times the
// flare time ratio when one is set. It keeps one trial-data manager per
// worker and reuses it across trials.
type spatialSOverB struct {
	shgMgr *sourcehypo.Manager
	tdms   chan *trialdata.Manager

	// optional flare hypothesis against a background uniform in uptime
	timePDF      *pdf.TimePDF
	livetimeDays float64
}

func newSpatialSOverB(shgMgr *sourcehypo.Manager, indexField string, workers int) (*spatialSOverB, error) {
	if workers < 1 {
		workers = 1
	}
	e := &spatialSOverB{shgMgr: shgMgr, tdms: make(chan *trialdata.Manager, workers)}
	for i := 0; i < workers; i++ {
		tdm := trialdata.NewManager(indexField)
		if err := tdm.AddDataField("psi", trialdata.SourceOnly(), nearestSourcePsi); err != nil {
			return nil, err
		}
		e.tdms <- tdm
	}
	return e, nil
}

// Evaluate returns S/B for every event of tbl.
func (e *spatialSOverB) Evaluate(tbl *events.Table) ([]float64, error) {
	tdm := <-e.tdms
	defer func() { e.tdms <- tdm }()

	if err := tdm.InitializeForNewTrial(e.shgMgr, tbl); err != nil {
		return nil, err
	}
	sig, _, err := pdf.NewGaussianSpatialPDF().GetProb(tdm, nil)
	if err != nil {
		return nil, fmt.Errorf("evaluating signal density: %w", err)
	}
	for i := range sig {
		sig[i] *= 4 * math.Pi
	}
	if e.timePDF == nil {
		return sig, nil
	}
	tsig, _, err := e.timePDF.GetProb(tdm, nil)
	if err != nil {
		return nil, fmt.Errorf("evaluating flare density: %w", err)
	}
	for i := range sig {
		sig[i] *= tsig[i] * e.livetimeDays
	}
	return sig, nil
}

// withFlare parses "box:start:end" or "gauss:mu:sigma" (MJD) into a signal
// time PDF over lt.
func (e *spatialSOverB) withFlare(flare string, lt *livetime.Livetime) error {
	kind, rest, _ := strings.Cut(flare, ":")
	a, b, ok := strings.Cut(rest, ":")
	if !ok {
		return fmt.Errorf("invalid flare %q: expected box:start:end or gauss:mu:sigma", flare)
	}
	v, err := parseFloats([]string{a, b})
	if err != nil {
		return fmt.Errorf("flare %q: %w", flare, err)
	}
	var tp *pdf.TimePDF
	switch kind {
	case "box":
		tp, err = pdf.NewBoxTimePDF(lt, v[0], v[1])
	case "gauss":
		tp, err = pdf.NewGaussianTimePDF(lt, v[0], v[1])
	default:
		return fmt.Errorf("invalid flare %q: unknown shape %q", flare, kind)
	}
	if err != nil {
		return err
	}
	e.timePDF, e.livetimeDays = tp, lt.LivetimeDays()
	return nil
}
