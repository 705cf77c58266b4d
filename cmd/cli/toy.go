package main

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"gollh/domain/dataset"
	"gollh/internal/binning"
	"gollh/internal/events"
	"gollh/internal/flux"
	"gollh/internal/random"
	"gollh/internal/scrambling"
	"gollh/internal/siggen"
	"gollh/internal/source"
)

// toySample describes a synthetic single-dataset detector sample. MC events
// are generated with an E^-GenGamma spectrum isotropically over the sky and
// weighted to an E^-BkgGamma background of NExp expected events.
type toySample struct {
	Name        string
	NExp        int
	NMC         int
	GenGamma    float64
	BkgGamma    float64
	EMin        float64
	EMax        float64
	AngErr      float64
	StartMJD    float64
	Days        float64
	SinDecNBins int
}

func defaultToySample() toySample {
	return toySample{
		Name:        "toy",
		NExp:        1000,
		NMC:         20000,
		GenGamma:    2,
		BkgGamma:    3.7,
		EMin:        1e2,
		EMax:        1e7,
		AngErr:      0.01,
		StartMJD:    58000,
		Days:        365,
		SinDecNBins: 20,
	}
}

func (o toySample) validate() error {
	switch {
	case o.NExp < 1 || o.NMC < 1:
		return fmt.Errorf("toy sample needs at least one exp and one MC event")
	case o.NMC < o.NExp:
		return fmt.Errorf("toy sample needs at least as many MC (%d) as exp (%d) events", o.NMC, o.NExp)
	case !(o.EMax > o.EMin) || !(o.EMin > 0):
		return fmt.Errorf("toy sample energy range [%g, %g] is invalid", o.EMin, o.EMax)
	case !(o.Days > 0):
		return fmt.Errorf("toy sample livetime must be positive")
	}
	return nil
}

// build generates the MC, draws the experimental sample from it with the
// background weights and scrambles it in right ascension.
func (o toySample) build(rss *random.Service) (*dataset.Dataset, *dataset.Data, error) {
	if err := o.validate(); err != nil {
		return nil, nil, err
	}
	ds := dataset.New(o.Name, "")
	b, err := binning.NewLinearDefinition("sin_dec", -1, 1, o.SinDecNBins)
	if err != nil {
		return nil, nil, err
	}
	if err := ds.AddBinningDefinition(b); err != nil {
		return nil, nil, err
	}

	mc, err := o.monteCarlo(rss)
	if err != nil {
		return nil, nil, err
	}

	weights, err := mc.Float64("mcweight")
	if err != nil {
		return nil, nil, err
	}
	idx, err := rss.Choice(mc.Len(), o.NExp, weights, false)
	if err != nil {
		return nil, nil, fmt.Errorf("drawing experimental events: %w", err)
	}
	exp := mc.Take(idx)
	exp.TidyUp([]string{"run", "ra", "dec", "ang_err", "time", "log_energy"})
	scrambler, err := scrambling.NewScrambler(scrambling.NewUniformRA())
	if err != nil {
		return nil, nil, err
	}
	if exp, err = scrambler.ScrambleData(rss, exp, false); err != nil {
		return nil, nil, err
	}

	grl, err := events.FromColumns(map[string]events.Column{
		"start": events.Float64Column{o.StartMJD},
		"stop":  events.Float64Column{o.StartMJD + o.Days},
	})
	if err != nil {
		return nil, nil, err
	}
	data, err := dataset.NewData(exp, mc, grl)
	if err != nil {
		return nil, nil, err
	}
	return ds, data, nil
}

func (o toySample) monteCarlo(rss *random.Service) (*events.Table, error) {
	gen, err := flux.NewPowerLaw(1, 1e3, o.GenGamma)
	if err != nil {
		return nil, err
	}
	smearer, err := siggen.NewGaussianSmearer(0.2, o.AngErr, math.Log10(o.EMin)-1, math.Log10(o.EMax)+1)
	if err != nil {
		return nil, err
	}

	sinDec := rss.Uniform(-1, 1, o.NMC)
	trueRA := rss.Uniform(0, 2*math.Pi, o.NMC)
	trueE := make([]float64, o.NMC)
	for i, u := range rss.Uniform(0, 1, o.NMC) {
		trueE[i] = gen.InvNormedCDF(u, o.EMin, o.EMax)
	}
	sm, err := smearer.Smear(rss, trueE)
	if err != nil {
		return nil, err
	}
	phi := rss.Uniform(0, 2*math.Pi, o.NMC)
	times := rss.Uniform(o.StartMJD, o.StartMJD+o.Days, o.NMC)

	var (
		run                      events.Int64Column
		ra, dec, angErr, t, logE events.Float64Column
		tRA, tDec, tE, weight    events.Float64Column
	)
	for i := 0; i < o.NMC; i++ {
		if !sm.Valid[i] {
			continue
		}
		d := math.Asin(sinDec[i])
		r, dd := source.PsiToDecAndRA(trueRA[i], d, sm.Psi[i:i+1], phi[i:i+1])
		run = append(run, 1)
		ra = append(ra, r[0])
		dec = append(dec, dd[0])
		angErr = append(angErr, sm.AngErr[i])
		t = append(t, times[i])
		logE = append(logE, sm.LogEnergy[i])
		tRA = append(tRA, trueRA[i])
		tDec = append(tDec, d)
		tE = append(tE, trueE[i])
		weight = append(weight, math.Pow(trueE[i]/1e3, o.GenGamma-o.BkgGamma))
	}
	if len(weight) < o.NExp {
		return nil, fmt.Errorf("only %d valid MC events for %d exp events", len(weight), o.NExp)
	}
	floats.Scale(float64(o.NExp)/floats.Sum(weight), weight)

	return events.FromColumns(map[string]events.Column{
		"run":         run,
		"ra":          ra,
		"dec":         dec,
		"ang_err":     angErr,
		"time":        t,
		"log_energy":  logE,
		"true_ra":     tRA,
		"true_dec":    tDec,
		"true_energy": tE,
		"mcweight":    weight,
	})
}
