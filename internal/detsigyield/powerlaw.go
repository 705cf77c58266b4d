package detsigyield

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"gollh/domain/core"
	"gollh/domain/dataset"
	"gollh/internal"
	"gollh/internal/binning"
	"gollh/internal/flux"
	"gollh/internal/livetime"
	"gollh/internal/multiproc"
	"gollh/internal/parameters"
	"gollh/internal/source"
)

// MC fields read by the power law builder.
const (
	FieldTrueDec    = "true_dec"
	FieldTrueEnergy = "true_energy"
	FieldMCWeight   = "mcweight"
)

// PowerLawBuilder builds point-source yields for power law fluxes from
// Monte-Carlo events. For every grid value of gamma the yield per unit solid
// angle is histogrammed in sin(true_dec); evaluation interpolates linearly in
// sin(dec) and in gamma.
type PowerLawBuilder struct {
	gammaGrid     *parameters.Grid
	sinDecBinning *binning.Definition
	ncpu          int
}

// NewPowerLawBuilder creates a builder over the given gamma grid. A nil
// binning uses the dataset's "sin_dec" binning definition.
func NewPowerLawBuilder(gammaGrid *parameters.Grid, sinDecBinning *binning.Definition, ncpu int) (*PowerLawBuilder, error) {
	if gammaGrid == nil || gammaGrid.Name() != "gamma" {
		return nil, core.NewValidationError("gamma grid", "a grid named \"gamma\" is required")
	}
	if ncpu < 1 {
		ncpu = 1
	}
	return &PowerLawBuilder{gammaGrid: gammaGrid, sinDecBinning: sinDecBinning, ncpu: ncpu}, nil
}

// ConstructDetSigYield histograms the MC for every gamma grid point.
func (b *PowerLawBuilder) ConstructDetSigYield(ds *dataset.Dataset, data *dataset.Data, fm flux.Model, lt livetime.Provider) (DetSigYield, error) {
	base, err := NewBase([]string{"gamma"}, ds, fm, lt)
	if err != nil {
		return nil, err
	}
	pl, ok := fm.(*flux.PowerLaw)
	if !ok {
		return nil, core.NewValidationError("flux model", fmt.Sprintf("power law builder requires *flux.PowerLaw, got %T", fm))
	}
	if data == nil || data.MC == nil {
		return nil, core.NewValidationError("dataset data", "monte-carlo events are required")
	}

	sinDecBinning := b.sinDecBinning
	if sinDecBinning == nil {
		if sinDecBinning, err = ds.BinningDefinition("sin_dec"); err != nil {
			return nil, err
		}
	}
	if sinDecBinning.NBins() < 2 {
		return nil, core.NewValidationError("sin_dec binning", "at least two bins are required")
	}

	trueDec, err := data.MC.Float64(FieldTrueDec)
	if err != nil {
		return nil, err
	}
	trueEnergy, err := data.MC.Float64(FieldTrueEnergy)
	if err != nil {
		return nil, err
	}
	mcWeight, err := data.MC.Float64(FieldMCWeight)
	if err != nil {
		return nil, err
	}
	sinTrueDec := make([]float64, len(trueDec))
	for i, d := range trueDec {
		sinTrueDec[i] = math.Sin(d)
	}

	ltSec := base.LivetimeSeconds()
	centers := sinDecBinning.BinCenters()
	solidAngle := sinDecBinning.BinWidths()
	floats.Scale(2*math.Pi, solidAngle)

	internal.DefaultLogger.Debug("[DetSigYield] building power law yields for dataset %q over %d gamma values", ds.Name, b.gammaGrid.Len())

	splines, err := multiproc.Parallelize(context.Background(), b.ncpu, b.gammaGrid.Values(),
		func(_ context.Context, gamma float64) (interp.PiecewiseLinear, error) {
			var spl interp.PiecewiseLinear
			model, err := pl.WithParams(map[string]float64{"gamma": gamma})
			if err != nil {
				return spl, err
			}
			h := make([]float64, sinDecBinning.NBins())
			for i, sd := range sinTrueDec {
				if idx := sinDecBinning.Digitize(sd); idx >= 0 {
					h[idx] += mcWeight[i] * model.Evaluate(trueEnergy[i]) * ltSec
				}
			}
			floats.Div(h, solidAngle)
			if err := spl.Fit(centers, h); err != nil {
				return spl, err
			}
			return spl, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build power law yields for dataset %q: %w", ds.Name, err)
	}

	return &powerLawDetSigYield{Base: base, gammaGrid: b.gammaGrid, splines: splines}, nil
}

type powerLawDetSigYield struct {
	Base
	gammaGrid *parameters.Grid
	splines   []interp.PiecewiseLinear
}

// Evaluate interpolates the yield of every source at its gamma value. The
// gradient is the slope in gamma between the enclosing grid points.
func (y *powerLawDetSigYield) Evaluate(srcs source.Array, params *parameters.SrcParamsArray) ([]float64, map[int][]float64, error) {
	if err := y.AssertCallArgs(srcs, params); err != nil {
		return nil, nil, err
	}
	gammas, _ := params.Values("gamma")
	gpidx, _ := params.GlobalIndices("gamma")

	n := srcs.Len()
	yields := make([]float64, n)
	grads := make(map[int][]float64)
	for k := 0; k < n; k++ {
		lo, hi, t, err := y.gammaGrid.Bracket(gammas[k])
		if err != nil {
			return nil, nil, err
		}
		y0 := y.splines[lo].Predict(srcs.SinDec[k])
		y1 := y.splines[hi].Predict(srcs.SinDec[k])
		yields[k] = y0 + t*(y1-y0)
		if gpidx[k] < 0 {
			continue
		}
		g, ok := grads[gpidx[k]]
		if !ok {
			g = make([]float64, n)
			grads[gpidx[k]] = g
		}
		g[k] = (y1 - y0) / y.gammaGrid.Delta()
	}
	return yields, grads, nil
}
