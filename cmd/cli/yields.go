package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gollh/domain/dataset"
	"gollh/internal/parameters"
	"gollh/internal/random"
	"gollh/internal/services"
)

type yieldsOptions struct {
	toy         toySample
	seed        uint64
	gamma       float64
	catalogPath string
	raDeg       float64
	decDeg      float64
}

func newYieldsCmd(root *rootOptions) *cobra.Command {
	opts := yieldsOptions{toy: defaultToySample()}

	cmd := &cobra.Command{
		Use:   "yields",
		Short: "Evaluate power law detector signal yields for a source catalog",
		Long: `Evaluate the detector signal yield of every catalog source for an E^-gamma
flux on a toy MC sample, together with its derivative in gamma.

Example: gollh-cli yields --catalog sources.json --gamma 2.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runYields(cmd.Context(), cmd.OutOrStdout(), root, opts)
		},
	}
	f := cmd.Flags()
	f.Uint64Var(&opts.seed, "seed", 1, "Random seed of the toy sample")
	f.Float64Var(&opts.gamma, "gamma", 2, "Spectral index")
	f.StringVar(&opts.catalogPath, "catalog", "", "JSON source catalog file or URL")
	f.Float64Var(&opts.raDeg, "ra", 77.36, "Source right ascension in degrees when no catalog is given")
	f.Float64Var(&opts.decDeg, "dec", 5.69, "Source declination in degrees when no catalog is given")
	f.IntVar(&opts.toy.NMC, "n-mc", opts.toy.NMC, "MC events of the toy sample")
	return cmd
}

func runYields(ctx context.Context, out io.Writer, root *rootOptions, opts yieldsOptions) error {
	cfg := root.cfg
	ds, data, err := opts.toy.build(random.NewService(opts.seed).Stream("toy"))
	if err != nil {
		return fmt.Errorf("building toy sample: %w", err)
	}
	srcs, err := loadSources(ctx, opts.catalogPath, opts.raDeg, opts.decDeg)
	if err != nil {
		return err
	}
	gammaGrid, err := parameters.NewLinearGrid("gamma", 1, 4, 0.25)
	if err != nil {
		return err
	}
	if !gammaGrid.Contains(opts.gamma) {
		return fmt.Errorf("--gamma %g outside the yield grid %s", opts.gamma, gammaGrid)
	}
	shgMgr, err := newPowerLawManager(srcs, opts.gamma, gammaGrid, cfg.Analysis.NCPU)
	if err != nil {
		return err
	}

	dsys, err := services.NewDetSigYieldService(shgMgr, []*dataset.Dataset{ds}, []*dataset.Data{data})
	if err != nil {
		return err
	}
	weights, err := services.NewSrcDetSigYieldWeightsService(dsys)
	if err != nil {
		return err
	}

	params := parameters.NewSrcParamsArray(shgMgr.NSources())
	gpidx := make([]int, shgMgr.NSources())
	values := make([]float64, shgMgr.NSources())
	for i := range values {
		values[i] = opts.gamma
	}
	if err := params.Set("gamma", values, gpidx); err != nil {
		return err
	}
	if err := weights.Calculate(params); err != nil {
		return err
	}
	aJK, grads := weights.GetWeights()

	total := 0.0
	for k := 0; k < shgMgr.NSources(); k++ {
		total += aJK.At(0, k)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "source\tra_deg\tdec_deg\tyield\td_yield/d_gamma\tfraction")
	for k, s := range shgMgr.Sources() {
		grad := 0.0
		if g, ok := grads[0]; ok {
			grad = g.At(0, k)
		}
		frac := math.NaN()
		if total > 0 {
			frac = aJK.At(0, k) / total
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.4g\t%.4g\t%.4f\n", s.Name, s.RA/deg, s.Dec/deg, aJK.At(0, k), grad, frac)
	}
	return tw.Flush()
}
