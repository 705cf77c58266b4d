package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"gollh/adapters/arrowio"
	"gollh/adapters/excel"
	"gollh/adapters/metrics"
	"gollh/adapters/postgres"
	"gollh/domain/dataset"
	"gollh/domain/run"
	"gollh/internal/bkggen"
	"gollh/internal/events"
	"gollh/internal/parameters"
	"gollh/internal/random"
	"gollh/internal/scrambling"
	"gollh/internal/siggen"
	"gollh/internal/sourcehypo"
	"gollh/internal/timing"
	"gollh/internal/trials"
	"gollh/ports"
)

// trialFields are the event fields a trial keeps from both background and signal.
var trialFields = []string{"ra", "dec", "ang_err", "time"}

type bkgTrialsOptions struct {
	toy         toySample
	nTrials     int
	seed        uint64
	meanNSig    []float64
	gamma       float64
	catalogPath string
	raDeg       float64
	decDeg      float64
	decBandDeg  float64
	xlsxPath    string
	metricsPath string
	eventsPath  string
	flare       string
	save        bool
}

func newBkgTrialsCmd(root *rootOptions) *cobra.Command {
	opts := bkgTrialsOptions{toy: defaultToySample()}

	cmd := &cobra.Command{
		Use:   "bkg-trials",
		Short: "Generate pseudo-experiment trials from a toy MC sample",
		Long: `Generate background (and optionally signal injected) trials from a toy
Monte-Carlo sample, fit the number of signal events with a spatial likelihood
and summarize the test statistic distribution.

Example: gollh-cli bkg-trials --n-trials 1000 --mean-nsig 0,5,10 --xlsx trials.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBkgTrials(cmd.Context(), cmd.OutOrStdout(), root, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.nTrials, "n-trials", 100, "Trials per mean number of signal events")
	f.Uint64Var(&opts.seed, "seed", 1, "Random seed for deterministic operations")
	f.Float64SliceVar(&opts.meanNSig, "mean-nsig", []float64{0}, "Mean numbers of injected signal events")
	f.Float64Var(&opts.gamma, "gamma", 2, "Spectral index of the signal flux")
	f.StringVar(&opts.catalogPath, "catalog", "", "JSON source catalog file or URL")
	f.Float64Var(&opts.raDeg, "ra", 77.36, "Source right ascension in degrees when no catalog is given")
	f.Float64Var(&opts.decDeg, "dec", 5.69, "Source declination in degrees when no catalog is given")
	f.Float64Var(&opts.decBandDeg, "dec-band", 0, "Pre-select MC events within this declination band in degrees (0 disables)")
	f.IntVar(&opts.toy.NExp, "n-exp", opts.toy.NExp, "Experimental events of the toy sample")
	f.IntVar(&opts.toy.NMC, "n-mc", opts.toy.NMC, "MC events of the toy sample")
	f.StringVar(&opts.xlsxPath, "xlsx", "", "Write the trials to this Excel workbook")
	f.StringVar(&opts.metricsPath, "metrics-out", "", "Write prometheus metrics to this textfile")
	f.StringVar(&opts.eventsPath, "events-out", "", "Write one background sample to this Arrow IPC file")
	f.StringVar(&opts.flare, "flare", "", "Fit a flare hypothesis, box:start:end or gauss:mu:sigma in MJD")
	f.BoolVar(&opts.save, "save", false, "Store the run in the database given by DATABASE_URL")
	return cmd
}

func runBkgTrials(ctx context.Context, out io.Writer, root *rootOptions, opts bkgTrialsOptions) error {
	cfg, log := root.cfg, root.log
	if opts.nTrials < 1 {
		return fmt.Errorf("--n-trials must be at least 1")
	}
	if len(opts.meanNSig) == 0 {
		return fmt.Errorf("--mean-nsig needs at least one value")
	}

	tl := timing.NewTimeLord()
	base := random.NewService(opts.seed)

	var (
		ds   *dataset.Dataset
		data *dataset.Data
	)
	err := timing.Time(tl, "Build toy sample.", func() error {
		var err error
		ds, data, err = opts.toy.build(base.Stream("toy"))
		return err
	})
	if err != nil {
		return fmt.Errorf("building toy sample: %w", err)
	}
	if err := data.AssertRequiredFields(cfg.Dataset.RequiredExpFieldNames, cfg.Dataset.RequiredMCFieldNames); err != nil {
		return err
	}

	srcs, err := loadSources(ctx, opts.catalogPath, opts.raDeg, opts.decDeg)
	if err != nil {
		return err
	}
	gammaGrid, err := parameters.NewLinearGrid("gamma", 1, 4, 0.25)
	if err != nil {
		return err
	}
	shgMgr, err := newPowerLawManager(srcs, opts.gamma, gammaGrid, cfg.Analysis.NCPU)
	if err != nil {
		return err
	}

	bkgGen, err := newBackgroundGenerator(ds, data, shgMgr, cfg.Dataset.RequiredExpFieldNames, opts.decBandDeg)
	if err != nil {
		return err
	}
	smearer, err := siggen.NewGaussianSmearer(0.2, opts.toy.AngErr, math.Log10(opts.toy.EMin)-1, math.Log10(opts.toy.EMax)+1)
	if err != nil {
		return err
	}
	sigGen, err := siggen.NewGenerator(shgMgr, smearer, siggen.Options{
		EnergyMin:   opts.toy.EMin,
		EnergyMax:   opts.toy.EMax,
		MaxAttempts: cfg.Analysis.MaxSignalGenAttempts,
		Livetime:    data.Livetime,
	})
	if err != nil {
		return err
	}

	kind := run.KindBackground
	for _, m := range opts.meanNSig {
		if m < 0 {
			return fmt.Errorf("--mean-nsig values must not be negative")
		}
		if m > 0 {
			kind = run.KindSignal
		}
	}
	rn := run.NewRun("bkg-trials", kind, opts.nTrials*len(opts.meanNSig), []string{ds.Name},
		map[string]float64{"gamma": opts.gamma}, opts.seed, version)

	reg, tm, err := metrics.Register(tl)
	if err != nil {
		return err
	}

	runner, err := trials.NewRunner(cfg.Analysis.NCPU, opts.seed, tl)
	if err != nil {
		return err
	}
	sOverBEval, err := newSpatialSOverB(shgMgr, cfg.Analysis.IndexFieldName, cfg.Analysis.NCPU)
	if err != nil {
		return err
	}
	if opts.flare != "" {
		if err := sOverBEval.withFlare(opts.flare, data.Livetime); err != nil {
			return err
		}
	}
	results, err := runner.Run(ctx, rn, func(ctx context.Context, rss *random.Service, res *run.Result) error {
		res.MeanNSig = opts.meanNSig[res.Index/opts.nTrials]
		res.Params = map[string]float64{"gamma": opts.gamma}

		nBkg, evts, err := bkgGen.GenerateBackgroundEvents(rss, bkggen.UseCachedMean, true, tl)
		if err != nil {
			return err
		}
		evts = evts.Copy(trialFields...)

		nSig := 0
		if res.MeanNSig > 0 {
			nSig = rss.Poisson(res.MeanNSig)
			var sig *events.Table
			err := timing.Time(tl, "Generate signal events.", func() error {
				var err error
				sig, err = sigGen.GenerateSignalEvents(rss, nSig)
				return err
			})
			if err != nil {
				return err
			}
			if err := evts.Append(sig.Copy(trialFields...)); err != nil {
				return err
			}
		}

		sOverB, err := sOverBEval.Evaluate(evts)
		if err != nil {
			return err
		}
		ns, ts, err := trials.FitNs(sOverB, nBkg+nSig)
		if err != nil {
			return err
		}
		res.NBkg, res.NSig, res.NS, res.TS = nBkg, nSig, ns, ts

		tm.Trials.WithLabelValues(string(rn.Kind)).Inc()
		tm.Events.WithLabelValues("background").Add(float64(nBkg))
		tm.Events.WithLabelValues("signal").Add(float64(nSig))
		tm.TS.Observe(ts)
		return nil
	})
	if err != nil {
		return err
	}

	var summary []trials.NsSummary
	if kind == run.KindSignal {
		if summary, err = trials.SummarizeNsFit(results); err != nil {
			return err
		}
	}
	if err := printTrialSummary(out, results, summary); err != nil {
		return err
	}
	log.Debug("task timings:\n%s", tl)

	if opts.eventsPath != "" {
		_, sample, err := bkgGen.GenerateBackgroundEvents(base.Stream("sample"), bkggen.UseCachedMean, true, tl)
		if err != nil {
			return err
		}
		if err := arrowio.WriteFile(opts.eventsPath, sample); err != nil {
			return err
		}
		log.Info("wrote %d background events to %s", sample.Len(), opts.eventsPath)
	}
	if opts.xlsxPath != "" {
		wb := excel.TrialWorkbook{Run: rn, Results: results, Summary: summary, Timing: tl}
		if err := excel.WriteTrialWorkbook(opts.xlsxPath, wb); err != nil {
			return err
		}
		log.Info("wrote %d trials to %s", len(results), opts.xlsxPath)
	}
	if opts.metricsPath != "" || cfg.Metrics.Enabled {
		path := opts.metricsPath
		if path == "" {
			path = "gollh.prom"
		}
		if err := metrics.WriteTextfile(path, reg); err != nil {
			return err
		}
	}
	if opts.save {
		if err := saveRun(ctx, cfg.Database.URL, rn, results); err != nil {
			return err
		}
		log.Info("stored run %s", rn.ID)
	}
	return nil
}

// newBackgroundGenerator samples background from the MC weights, scrambled
// uniformly in right ascension.
func newBackgroundGenerator(ds *dataset.Dataset, data *dataset.Data, shgMgr *sourcehypo.Manager, requiredExp []string, decBandDeg float64) (*bkggen.Generator, error) {
	scrambler, err := scrambling.NewScrambler(scrambling.NewUniformRA())
	if err != nil {
		return nil, err
	}
	opts := bkggen.MCDataSamplingOptions{
		GetMean:           mcWeightSum,
		Scrambler:         scrambler,
		KeepMCFieldNames:  []string{"mcweight"},
		RequiredExpFields: requiredExp,
	}
	if decBandDeg > 0 {
		sel, err := bkggen.NewDecBandSelection(shgMgr, decBandDeg*deg)
		if err != nil {
			return nil, err
		}
		opts.PreSelection = sel
	}
	method, err := bkggen.NewMCDataSampling(mcWeightProb, opts)
	if err != nil {
		return nil, err
	}
	return bkggen.NewGenerator(method, ds, data)
}

func mcWeightProb(_ *dataset.Dataset, _ *dataset.Data, mc *events.Table) ([]float64, error) {
	w, err := mc.Float64("mcweight")
	if err != nil {
		return nil, err
	}
	p := append([]float64(nil), w...)
	floats.Scale(1/floats.Sum(p), p)
	return p, nil
}

func mcWeightSum(_ *dataset.Dataset, _ *dataset.Data, mc *events.Table) (float64, error) {
	w, err := mc.Float64("mcweight")
	if err != nil {
		return 0, err
	}
	return floats.Sum(w), nil
}

func printTrialSummary(out io.Writer, results []run.Result, summary []trials.NsSummary) error {
	mean, std, err := trials.TSDistribution(results)
	if err != nil {
		return err
	}
	median, err := trials.BkgTSPercentile(results, 50)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "trials\t%d\n", len(results))
	fmt.Fprintf(tw, "TS mean\t%.4f\n", mean)
	fmt.Fprintf(tw, "TS std\t%.4f\n", std)
	fmt.Fprintf(tw, "TS median\t%.4f\n", median)
	fmt.Fprintf(tw, "P(TS > 0)\t%.4f\n", trials.TSFractionAbove(results, 0))
	if len(summary) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "mean_n_sig\ttrials\tns_median\tns_15.9%\tns_84.1%")
		for _, s := range summary {
			fmt.Fprintf(tw, "%g\t%d\t%.3f\t%.3f\t%.3f\n", s.MeanNSig, s.NTrials, s.Median, s.Lower, s.Upper)
		}
	}
	return tw.Flush()
}

func saveRun(ctx context.Context, url string, rn *run.Run, results []run.Result) error {
	if url == "" {
		return fmt.Errorf("--save requires DATABASE_URL")
	}
	db, err := postgres.Connect(url)
	if err != nil {
		return err
	}
	defer db.Close()

	store := postgres.NewTrialRepository(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	var repo ports.TrialRepository = store
	if err := repo.SaveRun(ctx, rn); err != nil {
		return err
	}
	return repo.SaveResults(ctx, rn.ID, results)
}
