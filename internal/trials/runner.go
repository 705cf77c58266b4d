package trials

import (
	"context"
	"fmt"

	"gollh/domain/core"
	"gollh/domain/run"
	"gollh/internal"
	"gollh/internal/multiproc"
	"gollh/internal/random"
	"gollh/internal/timing"
)

// TrialFunc fills in the outcome of one trial. Each trial gets its own
// random stream so results do not depend on scheduling.
type TrialFunc func(ctx context.Context, rss *random.Service, res *run.Result) error

// Runner executes the trials of a run on a bounded number of workers.
type Runner struct {
	ncpu int
	seed uint64
	tl   *timing.TimeLord
	log  *internal.Logger
}

func NewRunner(ncpu int, seed uint64, tl *timing.TimeLord) (*Runner, error) {
	if ncpu < 1 {
		return nil, core.NewValidationError("trial runner", "ncpu must be at least 1")
	}
	return &Runner{
		ncpu: ncpu,
		seed: seed,
		tl:   tl,
		log:  internal.DefaultLogger.WithComponent("Trials"),
	}, nil
}

// Run executes rn.NTrials trials and returns the results in trial order.
func (r *Runner) Run(ctx context.Context, rn *run.Run, fn TrialFunc) ([]run.Result, error) {
	if err := rn.Validate(); err != nil {
		return nil, err
	}
	base := random.NewService(r.seed)
	idx := make([]int, rn.NTrials)
	for i := range idx {
		idx[i] = i
	}

	log := r.log.With("run", rn.ID)
	log.Info("running %d %s trials for %q on %d workers", rn.NTrials, rn.Kind, rn.Name, r.ncpu)
	results, err := multiproc.Parallelize(ctx, r.ncpu, idx, func(ctx context.Context, i int) (run.Result, error) {
		rss := base.Stream(fmt.Sprintf("trial-%d", i))
		res := rn.NewResult(i, rss.Seed())
		err := timing.Time(r.tl, "Run trial.", func() error {
			return fn(ctx, rss, &res)
		})
		if err != nil {
			return res, fmt.Errorf("trial %d: %w", i, err)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug("finished %d trials for %q", len(results), rn.Name)
	return results, nil
}
