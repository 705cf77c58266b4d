package ports

import (
	"context"

	"gollh/domain/core"
	"gollh/domain/run"
)

// TrialRepository persists trial runs and their results.
type TrialRepository interface {
	// SaveRun stores the run description.
	SaveRun(ctx context.Context, r *run.Run) error

	// SaveResults stores the results of a run in one transaction.
	SaveResults(ctx context.Context, runID core.TrialID, results []run.Result) error

	// GetRun loads a run by id.
	GetRun(ctx context.Context, runID core.TrialID) (*run.Run, error)

	// ListResults returns the results of a run in trial order.
	ListResults(ctx context.Context, runID core.TrialID) ([]run.Result, error)
}
