package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"gollh/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// Step is one idempotent schema change.
type Step struct {
	Name string
	SQL  string
}

// MigrationRunner handles the trial store schema
type MigrationRunner struct {
	version string
	steps   []Step
}

var _ Migrator = (*MigrationRunner)(nil)

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.1.0",
		steps: []Step{
			{Name: "create trial_runs table", SQL: createTrialRunsTable},
			{Name: "create trial_results table", SQL: createTrialResultsTable},
			{Name: "add trial_runs code_version column", SQL: addCodeVersionColumn},
			{Name: "create indexes", SQL: createIndexes},
		},
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Steps returns the migration steps in execution order.
func (r *MigrationRunner) Steps() []Step {
	return append([]Step(nil), r.steps...)
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, s := range r.steps {
		if _, err := db.ExecContext(ctx, s.SQL); err != nil {
			return errors.Wrapf(errors.DatabaseError("migration step failed", err), "failed to %s", s.Name)
		}
	}
	return nil
}

const createTrialRunsTable = `
CREATE TABLE IF NOT EXISTS trial_runs (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	kind         TEXT NOT NULL,
	n_trials     INTEGER NOT NULL,
	params       JSONB NOT NULL DEFAULT '{}',
	fingerprint  JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
)`

const createTrialResultsTable = `
CREATE TABLE IF NOT EXISTS trial_results (
	trial_id     TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES trial_runs(id) ON DELETE CASCADE,
	trial_index  INTEGER NOT NULL,
	seed         BIGINT NOT NULL,
	mean_n_sig   DOUBLE PRECISION NOT NULL,
	n_sig        INTEGER NOT NULL,
	n_bkg        INTEGER NOT NULL,
	ts           DOUBLE PRECISION NOT NULL,
	ns           DOUBLE PRECISION NOT NULL,
	params       JSONB NOT NULL DEFAULT '{}',
	UNIQUE (run_id, trial_index)
)`

// code_version duplicates the fingerprint field so runs can be filtered by build.
const addCodeVersionColumn = `
ALTER TABLE trial_runs ADD COLUMN IF NOT EXISTS code_version TEXT NOT NULL DEFAULT ''`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_trial_results_run_mean ON trial_results(run_id, mean_n_sig);
CREATE INDEX IF NOT EXISTS idx_trial_runs_created_at ON trial_runs(created_at)`
