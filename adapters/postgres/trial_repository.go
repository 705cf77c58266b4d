package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gollh/domain/core"
	"gollh/domain/run"
	apperrors "gollh/internal/errors"
	"gollh/internal/migration"
	"gollh/ports"
)

var _ ports.TrialRepository = (*TrialRepository)(nil)

// TrialRepository stores trial runs in PostgreSQL.
type TrialRepository struct {
	db *sqlx.DB
}

// NewTrialRepository creates a new trial repository
func NewTrialRepository(db *sqlx.DB) *TrialRepository {
	return &TrialRepository{db: db}
}

// Connect opens a PostgreSQL connection.
func Connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to connect to database", err)
	}
	return db, nil
}

// EnsureSchema runs the trial store migrations.
func (r *TrialRepository) EnsureSchema(ctx context.Context) error {
	return migration.NewRunner().Run(ctx, r.db)
}

type runRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Kind        string    `db:"kind"`
	NTrials     int       `db:"n_trials"`
	Params      []byte    `db:"params"`
	Fingerprint []byte    `db:"fingerprint"`
	CodeVersion string    `db:"code_version"`
	CreatedAt   time.Time `db:"created_at"`
}

// resultRow stores the seed bit pattern as BIGINT.
type resultRow struct {
	TrialID  string  `db:"trial_id"`
	RunID    string  `db:"run_id"`
	Index    int     `db:"trial_index"`
	Seed     int64   `db:"seed"`
	MeanNSig float64 `db:"mean_n_sig"`
	NSig     int     `db:"n_sig"`
	NBkg     int     `db:"n_bkg"`
	TS       float64 `db:"ts"`
	NS       float64 `db:"ns"`
	Params   []byte  `db:"params"`
}

func toRunRow(r *run.Run) (runRow, error) {
	params, err := marshalParams(r.Params)
	if err != nil {
		return runRow{}, err
	}
	fp, err := json.Marshal(r.Fingerprint)
	if err != nil {
		return runRow{}, fmt.Errorf("failed to marshal fingerprint: %w", err)
	}
	return runRow{
		ID:          r.ID.String(),
		Name:        r.Name,
		Kind:        string(r.Kind),
		NTrials:     r.NTrials,
		Params:      params,
		Fingerprint: fp,
		CodeVersion: r.Fingerprint.CodeVersion,
		CreatedAt:   r.CreatedAt,
	}, nil
}

func (row runRow) toRun() (*run.Run, error) {
	r := &run.Run{
		ID:        core.TrialID(row.ID),
		Name:      row.Name,
		Kind:      run.Kind(row.Kind),
		NTrials:   row.NTrials,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal(row.Params, &r.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run params: %w", err)
	}
	if err := json.Unmarshal(row.Fingerprint, &r.Fingerprint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run fingerprint: %w", err)
	}
	return r, nil
}

func toResultRow(res run.Result) (resultRow, error) {
	params, err := marshalParams(res.Params)
	if err != nil {
		return resultRow{}, err
	}
	return resultRow{
		TrialID:  res.TrialID.String(),
		RunID:    res.RunID.String(),
		Index:    res.Index,
		Seed:     int64(res.Seed),
		MeanNSig: res.MeanNSig,
		NSig:     res.NSig,
		NBkg:     res.NBkg,
		TS:       res.TS,
		NS:       res.NS,
		Params:   params,
	}, nil
}

func (row resultRow) toResult() (run.Result, error) {
	res := run.Result{
		TrialID:  core.TrialID(row.TrialID),
		RunID:    core.TrialID(row.RunID),
		Index:    row.Index,
		Seed:     uint64(row.Seed),
		MeanNSig: row.MeanNSig,
		NSig:     row.NSig,
		NBkg:     row.NBkg,
		TS:       row.TS,
		NS:       row.NS,
	}
	if len(row.Params) > 0 {
		if err := json.Unmarshal(row.Params, &res.Params); err != nil {
			return run.Result{}, fmt.Errorf("failed to unmarshal trial params: %w", err)
		}
	}
	return res, nil
}

func marshalParams(p map[string]float64) ([]byte, error) {
	if p == nil {
		p = map[string]float64{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return b, nil
}

// SaveRun stores the run description.
func (r *TrialRepository) SaveRun(ctx context.Context, rn *run.Run) error {
	if err := rn.Validate(); err != nil {
		return err
	}
	row, err := toRunRow(rn)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO trial_runs (id, name, kind, n_trials, params, fingerprint, code_version, created_at)
		VALUES (:id, :name, :kind, :n_trials, :params, :fingerprint, :code_version, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			n_trials = EXCLUDED.n_trials,
			params = EXCLUDED.params,
			fingerprint = EXCLUDED.fingerprint,
			code_version = EXCLUDED.code_version`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return apperrors.DatabaseError("failed to save trial run", err)
	}
	return nil
}

// SaveResults stores the results of a run in one transaction.
func (r *TrialRepository) SaveResults(ctx context.Context, runID core.TrialID, results []run.Result) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO trial_results (
			trial_id, run_id, trial_index, seed, mean_n_sig, n_sig, n_bkg, ts, ns, params
		) VALUES (
			:trial_id, :run_id, :trial_index, :seed, :mean_n_sig, :n_sig, :n_bkg, :ts, :ns, :params
		)`
	for _, res := range results {
		if res.RunID != runID {
			return core.NewValidationError("trial result", fmt.Sprintf("trial %s belongs to run %s, not %s", res.TrialID, res.RunID, runID))
		}
		row, err := toResultRow(res)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return apperrors.DatabaseError(fmt.Sprintf("failed to insert trial %d", res.Index), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.DatabaseError("failed to commit trial results", err)
	}
	return nil
}

// GetRun loads a run by id.
func (r *TrialRepository) GetRun(ctx context.Context, runID core.TrialID) (*run.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, name, kind, n_trials, params, fingerprint, code_version, created_at
		FROM trial_runs WHERE id = $1`, runID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError("trial run", runID.String())
		}
		return nil, apperrors.DatabaseError("failed to get trial run", err)
	}
	return row.toRun()
}

// ListResults returns the results of a run in trial order.
func (r *TrialRepository) ListResults(ctx context.Context, runID core.TrialID) ([]run.Result, error) {
	var rows []resultRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT trial_id, run_id, trial_index, seed, mean_n_sig, n_sig, n_bkg, ts, ns, params
		FROM trial_results
		WHERE run_id = $1
		ORDER BY trial_index ASC`, runID.String())
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list trial results", err)
	}
	out := make([]run.Result, 0, len(rows))
	for _, row := range rows {
		res, err := row.toResult()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}
