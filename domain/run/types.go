// Package run describes batches of pseudo-experiment trials and their results.
package run

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	"gollh/domain/core"
)

// Kind is the type of trials a run generates.
type Kind string

const (
	KindBackground Kind = "background"
	KindSignal     Kind = "signal"
)

// Result is the outcome of one trial.
type Result struct {
	TrialID  core.TrialID       `json:"trial_id" db:"trial_id"`
	RunID    core.TrialID       `json:"run_id" db:"run_id"`
	Index    int                `json:"index" db:"trial_index"`
	Seed     uint64             `json:"seed" db:"seed"`
	MeanNSig float64            `json:"mean_n_sig" db:"mean_n_sig"`
	NSig     int                `json:"n_sig" db:"n_sig"`
	NBkg     int                `json:"n_bkg" db:"n_bkg"`
	TS       float64            `json:"ts" db:"ts"`
	NS       float64            `json:"ns" db:"ns"`
	Params   map[string]float64 `json:"params,omitempty" db:"-"`
}

// RunFingerprint ensures deterministic replay
type RunFingerprint struct {
	Datasets    []string        `json:"datasets"`
	ParamsHash  core.ParamsHash `json:"params_hash"`
	Seed        uint64          `json:"seed"`
	CodeVersion string          `json:"code_version"`
	Fingerprint core.Hash       `json:"fingerprint"`
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(datasets []string, params map[string]float64, seed uint64, codeVersion string) RunFingerprint {
	names := append([]string(nil), datasets...)
	sort.Strings(names)
	ph := core.ComputeParamsHash(params)
	return RunFingerprint{
		Datasets:    names,
		ParamsHash:  ph,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: computeRunFingerprint(names, ph, seed, codeVersion),
	}
}

func computeRunFingerprint(datasets []string, ph core.ParamsHash, seed uint64, codeVersion string) core.Hash {
	data := fmt.Sprintf("datasets:%s|params:%s|seed:%d|code:%s",
		strings.Join(datasets, ","), ph, seed, codeVersion)
	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}

// Run is one batch of trials.
type Run struct {
	ID          core.TrialID       `json:"id" db:"id"`
	Name        string             `json:"name" db:"name"`
	Kind        Kind               `json:"kind" db:"kind"`
	NTrials     int                `json:"n_trials" db:"n_trials"`
	Params      map[string]float64 `json:"params" db:"-"`
	Fingerprint RunFingerprint     `json:"fingerprint" db:"-"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
}
