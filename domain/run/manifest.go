package run

import (
	"time"

	"gollh/domain/core"
)

// NewRun creates a run description with a fresh identifier.
func NewRun(name string, kind Kind, nTrials int, datasets []string, params map[string]float64, seed uint64, codeVersion string) *Run {
	return &Run{
		ID:          core.NewTrialID(),
		Name:        name,
		Kind:        kind,
		NTrials:     nTrials,
		Params:      params,
		Fingerprint: NewRunFingerprint(datasets, params, seed, codeVersion),
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate checks if the run is complete
func (r *Run) Validate() error {
	if core.ID(r.ID).IsEmpty() {
		return core.NewValidationError("run", "id cannot be empty")
	}
	if r.Name == "" {
		return core.NewValidationError("run", "name cannot be empty")
	}
	if r.Kind != KindBackground && r.Kind != KindSignal {
		return core.NewValidationError("run", "unknown kind "+string(r.Kind))
	}
	if r.NTrials < 1 {
		return core.NewValidationError("run", "at least one trial is required")
	}
	if r.Fingerprint.CodeVersion == "" {
		return core.NewValidationError("run", "code_version cannot be empty")
	}
	return nil
}

// NewResult binds a trial outcome to its run.
func (r *Run) NewResult(index int, seed uint64) Result {
	return Result{
		TrialID: core.NewTrialID(),
		RunID:   r.ID,
		Index:   index,
		Seed:    seed,
	}
}
