package excel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gollh/domain/core"
	"gollh/domain/run"
	apperrors "gollh/internal/errors"
	"gollh/internal/events"
	"gollh/internal/timing"
	"gollh/internal/trials"
)

// TrialWorkbook is the content of an exported trial run.
type TrialWorkbook struct {
	Run     *run.Run
	Results []run.Result
	Summary []trials.NsSummary
	Timing  *timing.TimeLord
}

const paramPrefix = "param:"

var trialHeaders = []interface{}{"trial_index", "trial_id", "seed", "mean_n_sig", "n_sig", "n_bkg", "ns", "ts"}

// WriteTrialWorkbook writes the run, its trials, the ns summary and the
// task timings to an xlsx file.
func WriteTrialWorkbook(path string, wb TrialWorkbook) error {
	if wb.Run == nil {
		return apperrors.InvalidInput("trial workbook requires a run")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRun); err != nil {
		return apperrors.ExportError(path, err)
	}
	runRows := [][]interface{}{
		{"id", wb.Run.ID.String()},
		{"name", wb.Run.Name},
		{"kind", string(wb.Run.Kind)},
		{"n_trials", wb.Run.NTrials},
		{"seed", fmt.Sprint(wb.Run.Fingerprint.Seed)},
		{"datasets", strings.Join(wb.Run.Fingerprint.Datasets, ",")},
		{"code_version", wb.Run.Fingerprint.CodeVersion},
		{"fingerprint", wb.Run.Fingerprint.Fingerprint.String()},
		{"created_at", wb.Run.CreatedAt.Format(time.RFC3339Nano)},
	}
	names := make([]string, 0, len(wb.Run.Params))
	for name := range wb.Run.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		runRows = append(runRows, []interface{}{paramPrefix + name, wb.Run.Params[name]})
	}
	if err := writeRows(f, SheetRun, runRows); err != nil {
		return apperrors.ExportError(path, err)
	}

	if _, err := f.NewSheet(SheetTrials); err != nil {
		return apperrors.ExportError(path, err)
	}
	rows := [][]interface{}{trialHeaders}
	for _, r := range wb.Results {
		rows = append(rows, []interface{}{r.Index, r.TrialID.String(), fmt.Sprint(r.Seed), r.MeanNSig, r.NSig, r.NBkg, r.NS, r.TS})
	}
	if err := writeRows(f, SheetTrials, rows); err != nil {
		return apperrors.ExportError(path, err)
	}

	if len(wb.Summary) > 0 {
		if _, err := f.NewSheet(SheetSummary); err != nil {
			return apperrors.ExportError(path, err)
		}
		rows := [][]interface{}{{"mean_n_sig", "n_trials", "ns_median", "ns_p15.9", "ns_p84.1"}}
		for _, s := range wb.Summary {
			rows = append(rows, []interface{}{s.MeanNSig, s.NTrials, s.Median, s.Lower, s.Upper})
		}
		if err := writeRows(f, SheetSummary, rows); err != nil {
			return apperrors.ExportError(path, err)
		}
	}

	if wb.Timing != nil {
		if _, err := f.NewSheet(SheetTiming); err != nil {
			return apperrors.ExportError(path, err)
		}
		rows := [][]interface{}{{"task", "n_iter", "duration_sec"}}
		for _, rec := range wb.Timing.Records() {
			rows = append(rows, []interface{}{rec.Name(), rec.NIter(), rec.Duration()})
		}
		if err := writeRows(f, SheetTiming, rows); err != nil {
			return apperrors.ExportError(path, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return apperrors.ExportError(path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// ReadTrialResults reads the Trials sheet of a workbook written by
// WriteTrialWorkbook.
func ReadTrialResults(path string) ([]run.Result, error) {
	r := NewDataReader(path).WithSheet(SheetTrials)
	for _, f := range []string{"trial_index", "n_sig", "n_bkg"} {
		r.WithKind(f, events.KindInt64)
	}
	data, err := r.ReadSheet()
	if err != nil {
		return nil, err
	}
	tbl, err := ToTable(data.Select("trial_index", "mean_n_sig", "n_sig", "n_bkg", "ns", "ts"), r.kinds)
	if err != nil {
		return nil, err
	}
	idx, _ := tbl.Int64("trial_index")
	nSig, _ := tbl.Int64("n_sig")
	nBkg, _ := tbl.Int64("n_bkg")
	mean, _ := tbl.Float64("mean_n_sig")
	ns, _ := tbl.Float64("ns")
	ts, _ := tbl.Float64("ts")
	out := make([]run.Result, tbl.Len())
	for i := range out {
		seed, err := strconv.ParseUint(data.Rows[i]["seed"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trial row %d: invalid seed: %w", i+1, err)
		}
		out[i] = run.Result{
			TrialID:  core.TrialID(data.Rows[i]["trial_id"]),
			Seed:     seed,
			Index:    int(idx[i]),
			MeanNSig: mean[i],
			NSig:     int(nSig[i]),
			NBkg:     int(nBkg[i]),
			NS:       ns[i],
			TS:       ts[i],
		}
	}
	return out, nil
}

// ReadTrialRun reads the Run sheet of a workbook written by
// WriteTrialWorkbook. The stored fingerprint must match the one recomputed
// from the run parameters.
func ReadTrialRun(path string) (*run.Run, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetRun)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", SheetRun, err)
	}
	kv := make(map[string]string, len(rows))
	params := make(map[string]float64)
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if name, ok := strings.CutPrefix(row[0], paramPrefix); ok {
			v, err := strconv.ParseFloat(row[1], 64)
			if err != nil {
				return nil, fmt.Errorf("run parameter %s: %w", name, err)
			}
			params[name] = v
			continue
		}
		kv[row[0]] = row[1]
	}

	nTrials, err := strconv.Atoi(kv["n_trials"])
	if err != nil {
		return nil, fmt.Errorf("run n_trials: %w", err)
	}
	seed, err := strconv.ParseUint(kv["seed"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("run seed: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, kv["created_at"])
	if err != nil {
		return nil, fmt.Errorf("run created_at: %w", err)
	}
	var datasets []string
	if kv["datasets"] != "" {
		datasets = strings.Split(kv["datasets"], ",")
	}

	rn := &run.Run{
		ID:          core.TrialID(kv["id"]),
		Name:        kv["name"],
		Kind:        run.Kind(kv["kind"]),
		NTrials:     nTrials,
		Params:      params,
		Fingerprint: run.NewRunFingerprint(datasets, params, seed, kv["code_version"]),
		CreatedAt:   createdAt,
	}
	if got := rn.Fingerprint.Fingerprint.String(); got != kv["fingerprint"] {
		return nil, fmt.Errorf("%w: stored fingerprint %s does not match %s", core.ErrConsistency, kv["fingerprint"], got)
	}
	if err := rn.Validate(); err != nil {
		return nil, err
	}
	return rn, nil
}

// ReadTrialWorkbook reads the run and its trials.
func ReadTrialWorkbook(path string) (*run.Run, []run.Result, error) {
	rn, err := ReadTrialRun(path)
	if err != nil {
		return nil, nil, err
	}
	results, err := ReadTrialResults(path)
	if err != nil {
		return nil, nil, err
	}
	for i := range results {
		results[i].RunID = rn.ID
	}
	return rn, results, nil
}
