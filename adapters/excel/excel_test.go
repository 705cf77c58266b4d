package excel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gollh/domain/core"
	"gollh/domain/run"
	"gollh/internal/events"
	"gollh/internal/timing"
	"gollh/internal/trials"
)

func TestReadTable_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	content := "ra,dec,is_track\n0.5,-0.25,true\n1.5,0.75,false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tbl, err := NewDataReader(path).ReadTable()
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	ra, err := tbl.Float64("ra")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5}, ra)
	tracks, err := tbl.Bool("is_track")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, tracks)
}

func TestReadTable_BadNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("ra\nabc\n"), 0o644))
	_, err := NewDataReader(path).ReadTable()
	assert.Error(t, err)

	_, err = NewDataReader(filepath.Join(t.TempDir(), "missing.csv")).ReadSheet()
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReadTable_DeclaredKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	content := "run, ra ,\n12,0.5,x\n13,1.5,y\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tbl, err := NewDataReader(path).WithKind("run", events.KindInt64).ReadTable()
	require.NoError(t, err)
	runs, err := tbl.Int64("run")
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 13}, runs)
	ra, err := tbl.Float64("ra")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5}, ra)
	assert.False(t, tbl.Has(""))

	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
	_, err = NewDataReader(path).ReadSheet()
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestTrialWorkbook_RoundTrip(t *testing.T) {
	rn := run.NewRun("bkg", run.KindBackground, 3, []string{"toy"}, map[string]float64{"gamma": 2}, 1, "test")
	results := make([]run.Result, 3)
	for i := range results {
		results[i] = rn.NewResult(i, uint64(100+i))
		results[i].MeanNSig = 5
		results[i].NSig = i
		results[i].NBkg = 10 + i
		results[i].NS = float64(i) + 0.5
		results[i].TS = float64(2 * i)
	}
	summary, err := trials.SummarizeNsFit(results)
	require.NoError(t, err)
	tl := timing.NewTimeLord()
	timing.StartTask(tl, "Run trial.").Stop()

	path := filepath.Join(t.TempDir(), "trials.xlsx")
	require.NoError(t, WriteTrialWorkbook(path, TrialWorkbook{Run: rn, Results: results, Summary: summary, Timing: tl}))

	back, err := ReadTrialResults(path)
	require.NoError(t, err)
	require.Len(t, back, 3)
	for i, r := range back {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, 10+i, r.NBkg)
		assert.Equal(t, float64(i)+0.5, r.NS)
		assert.Equal(t, float64(2*i), r.TS)
	}

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.ElementsMatch(t, []string{SheetRun, SheetTrials, SheetSummary, SheetTiming}, f.GetSheetList())

	gotRun, gotResults, err := ReadTrialWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, rn.ID, gotRun.ID)
	assert.Equal(t, rn.Fingerprint, gotRun.Fingerprint)
	assert.Equal(t, map[string]float64{"gamma": 2}, gotRun.Params)
	assert.True(t, rn.CreatedAt.Equal(gotRun.CreatedAt))
	for i, r := range gotResults {
		assert.Equal(t, results[i].TrialID, r.TrialID)
		assert.Equal(t, uint64(100+i), r.Seed)
		assert.Equal(t, rn.ID, r.RunID)
	}
}

func TestReadTrialRun_DetectsTampering(t *testing.T) {
	rn := run.NewRun("bkg", run.KindBackground, 1, []string{"toy"}, nil, 7, "test")
	path := filepath.Join(t.TempDir(), "trials.xlsx")
	require.NoError(t, WriteTrialWorkbook(path, TrialWorkbook{Run: rn, Results: []run.Result{rn.NewResult(0, 1)}}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	rows, err := f.GetRows(SheetRun)
	require.NoError(t, err)
	for i, row := range rows {
		if row[0] == "seed" {
			cell, err := excelize.CoordinatesToCellName(2, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellStr(SheetRun, cell, "8"))
		}
	}
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	_, err = ReadTrialRun(path)
	assert.ErrorIs(t, err, core.ErrConsistency)
}

func TestWriteTrialWorkbook_RequiresRun(t *testing.T) {
	err := WriteTrialWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), TrialWorkbook{})
	assert.Error(t, err)
}
