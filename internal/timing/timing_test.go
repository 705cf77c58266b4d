package timing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gollh/domain/core"
)

// TestTaskRecord_UnionDuration verifies overlapping intervals are counted once
func TestTaskRecord_UnionDuration(t *testing.T) {
	tr, err := NewTaskRecord("fit", []float64{0, 3, 10}, []float64{5, 8, 12})
	require.NoError(t, err)

	assert.Equal(t, 10.0, tr.Duration())
	assert.Equal(t, 3, tr.NIter())
}

// TestTaskRecord_NestedAndUnsorted verifies contained intervals add nothing
func TestTaskRecord_NestedAndUnsorted(t *testing.T) {
	tr, err := NewTaskRecord("fit", []float64{10, 0, 1}, []float64{12, 5, 2})
	require.NoError(t, err)
	assert.Equal(t, 7.0, tr.Duration())

	_, err = NewTaskRecord("fit", []float64{0}, nil)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestTaskRecord_Join(t *testing.T) {
	a, _ := NewTaskRecord("fit", []float64{0}, []float64{5})
	b, _ := NewTaskRecord("fit", []float64{3, 10}, []float64{8, 12})
	a.Join(b)

	assert.Equal(t, 3, a.NIter())
	assert.Equal(t, 10.0, a.Duration())
}

func TestTimeLord_RecordsOnErrorAndPanic(t *testing.T) {
	tl := NewTimeLord()

	err := Time(tl, "draw", func() error { return errors.New("boom") })
	require.Error(t, err)

	func() {
		defer func() { _ = recover() }()
		_ = Time(tl, "draw", func() error { panic("bad") })
	}()

	require.NoError(t, Time(tl, "scramble", func() error { return nil }))

	tr, err := tl.TaskRecord("draw")
	require.NoError(t, err)
	assert.Equal(t, 2, tr.NIter())
	assert.Equal(t, []string{"draw", "scramble"}, tl.TaskNames())

	_, err = tl.TaskRecord("missing")
	assert.ErrorIs(t, err, core.ErrTaskRecordNotFound)
}

func TestTimeLord_NilIsNoop(t *testing.T) {
	var tl *TimeLord

	tt := tl.TaskTimer("noop")
	tt.Stop()
	tt.Stop()

	assert.NoError(t, Time(nil, "noop", func() error { return nil }))
	assert.False(t, tl.HasTaskRecord("noop"))
	assert.Empty(t, tl.TaskNames())
}

func TestTimeLord_JoinAndString(t *testing.T) {
	a := NewTimeLord()
	b := NewTimeLord()
	tr, _ := NewTaskRecord("fit", []float64{0}, []float64{2})
	b.AddTaskRecord(tr)
	tr2, _ := NewTaskRecord("fit", []float64{4}, []float64{6})
	a.AddTaskRecord(tr2)

	a.Join(b)
	rec, err := a.TaskRecord("fit")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.NIter())
	assert.Equal(t, 4.0, rec.Duration())

	s := a.String()
	assert.True(t, strings.HasPrefix(s, "Executed tasks:"))
	assert.Contains(t, s, "[fit]   2.000 sec/iter (2)")
}

func TestTimeLord_StringWithoutIterations(t *testing.T) {
	tl := NewTimeLord()
	tr, err := NewTaskRecord("idle", nil, nil)
	require.NoError(t, err)
	tl.AddTaskRecord(tr)

	s := tl.String()
	assert.NotContains(t, s, "NaN")
	assert.Contains(t, s, "[idle]   0.000 sec/iter (0)")
}
