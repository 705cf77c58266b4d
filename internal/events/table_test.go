package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gollh/domain/core"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable()
	require.NoError(t, tbl.AddColumn("time", Float64Column{3, 1, 2, 1}))
	require.NoError(t, tbl.AddColumn("ra", Float64Column{0.3, 0.1, 0.2, 0.4}))
	require.NoError(t, tbl.AddColumn("run", Int64Column{30, 10, 20, 11}))
	require.NoError(t, tbl.AddColumn("isvalid", BoolColumn{true, false, true, true}))
	return tbl
}

func TestTable_AddColumnShapeAndDuplicate(t *testing.T) {
	tbl := newTestTable(t)
	assert.Equal(t, 4, tbl.Len())

	err := tbl.AddColumn("dec", Float64Column{1, 2})
	assert.ErrorIs(t, err, core.ErrShapeMismatch)

	err = tbl.AddColumn("ra", Float64Column{1, 2, 3, 4})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestTable_SortByFieldIsStable(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.SortByField("time"))

	times, _ := tbl.Float64("time")
	ra, _ := tbl.Float64("ra")
	runs, _ := tbl.Int64("run")
	assert.Equal(t, []float64{1, 1, 2, 3}, times)
	assert.Equal(t, []float64{0.1, 0.4, 0.2, 0.3}, ra)
	assert.Equal(t, []int64{10, 11, 20, 30}, runs)
}

func TestTable_CopyIsDeepAndFiltered(t *testing.T) {
	tbl := newTestTable(t)
	cp := tbl.Copy("ra", "run")

	assert.Equal(t, []string{"ra", "run"}, cp.FieldNames())
	ra, _ := cp.Float64("ra")
	ra[0] = 99
	orig, _ := tbl.Float64("ra")
	assert.Equal(t, 0.3, orig[0])
	assert.NotEqual(t, tbl.Stamp().ID, cp.Stamp().ID)
}

func TestTable_TidyUpAndTake(t *testing.T) {
	tbl := newTestTable(t)
	tbl.TidyUp([]string{"ra", "isvalid"})
	assert.Equal(t, []string{"ra", "isvalid"}, tbl.FieldNames())

	sub := tbl.Take([]int{3, 0, 0})
	ra, _ := sub.Float64("ra")
	valid, _ := sub.Bool("isvalid")
	assert.Equal(t, []float64{0.4, 0.3, 0.3}, ra)
	assert.Equal(t, []bool{true, true, true}, valid)
}

func TestTable_StampChangesOnMutation(t *testing.T) {
	tbl := newTestTable(t)
	s0 := tbl.Stamp()

	require.NoError(t, tbl.SetFloat64("ra", []float64{1, 2, 3, 4}))
	s1 := tbl.Stamp()
	assert.NotEqual(t, s0, s1)
	assert.Equal(t, s0.ID, s1.ID)

	tbl.Touch()
	assert.NotEqual(t, s1, tbl.Stamp())
}

func TestTable_Append(t *testing.T) {
	a := newTestTable(t)
	b := newTestTable(t)
	require.NoError(t, a.Append(b))
	assert.Equal(t, 8, a.Len())

	empty := NewTable()
	id := empty.Stamp().ID
	require.NoError(t, empty.Append(b))
	assert.Equal(t, 4, empty.Len())
	assert.Equal(t, id, empty.Stamp().ID)

	c := NewTable()
	require.NoError(t, c.AddColumn("ra", Float64Column{1}))
	assert.ErrorIs(t, a.Append(c), core.ErrShapeMismatch)
}

func TestTable_TypedAccessErrors(t *testing.T) {
	tbl := newTestTable(t)
	_, err := tbl.Float64("nope")
	assert.ErrorIs(t, err, core.ErrDataFieldNotFound)

	_, err = tbl.Bool("ra")
	assert.ErrorIs(t, err, core.ErrValidation)

	runs, err := tbl.Float64("run")
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 10, 20, 11}, runs)
}
