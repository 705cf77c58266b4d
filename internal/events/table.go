// Package events provides the column-oriented event table shared by the
// trial data manager, the PDFs and the trial generators.
package events

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"gollh/domain/core"
)

// Stamp identifies one state of a table. Two equal stamps refer to the same
// table with no mutation in between.
type Stamp struct {
	ID      uuid.UUID
	Version uint64
}

// Table is an ordered set of equally long, named, typed columns.
type Table struct {
	id      uuid.UUID
	version uint64
	n       int
	names   []string
	columns map[string]Column
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		id:      uuid.New(),
		n:       -1,
		columns: make(map[string]Column),
	}
}

// FromColumns creates a table from the given columns in name order.
func FromColumns(cols map[string]Column) (*Table, error) {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	t := NewTable()
	for _, name := range names {
		if err := t.AddColumn(name, cols[name]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Stamp returns the identity and mutation version of the table.
func (t *Table) Stamp() Stamp {
	return Stamp{ID: t.id, Version: t.version}
}

// Touch marks the table as mutated. Callers that write into a slice obtained
// from an accessor must call Touch so cached consumers recompute.
func (t *Table) Touch() {
	t.version++
}

// Len returns the number of events.
func (t *Table) Len() int {
	if t.n < 0 {
		return 0
	}
	return t.n
}

// FieldNames returns the column names in insertion order.
func (t *Table) FieldNames() []string {
	return append([]string(nil), t.names...)
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Indices returns 0..N-1.
func (t *Table) Indices() []int {
	idx := make([]int, t.Len())
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// AddColumn adds a new column. Its length must match the existing columns.
func (t *Table) AddColumn(name string, col Column) error {
	if _, ok := t.columns[name]; ok {
		return core.NewDuplicateKeyError("data field", name)
	}
	if t.n >= 0 && col.Len() != t.n {
		return fmt.Errorf("%w: column %q has length %d, table has %d events", core.ErrShapeMismatch, name, col.Len(), t.n)
	}
	t.n = col.Len()
	t.names = append(t.names, name)
	t.columns[name] = col
	t.version++
	return nil
}

// RemoveColumn drops a column if present.
func (t *Table) RemoveColumn(name string) {
	if _, ok := t.columns[name]; !ok {
		return
	}
	delete(t.columns, name)
	for i, n := range t.names {
		if n == name {
			t.names = append(t.names[:i], t.names[i+1:]...)
			break
		}
	}
	t.version++
}

// GetData returns the named column.
func (t *Table) GetData(name string) (Column, error) {
	col, ok := t.columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrDataFieldNotFound, name)
	}
	return col, nil
}

// Float64 returns the named float64 column without copying.
func (t *Table) Float64(name string) ([]float64, error) {
	col, err := t.GetData(name)
	if err != nil {
		return nil, err
	}
	return AsFloat64(name, col)
}

// Bool returns the named bool column without copying.
func (t *Table) Bool(name string) ([]bool, error) {
	col, err := t.GetData(name)
	if err != nil {
		return nil, err
	}
	c, ok := col.(BoolColumn)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is %s, not bool", core.ErrValidation, name, col.Kind())
	}
	return c, nil
}

// Int64 returns the named int64 column without copying.
func (t *Table) Int64(name string) ([]int64, error) {
	col, err := t.GetData(name)
	if err != nil {
		return nil, err
	}
	c, ok := col.(Int64Column)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is %s, not int64", core.ErrValidation, name, col.Kind())
	}
	return c, nil
}

// AsFloat64 converts a column to []float64. Int64 columns are widened.
func AsFloat64(name string, col Column) ([]float64, error) {
	switch c := col.(type) {
	case Float64Column:
		return c, nil
	case Int64Column:
		out := make([]float64, len(c))
		for i, v := range c {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: field %q is %s, not numeric", core.ErrValidation, name, col.Kind())
	}
}

// SetFloat64 replaces or adds a float64 column and bumps the version.
func (t *Table) SetFloat64(name string, values []float64) error {
	return t.SetColumn(name, Float64Column(values))
}

// SetColumn replaces or adds a column and bumps the version.
func (t *Table) SetColumn(name string, col Column) error {
	if _, ok := t.columns[name]; !ok {
		return t.AddColumn(name, col)
	}
	if col.Len() != t.n {
		return fmt.Errorf("%w: column %q has length %d, table has %d events", core.ErrShapeMismatch, name, col.Len(), t.n)
	}
	t.columns[name] = col
	t.version++
	return nil
}

// Copy returns a deep copy. When keep is non-empty only those columns are copied.
func (t *Table) Copy(keep ...string) *Table {
	out := NewTable()
	out.n = t.n
	keepSet := toSet(keep)
	for _, name := range t.names {
		if len(keepSet) > 0 && !keepSet[name] {
			continue
		}
		out.names = append(out.names, name)
		out.columns[name] = t.columns[name].Clone()
	}
	return out
}

// TidyUp removes all columns not named in keep.
func (t *Table) TidyUp(keep []string) {
	keepSet := toSet(keep)
	for _, name := range t.FieldNames() {
		if !keepSet[name] {
			t.RemoveColumn(name)
		}
	}
}

// SortByField stably sorts all events by a numeric column in ascending order.
func (t *Table) SortByField(name string) error {
	keys, err := t.Float64(name)
	if err != nil {
		return err
	}
	perm := t.Indices()
	sort.SliceStable(perm, func(i, j int) bool {
		return keys[perm[i]] < keys[perm[j]]
	})
	for _, n := range t.names {
		t.columns[n] = t.columns[n].Take(perm)
	}
	t.version++
	return nil
}

// Take returns a new table holding the events at the given indices.
func (t *Table) Take(indices []int) *Table {
	out := NewTable()
	out.n = len(indices)
	for _, name := range t.names {
		out.names = append(out.names, name)
		out.columns[name] = t.columns[name].Take(indices)
	}
	return out
}

// Mask returns the indices where mask is true.
func Mask(mask []bool) []int {
	var idx []int
	for i, m := range mask {
		if m {
			idx = append(idx, i)
		}
	}
	return idx
}

// Append concatenates the events of other. Both tables must hold the same columns.
func (t *Table) Append(other *Table) error {
	if t.n < 0 {
		cp := other.Copy()
		cp.id, cp.version = t.id, t.version+1
		*t = *cp
		return nil
	}
	if len(other.names) != len(t.names) {
		return fmt.Errorf("%w: cannot append table with fields %v to %v", core.ErrShapeMismatch, other.names, t.names)
	}
	merged := make(map[string]Column, len(t.names))
	for _, name := range t.names {
		oc, ok := other.columns[name]
		if !ok {
			return fmt.Errorf("%w: field %q missing in appended table", core.ErrShapeMismatch, name)
		}
		col, err := t.columns[name].Append(oc)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		merged[name] = col
	}
	t.columns = merged
	t.n += other.Len()
	t.version++
	return nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
