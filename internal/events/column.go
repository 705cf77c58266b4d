package events

import "fmt"

// Kind identifies the element type of a column.
type Kind int

const (
	KindFloat64 Kind = iota
	KindBool
	KindInt64
)

func (k Kind) String() string {
	switch k {
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Column is one typed field of an event table.
type Column interface {
	Len() int
	Kind() Kind
	// Take returns a new column holding the elements at the given indices.
	Take(indices []int) Column
	Clone() Column
	// Append returns a new column with other appended. other must share the kind.
	Append(other Column) (Column, error)
}

type Float64Column []float64
type BoolColumn []bool
type Int64Column []int64

func (c Float64Column) Len() int   { return len(c) }
func (c Float64Column) Kind() Kind { return KindFloat64 }
func (c Float64Column) Clone() Column {
	return append(Float64Column(nil), c...)
}
func (c Float64Column) Take(indices []int) Column {
	out := make(Float64Column, len(indices))
	for i, idx := range indices {
		out[i] = c[idx]
	}
	return out
}
func (c Float64Column) Append(other Column) (Column, error) {
	o, ok := other.(Float64Column)
	if !ok {
		return nil, kindMismatch(c, other)
	}
	out := make(Float64Column, 0, len(c)+len(o))
	return append(append(out, c...), o...), nil
}

func (c BoolColumn) Len() int   { return len(c) }
func (c BoolColumn) Kind() Kind { return KindBool }
func (c BoolColumn) Clone() Column {
	return append(BoolColumn(nil), c...)
}
func (c BoolColumn) Take(indices []int) Column {
	out := make(BoolColumn, len(indices))
	for i, idx := range indices {
		out[i] = c[idx]
	}
	return out
}
func (c BoolColumn) Append(other Column) (Column, error) {
	o, ok := other.(BoolColumn)
	if !ok {
		return nil, kindMismatch(c, other)
	}
	out := make(BoolColumn, 0, len(c)+len(o))
	return append(append(out, c...), o...), nil
}

func (c Int64Column) Len() int   { return len(c) }
func (c Int64Column) Kind() Kind { return KindInt64 }
func (c Int64Column) Clone() Column {
	return append(Int64Column(nil), c...)
}
func (c Int64Column) Take(indices []int) Column {
	out := make(Int64Column, len(indices))
	for i, idx := range indices {
		out[i] = c[idx]
	}
	return out
}
func (c Int64Column) Append(other Column) (Column, error) {
	o, ok := other.(Int64Column)
	if !ok {
		return nil, kindMismatch(c, other)
	}
	out := make(Int64Column, 0, len(c)+len(o))
	return append(append(out, c...), o...), nil
}

func kindMismatch(a, b Column) error {
	return fmt.Errorf("cannot append %s column to %s column", b.Kind(), a.Kind())
}
