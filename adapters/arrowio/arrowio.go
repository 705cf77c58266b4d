// Package arrowio converts event tables to and from Arrow records and the
// Arrow IPC stream format.
package arrowio

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"gollh/domain/core"
	"gollh/internal/events"
)

// Schema returns the Arrow schema of tbl, with fields in table order.
func Schema(tbl *events.Table) (*arrow.Schema, error) {
	names := tbl.FieldNames()
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		col, err := tbl.GetData(name)
		if err != nil {
			return nil, err
		}
		var dt arrow.DataType
		switch col.Kind() {
		case events.KindFloat64:
			dt = arrow.PrimitiveTypes.Float64
		case events.KindInt64:
			dt = arrow.PrimitiveTypes.Int64
		case events.KindBool:
			dt = arrow.FixedWidthTypes.Boolean
		default:
			return nil, fmt.Errorf("%w: field %q has unsupported kind %s", core.ErrValidation, name, col.Kind())
		}
		fields[i] = arrow.Field{Name: name, Type: dt}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToRecord builds an Arrow record from tbl. The caller must Release it.
func ToRecord(tbl *events.Table, mem memory.Allocator) (arrow.Record, error) {
	schema, err := Schema(tbl)
	if err != nil {
		return nil, err
	}
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, f := range schema.Fields() {
		col, err := tbl.GetData(f.Name)
		if err != nil {
			return nil, err
		}
		switch c := col.(type) {
		case events.Float64Column:
			b.Field(i).(*array.Float64Builder).AppendValues(c, nil)
		case events.Int64Column:
			b.Field(i).(*array.Int64Builder).AppendValues(c, nil)
		case events.BoolColumn:
			b.Field(i).(*array.BooleanBuilder).AppendValues(c, nil)
		}
	}
	return b.NewRecord(), nil
}

// FromRecord copies an Arrow record into a new event table. Null float
// values become NaN; nulls in other columns are rejected.
func FromRecord(rec arrow.Record) (*events.Table, error) {
	cols := make(map[string]events.Column, rec.NumCols())
	for i, f := range rec.Schema().Fields() {
		arr := rec.Column(i)
		switch a := arr.(type) {
		case *array.Float64:
			vals := append([]float64(nil), a.Float64Values()...)
			for k := range vals {
				if a.IsNull(k) {
					vals[k] = math.NaN()
				}
			}
			cols[f.Name] = events.Float64Column(vals)
		case *array.Int64:
			if a.NullN() > 0 {
				return nil, core.NewValidationError("arrow field "+f.Name, "int64 column contains nulls")
			}
			cols[f.Name] = events.Int64Column(append([]int64(nil), a.Int64Values()...))
		case *array.Boolean:
			if a.NullN() > 0 {
				return nil, core.NewValidationError("arrow field "+f.Name, "bool column contains nulls")
			}
			vals := make([]bool, a.Len())
			for k := range vals {
				vals[k] = a.Value(k)
			}
			cols[f.Name] = events.BoolColumn(vals)
		default:
			return nil, core.NewValidationError("arrow field "+f.Name, fmt.Sprintf("unsupported type %s", arr.DataType()))
		}
	}
	return events.FromColumns(cols)
}

// WriteIPC writes tbl as a single-batch Arrow IPC stream.
func WriteIPC(w io.Writer, tbl *events.Table) error {
	mem := memory.NewGoAllocator()
	rec, err := ToRecord(tbl, mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write batch: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// ReadIPC reads all batches of an Arrow IPC stream into one event table.
func ReadIPC(r io.Reader) (*events.Table, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow stream: %w", err)
	}
	defer rdr.Release()

	out := events.NewTable()
	for rdr.Next() {
		tbl, err := FromRecord(rdr.Record())
		if err != nil {
			return nil, err
		}
		if err := out.Append(tbl); err != nil {
			return nil, err
		}
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read arrow stream: %w", err)
	}
	return out, nil
}

// WriteFile writes tbl to an Arrow IPC stream file.
func WriteFile(path string, tbl *events.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteIPC(f, tbl); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads an event table from an Arrow IPC stream file.
func ReadFile(path string) (*events.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return ReadIPC(f)
}
