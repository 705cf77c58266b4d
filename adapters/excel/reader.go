package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gollh/domain/core"
	"gollh/internal"
	"gollh/internal/events"
)

// DataReader loads an event table from an xlsx worksheet or a csv file.
// Columns are float64 unless declared otherwise with WithKind; a column whose
// cells are all "true"/"false" is read as bool.
type DataReader struct {
	path  string
	csv   bool
	sheet string
	kinds map[string]events.Kind
	log   *internal.Logger
}

func NewDataReader(path string) *DataReader {
	return &DataReader{
		path:  path,
		csv:   strings.EqualFold(filepath.Ext(path), ".csv"),
		sheet: "Sheet1",
		kinds: make(map[string]events.Kind),
		log:   internal.DefaultLogger.WithComponent("DataReader"),
	}
}

// WithSheet selects the worksheet of an xlsx file.
func (r *DataReader) WithSheet(sheet string) *DataReader {
	r.sheet = sheet
	return r
}

// WithKind declares the column kind of a field.
func (r *DataReader) WithKind(field string, kind events.Kind) *DataReader {
	r.kinds[field] = kind
	return r
}

// ReadSheet returns the raw text rows of the file.
func (r *DataReader) ReadSheet() (*Sheet, error) {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil, core.NewNotFoundError("event file", r.path)
	}
	start := time.Now()
	var (
		rows [][]string
		err  error
	)
	if r.csv {
		rows, err = r.csvRows()
	} else {
		rows, err = r.xlsxRows()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, core.NewValidationError(r.path, "missing header row")
	}
	s := parseRows(rows)
	r.log.Debug("read %s in %.2fms (%d columns, %d rows)", r.path, float64(time.Since(start).Microseconds())/1e3, len(s.Headers), len(s.Rows))
	return s, nil
}

func (r *DataReader) xlsxRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", r.path, err)
	}
	defer f.Close()
	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", r.sheet, err)
	}
	return rows, nil
}

func (r *DataReader) csvRows() ([][]string, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", r.path, err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", r.path, err)
	}
	return rows, nil
}

func parseRows(rows [][]string) *Sheet {
	s := &Sheet{Headers: make([]string, len(rows[0])), Rows: make([]Row, 0, len(rows)-1)}
	for i, h := range rows[0] {
		s.Headers[i] = strings.TrimSpace(h)
	}
	for _, cells := range rows[1:] {
		row := make(Row, len(s.Headers))
		for j := 0; j < len(cells) && j < len(s.Headers); j++ {
			row[s.Headers[j]] = strings.TrimSpace(cells[j])
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// ReadTable reads the file into an event table.
func (r *DataReader) ReadTable() (*events.Table, error) {
	s, err := r.ReadSheet()
	if err != nil {
		return nil, err
	}
	return ToTable(s, r.kinds)
}

// ToTable converts sheet rows into an event table. Fields missing from kinds
// are bool when every cell is "true"/"false" and float64 otherwise. Blank
// headers are skipped.
func ToTable(s *Sheet, kinds map[string]events.Kind) (*events.Table, error) {
	cols := make(map[string]events.Column, len(s.Headers))
	for _, h := range s.Headers {
		if h == "" {
			continue
		}
		kind, ok := kinds[h]
		if !ok {
			kind = events.KindFloat64
			if isBoolColumn(s, h) {
				kind = events.KindBool
			}
		}
		col, err := parseColumn(s, h, kind)
		if err != nil {
			return nil, err
		}
		cols[h] = col
	}
	return events.FromColumns(cols)
}

func parseColumn(s *Sheet, field string, kind events.Kind) (events.Column, error) {
	n := len(s.Rows)
	switch kind {
	case events.KindBool:
		col := make(events.BoolColumn, n)
		for i, row := range s.Rows {
			col[i] = strings.EqualFold(row[field], "true")
		}
		return col, nil
	case events.KindInt64:
		col := make(events.Int64Column, n)
		for i, row := range s.Rows {
			v, err := strconv.ParseInt(row[field], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", field, i+2, err)
			}
			col[i] = v
		}
		return col, nil
	default:
		col := make(events.Float64Column, n)
		for i, row := range s.Rows {
			v, err := strconv.ParseFloat(row[field], 64)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", field, i+2, err)
			}
			col[i] = v
		}
		return col, nil
	}
}

func isBoolColumn(s *Sheet, field string) bool {
	if len(s.Rows) == 0 {
		return false
	}
	for _, row := range s.Rows {
		v := strings.ToLower(row[field])
		if v != "true" && v != "false" {
			return false
		}
	}
	return true
}
