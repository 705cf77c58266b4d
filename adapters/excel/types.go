// Package excel reads event tables from spreadsheets and writes trial
// results to workbooks.
package excel

// Row maps trimmed header names to trimmed cell text.
type Row map[string]string

// Sheet is the raw text content of one worksheet or csv file.
type Sheet struct {
	Headers []string
	Rows    []Row
}

// Select returns a view of s restricted to the named columns. Rows are shared.
func (s *Sheet) Select(names ...string) *Sheet {
	return &Sheet{Headers: names, Rows: s.Rows}
}

// Sheet names of a trial workbook.
const (
	SheetRun     = "Run"
	SheetTrials  = "Trials"
	SheetSummary = "Summary"
	SheetTiming  = "Timing"
)
