// Package timing records how long named tasks run. Durations are computed
// over the union of recorded intervals so overlapping executions are counted
// once.
package timing

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gollh/domain/core"
)

type interval struct {
	start, end float64
}

// TaskRecord accumulates the (start, end) pairs, in seconds, of one named task.
type TaskRecord struct {
	name      string
	intervals []interval
}

// NewTaskRecord creates a record from equally long start and end slices.
func NewTaskRecord(name string, starts, ends []float64) (*TaskRecord, error) {
	if len(starts) != len(ends) {
		return nil, core.NewValidationError("task record "+name,
			fmt.Sprintf("%d start times vs %d end times", len(starts), len(ends)))
	}
	tr := &TaskRecord{name: name, intervals: make([]interval, len(starts))}
	for i := range starts {
		tr.intervals[i] = interval{start: starts[i], end: ends[i]}
	}
	tr.sort()
	return tr, nil
}

func (tr *TaskRecord) sort() {
	sort.SliceStable(tr.intervals, func(i, j int) bool {
		return tr.intervals[i].start < tr.intervals[j].start
	})
}

func (tr *TaskRecord) Name() string { return tr.name }

// NIter returns the number of recorded executions.
func (tr *TaskRecord) NIter() int { return len(tr.intervals) }

// Duration returns the total time covered by the union of all intervals.
func (tr *TaskRecord) Duration() float64 {
	if len(tr.intervals) == 0 {
		return 0
	}
	first := tr.intervals[0]
	d := first.end - first.start
	lastEnd := first.end
	for _, iv := range tr.intervals[1:] {
		switch {
		case iv.end <= lastEnd:
			continue
		case iv.start <= lastEnd:
			d += iv.end - lastEnd
		default:
			d += iv.end - iv.start
		}
		lastEnd = iv.end
	}
	return d
}

// Join merges the intervals of another record into this one.
func (tr *TaskRecord) Join(other *TaskRecord) {
	tr.intervals = append(tr.intervals, other.intervals...)
	tr.sort()
}

// TimeLord is a registry of task records by name. A nil *TimeLord is valid
// and records nothing.
type TimeLord struct {
	mu      sync.Mutex
	records []*TaskRecord
	index   map[string]int
}

// NewTimeLord creates an empty registry.
func NewTimeLord() *TimeLord {
	return &TimeLord{index: make(map[string]int)}
}

// AddTaskRecord registers a record, joining it with an existing record of the same name.
func (tl *TimeLord) AddTaskRecord(tr *TaskRecord) {
	if tl == nil {
		return
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if i, ok := tl.index[tr.name]; ok {
		tl.records[i].Join(tr)
		return
	}
	tl.index[tr.name] = len(tl.records)
	tl.records = append(tl.records, tr)
}

// TaskRecord returns the record of the named task.
func (tl *TimeLord) TaskRecord(name string) (*TaskRecord, error) {
	if tl != nil {
		tl.mu.Lock()
		defer tl.mu.Unlock()
		if i, ok := tl.index[name]; ok {
			return tl.records[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", core.ErrTaskRecordNotFound, name)
}

// HasTaskRecord reports whether the named task was recorded.
func (tl *TimeLord) HasTaskRecord(name string) bool {
	_, err := tl.TaskRecord(name)
	return err == nil
}

// TaskNames returns the recorded task names in first-recorded order.
func (tl *TimeLord) TaskNames() []string {
	if tl == nil {
		return nil
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	names := make([]string, len(tl.records))
	for i, tr := range tl.records {
		names[i] = tr.name
	}
	return names
}

// Records returns a snapshot of all records.
func (tl *TimeLord) Records() []*TaskRecord {
	if tl == nil {
		return nil
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return append([]*TaskRecord(nil), tl.records...)
}

// Join merges all records of another TimeLord.
func (tl *TimeLord) Join(other *TimeLord) {
	for _, tr := range other.Records() {
		cp := &TaskRecord{name: tr.name, intervals: append([]interval(nil), tr.intervals...)}
		tl.AddTaskRecord(cp)
	}
}

// TaskTimer starts a timer for the named task.
func (tl *TimeLord) TaskTimer(name string) *TaskTimer {
	return StartTask(tl, name)
}

// String renders one line per task with the mean duration per iteration.
// A task without iterations reports zero.
func (tl *TimeLord) String() string {
	var b strings.Builder
	b.WriteString("Executed tasks:")
	records := tl.Records()
	width := 0
	for _, tr := range records {
		if len(tr.name) > width {
			width = len(tr.name)
		}
	}
	for _, tr := range records {
		var t float64
		if tr.NIter() > 0 {
			t = tr.Duration() / float64(tr.NIter())
		}
		var ts string
		if t > 1e3 || (t > 0 && t < 1e-3) {
			ts = fmt.Sprintf("%7.1e", t)
		} else {
			ts = fmt.Sprintf("%7.3f", t)
		}
		fmt.Fprintf(&b, "\n[%-*s] %s sec/iter (%d)", width, tr.name, ts, tr.NIter())
	}
	return b.String()
}

// TaskTimer measures one execution of a task. Stop records it on the
// TimeLord; with a nil TimeLord nothing is recorded.
type TaskTimer struct {
	tl      *TimeLord
	name    string
	start   time.Time
	elapsed time.Duration
	stopped bool
}

var epoch = time.Now()

// StartTask starts timing the named task.
func StartTask(tl *TimeLord, name string) *TaskTimer {
	return &TaskTimer{tl: tl, name: name, start: time.Now()}
}

// Stop ends the measurement and records it. Calling Stop twice records once.
func (tt *TaskTimer) Stop() {
	if tt.stopped {
		return
	}
	end := time.Now()
	tt.stopped = true
	tt.elapsed = end.Sub(tt.start)
	if tt.tl == nil {
		return
	}
	tt.tl.AddTaskRecord(&TaskRecord{
		name: tt.name,
		intervals: []interval{{
			start: tt.start.Sub(epoch).Seconds(),
			end:   end.Sub(epoch).Seconds(),
		}},
	})
}

// Duration returns the measured time after Stop.
func (tt *TaskTimer) Duration() time.Duration { return tt.elapsed }

// Time runs fn as the named task. The execution is recorded whether fn
// returns an error or panics.
func Time(tl *TimeLord, name string, fn func() error) error {
	tt := StartTask(tl, name)
	defer tt.Stop()
	return fn()
}
