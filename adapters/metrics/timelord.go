// Package metrics exports task timings and trial counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gollh/internal/timing"
)

const namespace = "gollh"

// TimeLordCollector exposes the task records of a TimeLord. Values are read
// at scrape time.
type TimeLordCollector struct {
	tl *timing.TimeLord

	duration *prometheus.Desc
	niter    *prometheus.Desc
}

// NewTimeLordCollector creates a collector for tl.
func NewTimeLordCollector(tl *timing.TimeLord) *TimeLordCollector {
	return &TimeLordCollector{
		tl: tl,
		duration: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "task", "duration_seconds"),
			"Wall time covered by all executions of the task",
			[]string{"task"}, nil,
		),
		niter: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "task", "iterations_total"),
			"Number of recorded executions of the task",
			[]string{"task"}, nil,
		),
	}
}

func (c *TimeLordCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.duration
	ch <- c.niter
}

func (c *TimeLordCollector) Collect(ch chan<- prometheus.Metric) {
	for _, rec := range c.tl.Records() {
		ch <- prometheus.MustNewConstMetric(c.duration, prometheus.GaugeValue, rec.Duration(), rec.Name())
		ch <- prometheus.MustNewConstMetric(c.niter, prometheus.CounterValue, float64(rec.NIter()), rec.Name())
	}
}

// TrialMetrics counts generated trials and events.
type TrialMetrics struct {
	Trials *prometheus.CounterVec
	Events *prometheus.CounterVec
	TS     prometheus.Histogram
}

// NewTrialMetrics creates the trial metrics and registers them on reg.
func NewTrialMetrics(reg prometheus.Registerer) (*TrialMetrics, error) {
	m := &TrialMetrics{
		Trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trials",
			Name:      "generated_total",
			Help:      "Total generated trials by kind",
		}, []string{"kind"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trials",
			Name:      "events_total",
			Help:      "Total generated events by origin",
		}, []string{"origin"}),
		TS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trials",
			Name:      "test_statistic",
			Help:      "Distribution of the trial test statistic",
			Buckets:   []float64{0, 0.5, 1, 2, 4, 8, 16, 25, 50},
		}),
	}
	for _, c := range []prometheus.Collector{m.Trials, m.Events, m.TS} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register adds a TimeLord collector and the trial metrics to a new
// registry.
func Register(tl *timing.TimeLord) (*prometheus.Registry, *TrialMetrics, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewTimeLordCollector(tl)); err != nil {
		return nil, nil, err
	}
	m, err := NewTrialMetrics(reg)
	if err != nil {
		return nil, nil, err
	}
	return reg, m, nil
}

// WriteTextfile writes the registry in the node exporter textfile format.
func WriteTextfile(path string, reg *prometheus.Registry) error {
	return prometheus.WriteToTextfile(path, reg)
}
