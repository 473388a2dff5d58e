// Package prom exports filesort metrics to Prometheus.
package prom

import (
	"time"

	"github.com/hupe1980/filesort"
	"github.com/prometheus/client_golang/prometheus"
)

var _ filesort.MetricsCollector = (*Collector)(nil)

// Collector implements filesort.MetricsCollector with Prometheus metrics.
type Collector struct {
	phaseLatency *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	records      *prometheus.CounterVec
	passes       prometheus.Counter
	malformed    prometheus.Counter
	discarded    *prometheus.CounterVec
}

// New creates a Collector and registers its metrics with reg. If reg is nil,
// prometheus.DefaultRegisterer is used.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		phaseLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filesort_phase_duration_seconds",
			Help:    "Duration of split and merge phases",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase", "status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filesort_runs_total",
			Help: "Runs written by splits and read by merges",
		}, []string{"phase"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filesort_records_total",
			Help: "Records written by splits and merges",
		}, []string{"phase"}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filesort_merge_passes_total",
			Help: "Merge passes, including final passes",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filesort_malformed_records_total",
			Help: "Lines whose key could not be parsed",
		}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filesort_discarded_runs_total",
			Help: "Runs deleted after use",
		}, []string{"status"}),
	}

	for _, m := range []prometheus.Collector{c.phaseLatency, c.runs, c.records, c.passes, c.malformed, c.discarded} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordSplit implements filesort.MetricsCollector.
func (c *Collector) RecordSplit(runs int, records int64, d time.Duration, err error) {
	c.phaseLatency.WithLabelValues("split", status(err)).Observe(d.Seconds())
	c.runs.WithLabelValues("split").Add(float64(runs))
	c.records.WithLabelValues("split").Add(float64(records))
}

// RecordMerge implements filesort.MetricsCollector.
func (c *Collector) RecordMerge(runs, passes int, records int64, d time.Duration, err error) {
	c.phaseLatency.WithLabelValues("merge", status(err)).Observe(d.Seconds())
	c.runs.WithLabelValues("merge").Add(float64(runs))
	c.records.WithLabelValues("merge").Add(float64(records))
	c.passes.Add(float64(passes))
}

// RecordMalformed implements filesort.MetricsCollector.
func (c *Collector) RecordMalformed() {
	c.malformed.Inc()
}

// RecordDiscard implements filesort.MetricsCollector.
func (c *Collector) RecordDiscard(runs int, err error) {
	c.discarded.WithLabelValues(status(err)).Add(float64(runs))
}
