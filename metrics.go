package filesort

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems.
// See package metrics/prom for a Prometheus implementation.
type MetricsCollector interface {
	// RecordSplit is called after each split phase.
	// runs and records describe what was written, err is nil if successful.
	RecordSplit(runs int, records int64, duration time.Duration, err error)

	// RecordMerge is called after each merge phase.
	RecordMerge(runs, passes int, records int64, duration time.Duration, err error)

	// RecordMalformed is called for every line whose key could not be parsed.
	RecordMalformed()

	// RecordDiscard is called after runs are deleted.
	RecordDiscard(runs int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSplit(int, int64, time.Duration, error)      {}
func (NoopMetricsCollector) RecordMerge(int, int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordMalformed()                                  {}
func (NoopMetricsCollector) RecordDiscard(int, error)                          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	SplitCount       atomic.Int64
	SplitErrors      atomic.Int64
	SplitRuns        atomic.Int64
	SplitRecords     atomic.Int64
	SplitTotalNanos  atomic.Int64
	MergeCount       atomic.Int64
	MergeErrors      atomic.Int64
	MergePasses      atomic.Int64
	MergeRecords     atomic.Int64
	MergeTotalNanos  atomic.Int64
	MalformedRecords atomic.Int64
	DiscardCount     atomic.Int64
	DiscardRuns      atomic.Int64
	DiscardErrors    atomic.Int64
}

// RecordSplit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSplit(runs int, records int64, duration time.Duration, err error) {
	b.SplitCount.Add(1)
	b.SplitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SplitErrors.Add(1)
		return
	}
	b.SplitRuns.Add(int64(runs))
	b.SplitRecords.Add(records)
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(runs, passes int, records int64, duration time.Duration, err error) {
	b.MergeCount.Add(1)
	b.MergeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MergeErrors.Add(1)
		return
	}
	b.MergePasses.Add(int64(passes))
	b.MergeRecords.Add(records)
}

// RecordMalformed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMalformed() {
	b.MalformedRecords.Add(1)
}

// RecordDiscard implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDiscard(runs int, err error) {
	b.DiscardCount.Add(1)
	b.DiscardRuns.Add(int64(runs))
	if err != nil {
		b.DiscardErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SplitCount:       b.SplitCount.Load(),
		SplitErrors:      b.SplitErrors.Load(),
		SplitRuns:        b.SplitRuns.Load(),
		SplitRecords:     b.SplitRecords.Load(),
		SplitAvgNanos:    avg(b.SplitTotalNanos.Load(), b.SplitCount.Load()),
		MergeCount:       b.MergeCount.Load(),
		MergeErrors:      b.MergeErrors.Load(),
		MergePasses:      b.MergePasses.Load(),
		MergeRecords:     b.MergeRecords.Load(),
		MergeAvgNanos:    avg(b.MergeTotalNanos.Load(), b.MergeCount.Load()),
		MalformedRecords: b.MalformedRecords.Load(),
		DiscardCount:     b.DiscardCount.Load(),
		DiscardRuns:      b.DiscardRuns.Load(),
		DiscardErrors:    b.DiscardErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SplitCount       int64
	SplitErrors      int64
	SplitRuns        int64
	SplitRecords     int64
	SplitAvgNanos    int64
	MergeCount       int64
	MergeErrors      int64
	MergePasses      int64
	MergeRecords     int64
	MergeAvgNanos    int64
	MalformedRecords int64
	DiscardCount     int64
	DiscardRuns      int64
	DiscardErrors    int64
}
