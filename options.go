package filesort

import (
	"log/slog"

	"github.com/hupe1980/filesort/codec"
	"github.com/hupe1980/filesort/merge"
	"github.com/hupe1980/filesort/record"
	"github.com/hupe1980/filesort/run"
	"github.com/hupe1980/filesort/split"
)

type options struct {
	chunkSize        int64
	policy           record.Policy
	fanIn            int
	selection        merge.Selection
	compression      run.Compression
	workers          int64
	memoryLimit      int64
	ioLimit          int64
	maxOpenRuns      int64
	codec            codec.Codec
	manifest         bool
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Sorter.
type Option func(*options)

// WithChunkSize sets the chunk size estimate in bytes. A chunk is closed
// once the sum of len(line)+2 over its records reaches size.
// Defaults to 64 MiB.
func WithChunkSize(size int64) Option {
	return func(o *options) {
		o.chunkSize = size
	}
}

// WithPolicy sets how malformed lines are handled. Defaults to FailFast.
func WithPolicy(p record.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithFanIn sets the maximum number of runs merged in one pass.
// More runs are merged in several passes through intermediate runs.
func WithFanIn(n int) Option {
	return func(o *options) {
		o.fanIn = n
	}
}

// WithSelection chooses heap or scan selection of the minimum run head.
func WithSelection(s merge.Selection) Option {
	return func(o *options) {
		o.selection = s
	}
}

// WithCompression sets the encoding of run blobs.
//
// Example:
//
//	s, _ := filesort.New(filesort.Local(""), filesort.WithCompression(run.CompressionZstd))
func WithCompression(c run.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithWorkers sets how many chunks are sorted, or intermediate runs merged,
// concurrently.
func WithWorkers(n int64) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMemoryLimit caps the bytes reserved by in-flight chunk buffers.
// Each chunk reserves the chunk size, clamped to the limit.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithIOLimit caps run read and write throughput in bytes per second.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithMaxOpenRuns caps the number of runs open at once. It also caps the
// fan-in.
func WithMaxOpenRuns(n int64) Option {
	return func(o *options) {
		o.maxOpenRuns = n
	}
}

// WithCodec configures the codec used for manifests.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithoutManifest disables the run manifest. Runs left behind by a crash
// can then only be found by Cleanup's prefix scan.
func WithoutManifest() Option {
	return func(o *options) {
		o.manifest = false
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &filesort.BasicMetricsCollector{}
//	s, _ := filesort.New(filesort.Memory(), filesort.WithMetricsCollector(metrics))
//	// ... use s ...
//	stats := metrics.GetStats()
//	fmt.Printf("Merged: %d records\n", stats.MergeRecords)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(opts []Option) options {
	o := options{
		chunkSize:   split.DefaultChunkSize,
		policy:      record.FailFast,
		fanIn:       merge.DefaultFanIn,
		selection:   merge.SelectHeap,
		compression: run.CompressionNone,
		workers:     1,
		codec:       codec.Default,
		manifest:    true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
