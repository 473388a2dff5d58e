package split

import (
	"errors"
	"log/slog"

	"github.com/hupe1980/filesort/record"
	"github.com/hupe1980/filesort/resource"
	"github.com/hupe1980/filesort/run"
)

// DefaultChunkSize is the default chunk size estimate in bytes.
const DefaultChunkSize = 64 << 20

// ErrInvalidChunkSize is returned for a non-positive chunk size.
var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// Options configures a Splitter.
type Options struct {
	// ChunkSizeBytes is the estimate at which a chunk is closed.
	ChunkSizeBytes int64
	// Comparator orders records and applies the malformed-key policy.
	Comparator *record.Comparator
	// Namer names the runs. Its prefix usually identifies the sort job.
	Namer run.Namer
	// Compression encodes run blobs.
	Compression run.Compression
	// Controller bounds memory, workers and IO. Nil imposes no limits.
	Controller *resource.Controller
	// ReadBufferSize is the input buffer size.
	ReadBufferSize int
	// Logger receives per-run debug logs.
	Logger *slog.Logger
}

// DefaultOptions contains the default options for a Splitter.
var DefaultOptions = Options{
	ChunkSizeBytes: DefaultChunkSize,
	Compression:    run.CompressionNone,
	ReadBufferSize: 64 * 1024,
}
