// Package pool provides reusable record buffers for chunk splitting.
package pool

import (
	"sync"

	"github.com/hupe1980/filesort/record"
)

const (
	// DefaultCapacity is the initial capacity of a new buffer.
	DefaultCapacity = 4096

	// MaxRetainedCapacity is the largest buffer returned to the pool.
	// Larger buffers are left to the garbage collector.
	MaxRetainedCapacity = 1 << 22
)

// Buffer holds the records of one chunk.
type Buffer struct {
	Records []record.Record
}

var bufferPool = sync.Pool{
	New: func() any {
		return &Buffer{Records: make([]record.Record, 0, DefaultCapacity)}
	},
}

// Get retrieves an empty Buffer from the pool.
func Get() *Buffer {
	return bufferPool.Get().(*Buffer)
}

// Put returns b to the pool for reuse.
func Put(b *Buffer) {
	if b == nil || cap(b.Records) > MaxRetainedCapacity {
		return
	}
	b.Reset()
	bufferPool.Put(b)
}

// Reset empties b and drops its references to record lines.
func (b *Buffer) Reset() {
	clear(b.Records)
	b.Records = b.Records[:0]
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int { return len(b.Records) }
