// Package split partitions a record stream into sorted level-0 runs.
//
// Records are buffered until their size estimate (line length plus two
// bytes each) reaches ChunkSizeBytes, sorted in memory and written as one
// run. Chunks are sorted and persisted concurrently, bounded by the worker
// slots and memory budget of a resource.Controller, while the next chunk is
// being read.
package split
