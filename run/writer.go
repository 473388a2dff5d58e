package run

import (
	"bufio"
	"context"
	"errors"

	"github.com/hupe1980/filesort/blobstore"
	"github.com/hupe1980/filesort/internal/ioerr"
	"github.com/hupe1980/filesort/record"
	"github.com/hupe1980/filesort/resource"
)

const writeBufferSize = 64 * 1024

// Writer persists records to a new run.
// The run becomes visible in the store when Close succeeds.
type Writer struct {
	info Info
	blob blobstore.WritableBlob
	comp interface{ Close() error }
	bw   *bufio.Writer

	closed bool
}

// Create starts a run described by info (Name, Level, Index, Compression).
func Create(ctx context.Context, store blobstore.BlobStore, info Info, rc *resource.Controller) (*Writer, error) {
	blob, err := store.Create(ctx, info.Name)
	if err != nil {
		return nil, ioerr.Wrap("create", info.Name, err)
	}

	comp, err := info.Compression.compressor(resource.NewRateLimitedWriter(ctx, blob, rc))
	if err != nil {
		_ = blobstore.Abort(ctx, blob)
		return nil, err
	}

	info.Records, info.Bytes, info.Estimate = 0, 0, 0
	return &Writer{
		info: info,
		blob: blob,
		comp: comp,
		bw:   bufio.NewWriterSize(comp, writeBufferSize),
	}, nil
}

// Write appends line followed by "\n".
func (w *Writer) Write(line string) error {
	if w.closed {
		return ioerr.Wrap("write", w.info.Name, errors.New("run writer closed"))
	}
	if _, err := w.bw.WriteString(line); err != nil {
		return ioerr.Wrap("write", w.info.Name, err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return ioerr.Wrap("write", w.info.Name, err)
	}
	w.info.Records++
	w.info.Bytes += int64(len(line)) + 1
	w.info.Estimate += int64(len(line)) + 2
	return nil
}

// WriteRecord appends rec.Line.
func (w *Writer) WriteRecord(rec record.Record) error {
	return w.Write(rec.Line)
}

// Info returns the run description accumulated so far.
func (w *Writer) Info() Info { return w.info }

// Close flushes and publishes the run.
// On error the partial run is discarded.
func (w *Writer) Close(ctx context.Context) (Info, error) {
	if w.closed {
		return w.info, nil
	}
	w.closed = true

	if err := w.bw.Flush(); err != nil {
		_ = blobstore.Abort(ctx, w.blob)
		return Info{}, ioerr.Wrap("flush", w.info.Name, err)
	}
	if err := w.comp.Close(); err != nil {
		_ = blobstore.Abort(ctx, w.blob)
		return Info{}, ioerr.Wrap("flush", w.info.Name, err)
	}
	if err := w.blob.Sync(); err != nil {
		_ = blobstore.Abort(ctx, w.blob)
		return Info{}, ioerr.Wrap("sync", w.info.Name, err)
	}
	if err := w.blob.Close(); err != nil {
		return Info{}, ioerr.Wrap("close", w.info.Name, err)
	}
	return w.info, nil
}

// Abort discards the run. It is a no-op after Close.
func (w *Writer) Abort(ctx context.Context) error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.comp.Close()
	return blobstore.Abort(ctx, w.blob)
}
