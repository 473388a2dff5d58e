package run

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/filesort/blobstore"
	"github.com/hupe1980/filesort/internal/ioerr"
	"github.com/hupe1980/filesort/record"
	"github.com/hupe1980/filesort/resource"
)

const readBufferSize = 64 * 1024

// Reader streams the records of a run in order.
type Reader struct {
	info   Info
	blob   blobstore.Blob
	stream io.ReadCloser
	dec    io.ReadCloser
	lr     *record.Reader
}

// Open opens the run described by info.
func Open(ctx context.Context, store blobstore.BlobStore, info Info, rc *resource.Controller) (*Reader, error) {
	blob, err := store.Open(ctx, info.Name)
	if err != nil {
		return nil, ioerr.Wrap("open", info.Name, err)
	}

	r := &Reader{info: info, blob: blob}
	if blob.Size() == 0 {
		return r, nil
	}

	stream, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		_ = blob.Close()
		return nil, ioerr.Wrap("open", info.Name, err)
	}

	dec, err := info.Compression.decompressor(resource.NewRateLimitedReader(ctx, stream, rc))
	if err != nil {
		_ = stream.Close()
		_ = blob.Close()
		return nil, ioerr.Wrap("open", info.Name, err)
	}

	r.stream = stream
	r.dec = dec
	r.lr = record.NewRawReader(dec, readBufferSize)
	return r, nil
}

// Info returns the run description.
func (r *Reader) Info() Info { return r.info }

// Next returns the next line, or io.EOF once the run is exhausted.
func (r *Reader) Next() (string, error) {
	if r.lr == nil {
		return "", io.EOF
	}
	line, err := r.lr.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", ioerr.Wrap("read", r.info.Name, err)
	}
	return line, nil
}

// Close releases the decoder, the stream and the blob.
func (r *Reader) Close() error {
	var errs []error
	if r.dec != nil {
		errs = append(errs, r.dec.Close())
		r.dec = nil
	}
	if r.stream != nil {
		errs = append(errs, r.stream.Close())
		r.stream = nil
	}
	if r.blob != nil {
		errs = append(errs, r.blob.Close())
		r.blob = nil
	}
	r.lr = nil
	if err := errors.Join(errs...); err != nil {
		return ioerr.Wrap("close", r.info.Name, err)
	}
	return nil
}

// Delete removes the runs from store, joining all failures.
func Delete(ctx context.Context, store blobstore.BlobStore, runs []Info) error {
	var errs []error
	for _, info := range runs {
		if err := store.Delete(ctx, info.Name); err != nil {
			errs = append(errs, ioerr.Wrap("delete", info.Name, err))
		}
	}
	return errors.Join(errs...)
}
