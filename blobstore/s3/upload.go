package s3

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/filesort/blobstore"
)

var errUploadAborted = errors.New("s3: upload aborted")

// UploadConfig controls multipart uploads.
type UploadConfig struct {
	// PartSize is the size of each uploaded part (minimum 5 MiB).
	PartSize int64
	// Concurrency is the number of parts uploaded in parallel.
	Concurrency int
}

// DefaultUploadConfig returns settings suited to run files of a few hundred MiB.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:    16 << 20,
		Concurrency: 4,
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize >= manager.MinUploadPartSize {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
		u.LeavePartsOnError = false
	})
}

// streamingBlob pipes writes into a background manager upload.
type streamingBlob struct {
	pw   *io.PipeWriter
	done chan struct{}
	err  error

	mu     sync.Mutex
	closed bool
}

var (
	_ blobstore.WritableBlob = (*streamingBlob)(nil)
	_ blobstore.Aborter      = (*streamingBlob)(nil)
)

func newStreamingBlob(ctx context.Context, uploader *manager.Uploader, bucket, key string) *streamingBlob {
	pr, pw := io.Pipe()
	b := &streamingBlob{
		pw:   pw,
		done: make(chan struct{}),
	}

	go func() {
		defer close(b.done)
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:            aws.String(bucket),
			Key:               aws.String(key),
			Body:              pr,
			ChecksumAlgorithm: types.ChecksumAlgorithmCrc32c,
		})
		b.err = err
		_ = pr.CloseWithError(err)
	}()

	return b
}

func (b *streamingBlob) Write(p []byte) (int, error) {
	return b.pw.Write(p)
}

// Sync is a no-op; data is durable once Close returns.
func (b *streamingBlob) Sync() error {
	return nil
}

// Close finishes the upload and waits for it to complete.
func (b *streamingBlob) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	_ = b.pw.Close()
	<-b.done
	return b.err
}

// Abort cancels the upload. The uploader removes any parts already sent.
func (b *streamingBlob) Abort(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	_ = b.pw.CloseWithError(errUploadAborted)

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
