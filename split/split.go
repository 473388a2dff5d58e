package split

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/filesort/blobstore"
	"github.com/hupe1980/filesort/internal/ioerr"
	"github.com/hupe1980/filesort/internal/pool"
	"github.com/hupe1980/filesort/record"
	"github.com/hupe1980/filesort/run"
	"golang.org/x/sync/errgroup"
)

// Result describes the runs produced by one Split call.
type Result struct {
	// Runs holds one level-0 run per chunk, in input order.
	Runs []run.Info
	// Records is the number of records written to runs.
	Records int64
	// Malformed counts lines that failed to parse.
	Malformed int64
	// Skipped holds the 1-based input line numbers dropped under
	// SkipAndCount.
	Skipped *roaring64.Bitmap
}

// Splitter turns an input stream into sorted runs.
type Splitter struct {
	store  blobstore.BlobStore
	opts   Options
	logger *slog.Logger
}

// New creates a Splitter writing runs to store.
func New(store blobstore.BlobStore, optFns ...func(o *Options)) (*Splitter, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ChunkSizeBytes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, opts.ChunkSizeBytes)
	}
	if opts.Comparator == nil {
		opts.Comparator = record.NewComparator(record.FailFast, nil)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Splitter{store: store, opts: opts, logger: logger}, nil
}

// chunk is a filled buffer waiting to be sorted and persisted.
type chunk struct {
	index    int
	buf      *pool.Buffer
	estimate int64
	reserved int64
}

// Split reads r to the end and writes its records as sorted runs.
//
// On failure every run written by this call is deleted and no Result is
// returned.
func (s *Splitter) Split(ctx context.Context, r io.Reader) (*Result, error) {
	res := &Result{Skipped: roaring64.New()}
	lr := record.NewReader(r, s.opts.ReadBufferSize)
	rc := s.opts.Controller

	g, gctx := errgroup.WithContext(ctx)
	var (
		mu      sync.Mutex
		written = make(map[int]run.Info)
		chunks  int
		readErr error
	)

	for index := 0; ; index++ {
		reserved, err := rc.AcquireMemory(gctx, s.opts.ChunkSizeBytes)
		if err != nil {
			readErr = err
			break
		}

		c, eof, err := s.fill(gctx, lr, res)
		if err != nil || c.buf.Len() == 0 {
			pool.Put(c.buf)
			rc.ReleaseMemory(reserved)
			readErr = err
			break
		}
		c.index = index
		c.reserved = reserved
		chunks++

		if err := rc.AcquireWorker(gctx); err != nil {
			pool.Put(c.buf)
			rc.ReleaseMemory(reserved)
			readErr = err
			break
		}

		g.Go(func() error {
			defer rc.ReleaseWorker()
			defer rc.ReleaseMemory(c.reserved)
			defer pool.Put(c.buf)

			info, err := s.persist(gctx, c)
			if err != nil {
				return err
			}
			mu.Lock()
			written[c.index] = info
			mu.Unlock()
			return nil
		})

		if eof {
			break
		}
	}

	werr := g.Wait()
	err := werr
	if err == nil {
		err = readErr
	}
	if err != nil {
		orphans := make([]run.Info, 0, len(written))
		for _, info := range written {
			orphans = append(orphans, info)
		}
		if derr := run.Delete(context.WithoutCancel(ctx), s.store, orphans); derr != nil {
			s.logger.Warn("failed to delete runs after split failure", "runs", len(orphans), "error", derr)
		}
		return nil, err
	}

	res.Runs = make([]run.Info, chunks)
	for i := range chunks {
		res.Runs[i] = written[i]
		res.Records += written[i].Records
	}
	return res, nil
}

// fill reads records until the chunk estimate reaches ChunkSizeBytes or the
// input ends. The size check precedes each read, so a chunk overshoots by at
// most one record.
func (s *Splitter) fill(ctx context.Context, lr *record.Reader, res *Result) (chunk, bool, error) {
	c := chunk{buf: pool.Get()}
	for c.estimate < s.opts.ChunkSizeBytes {
		if err := ctx.Err(); err != nil {
			return c, false, err
		}

		line, err := lr.Next()
		if errors.Is(err, io.EOF) {
			return c, true, nil
		}
		if err != nil {
			return c, false, ioerr.Wrap("read", "input", err)
		}

		rec, verdict, err := s.opts.Comparator.Admit(line)
		if verdict.Malformed() {
			res.Malformed++
		}
		if err != nil {
			return c, false, fmt.Errorf("line %d: %w", lr.Line(), err)
		}
		if !verdict.Keep() {
			res.Skipped.Add(uint64(lr.Line()))
			continue
		}

		c.buf.Records = append(c.buf.Records, rec)
		c.estimate += rec.Size()
	}
	return c, false, nil
}

func (s *Splitter) persist(ctx context.Context, c chunk) (run.Info, error) {
	slices.SortStableFunc(c.buf.Records, record.Record.Compare)

	w, err := run.Create(ctx, s.store, s.opts.Namer.Info(0, c.index, s.opts.Compression), s.opts.Controller)
	if err != nil {
		return run.Info{}, err
	}
	for _, rec := range c.buf.Records {
		if err := w.WriteRecord(rec); err != nil {
			_ = w.Abort(ctx)
			return run.Info{}, err
		}
	}
	info, err := w.Close(ctx)
	if err != nil {
		return run.Info{}, err
	}

	s.logger.Debug("run written",
		"run", info.Name,
		"records", info.Records,
		"estimate", info.Estimate,
	)
	return info, nil
}
