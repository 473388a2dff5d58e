package merge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"

	"github.com/hupe1980/filesort/blobstore"
	"github.com/hupe1980/filesort/internal/ioerr"
	"github.com/hupe1980/filesort/record"
	"github.com/hupe1980/filesort/run"
	"golang.org/x/sync/errgroup"
)

const outputBufferSize = 64 * 1024

var errStopped = errors.New("merge: consumer stopped")

// Stats summarizes a merge.
type Stats struct {
	// Runs is the number of input runs.
	Runs int
	// Records is the number of records emitted.
	Records int64
	// Passes is the number of passes, including the final one.
	Passes int
	// Intermediate is the number of intermediate runs written.
	Intermediate int
}

// Merger merges sorted runs from a blob store.
type Merger struct {
	store  blobstore.BlobStore
	opts   Options
	fanIn  int
	logger *slog.Logger
}

// New creates a Merger reading runs from store.
func New(store blobstore.BlobStore, optFns ...func(o *Options)) (*Merger, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.FanIn < 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFanIn, opts.FanIn)
	}

	fanIn := opts.FanIn
	limit := opts.Controller.MaxOpenRuns()
	if limit == 1 || limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxOpenRuns, limit)
	}
	if limit > 0 && limit < fanIn {
		fanIn = limit
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Merger{store: store, opts: opts, fanIn: fanIn, logger: logger}, nil
}

// FanIn returns the effective fan-in after applying the open-run limit.
func (m *Merger) FanIn() int { return m.fanIn }

// Merge writes the merged records of runs to w, one per line.
// A failed merge leaves w with partial, invalid output.
func (m *Merger) Merge(ctx context.Context, runs []run.Info, w io.Writer) (Stats, error) {
	bw := bufio.NewWriterSize(w, outputBufferSize)

	stats, err := m.stream(ctx, runs, func(rec record.Record) error {
		if _, err := bw.WriteString(rec.Line); err != nil {
			return ioerr.Wrap("write", "output", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return ioerr.Wrap("write", "output", err)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	if err := bw.Flush(); err != nil {
		return stats, ioerr.Wrap("flush", "output", err)
	}
	return stats, nil
}

// All returns an iterator over the merged records of runs. Iteration stops
// after the first error. Stopping early releases every open run.
func (m *Merger) All(ctx context.Context, runs []run.Info) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		_, err := m.stream(ctx, runs, func(rec record.Record) error {
			if !yield(rec, nil) {
				return errStopped
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(record.Record{}, err)
		}
	}
}

// stream reduces runs to at most FanIn and feeds the final pass to emit.
// Intermediate runs are deleted on every exit path.
func (m *Merger) stream(ctx context.Context, runs []run.Info, emit func(record.Record) error) (stats Stats, err error) {
	stats.Runs = len(runs)

	final, owned, err := m.reduce(ctx, runs, &stats)
	defer func() {
		if derr := run.Delete(context.WithoutCancel(ctx), m.store, owned); derr != nil {
			m.logger.Warn("failed to delete intermediate runs", "runs", len(owned), "error", derr)
		}
	}()
	if err != nil {
		return stats, err
	}

	stats.Passes++
	m.logger.Debug("final merge pass", "runs", len(final), "pass", stats.Passes)

	k, err := openKWay(ctx, m.store, final, m.opts.Selection, m.opts.Controller)
	if err != nil {
		return stats, err
	}
	defer func() {
		err = errors.Join(err, k.close())
	}()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rec, err := k.next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		if err := emit(rec); err != nil {
			return stats, err
		}
		stats.Records++
	}
}

// reduce runs intermediate passes until at most FanIn runs remain. It returns
// the runs for the final pass and the intermediate runs still alive, which
// the caller must delete.
func (m *Merger) reduce(ctx context.Context, runs []run.Info, stats *Stats) ([]run.Info, []run.Info, error) {
	level := 0
	for _, r := range runs {
		level = max(level, r.Level+1)
	}

	var owned []run.Info
	isOwned := func(r run.Info) bool {
		return slices.ContainsFunc(owned, func(o run.Info) bool { return o.Name == r.Name })
	}

	for len(runs) > m.fanIn {
		stats.Passes++
		groups := slices.Collect(slices.Chunk(runs, m.fanIn))
		next := make([]run.Info, len(groups))

		m.logger.Debug("intermediate merge pass",
			"pass", stats.Passes,
			"runs", len(runs),
			"groups", len(groups),
			"level", level,
		)

		rc := m.opts.Controller
		g, gctx := errgroup.WithContext(ctx)
		for i, group := range groups {
			if len(group) == 1 {
				next[i] = group[0]
				continue
			}
			if err := rc.AcquireWorker(gctx); err != nil {
				break
			}
			g.Go(func() error {
				defer rc.ReleaseWorker()
				info, err := m.mergeToRun(gctx, group, m.opts.Namer.Info(level, i, m.opts.Compression))
				if err != nil {
					return err
				}
				next[i] = info
				return nil
			})
		}
		err := g.Wait()
		if err == nil {
			err = ctx.Err()
		}

		for _, info := range next {
			if info.Name != "" && info.Level == level {
				owned = append(owned, info)
				stats.Intermediate++
			}
		}
		if err != nil {
			return nil, owned, err
		}

		consumed := slices.DeleteFunc(slices.Clone(runs), func(r run.Info) bool {
			return !isOwned(r) || slices.ContainsFunc(next, func(n run.Info) bool { return n.Name == r.Name })
		})
		if derr := run.Delete(context.WithoutCancel(ctx), m.store, consumed); derr != nil {
			m.logger.Warn("failed to delete consumed runs", "runs", len(consumed), "error", derr)
		}
		owned = slices.DeleteFunc(owned, func(o run.Info) bool {
			return slices.ContainsFunc(consumed, func(c run.Info) bool { return c.Name == o.Name })
		})

		runs = next
		level++
	}
	return runs, owned, nil
}

// mergeToRun merges group into a new run described by info.
func (m *Merger) mergeToRun(ctx context.Context, group []run.Info, info run.Info) (run.Info, error) {
	k, err := openKWay(ctx, m.store, group, m.opts.Selection, m.opts.Controller)
	if err != nil {
		return run.Info{}, err
	}

	w, err := run.Create(ctx, m.store, info, m.opts.Controller)
	if err != nil {
		return run.Info{}, errors.Join(err, k.close())
	}

	for {
		rec, err := k.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err == nil {
			err = w.Write(rec.Line)
		}
		if err != nil {
			return run.Info{}, errors.Join(err, w.Abort(ctx), k.close())
		}
	}

	if err := k.close(); err != nil {
		return run.Info{}, errors.Join(err, w.Abort(ctx))
	}
	return w.Close(ctx)
}
