package filesort

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/google/uuid"
	"github.com/hupe1980/filesort/blobstore"
	"github.com/hupe1980/filesort/internal/ioerr"
	"github.com/hupe1980/filesort/manifest"
	"github.com/hupe1980/filesort/merge"
	"github.com/hupe1980/filesort/record"
	"github.com/hupe1980/filesort/resource"
	"github.com/hupe1980/filesort/run"
	"github.com/hupe1980/filesort/split"
)

// JobsPrefix is the blob name prefix under which every sort job writes its
// runs.
const JobsPrefix = "jobs"

// Policy aliases record.Policy.
type Policy = record.Policy

// Malformed-key policies.
const (
	FailFast          = record.FailFast
	SkipAndCount      = record.SkipAndCount
	BestEffortDefault = record.BestEffortDefault
)

// ParsePolicy returns the policy named "fail-fast", "skip-and-count" or
// "best-effort-default".
func ParsePolicy(s string) (Policy, error) { return record.ParsePolicy(s) }

// Backend selects where runs and manifests are stored.
type Backend struct {
	store blobstore.BlobStore
	dir   string
	local bool
}

// Local stores runs in dir. If dir is empty, a temporary directory is
// created by New and removed by Close.
func Local(dir string) Backend {
	return Backend{dir: dir, local: true}
}

// Memory stores runs in process memory.
func Memory() Backend {
	return Backend{store: blobstore.NewMemoryStore()}
}

// Remote stores runs in store, e.g. an s3.Store or minio.Store.
func Remote(store blobstore.BlobStore) Backend {
	return Backend{store: store}
}

// Stats summarizes a Sort.
type Stats struct {
	// Runs is the number of level-0 runs written by the split.
	Runs int
	// Records is the number of records written to the output.
	Records int64
	// Malformed is the number of lines whose key failed to parse.
	Malformed int64
	// Skipped holds the 1-based input line numbers dropped under
	// SkipAndCount.
	Skipped *roaring64.Bitmap
	// Passes is the number of merge passes.
	Passes int
	// Intermediate is the number of intermediate runs written by the merge.
	Intermediate int

	SplitDuration time.Duration
	MergeDuration time.Duration
}

// Sorter sorts `<integer>.<suffix>` records larger than memory.
//
// Sort, Split, Merge and Discard may be called concurrently. Cleanup waits
// for them to finish and blocks new ones while it runs.
type Sorter struct {
	store    blobstore.BlobStore
	opts     options
	rc       *resource.Controller
	cmp      *record.Comparator
	manifest *manifest.Store
	logger   *Logger
	metrics  MetricsCollector
	tempDir  string

	mu     sync.RWMutex
	closed bool
}

// New creates a Sorter on backend.
func New(backend Backend, opts ...Option) (*Sorter, error) {
	o := applyOptions(opts)

	s := &Sorter{
		opts:    o,
		logger:  o.logger,
		metrics: o.metricsCollector,
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes:   o.memoryLimit,
			MaxWorkers:         o.workers,
			MaxOpenRuns:        o.maxOpenRuns,
			IOLimitBytesPerSec: o.ioLimit,
		}),
	}
	s.cmp = record.NewComparator(o.policy, func(line string, err error) {
		s.logger.LogMalformed(line, err)
		s.metrics.RecordMalformed()
	})

	if _, err := s.newSplitter(""); err != nil {
		return nil, err
	}
	if _, err := s.newMerger(""); err != nil {
		return nil, err
	}

	switch {
	case backend.local:
		dir := backend.dir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "filesort-*")
			if err != nil {
				return nil, translateError(ioerr.Wrap("mkdir", "temp", err))
			}
			dir, s.tempDir = tmp, tmp
		}
		s.store = blobstore.NewLocalStore(dir)
	case backend.store != nil:
		s.store = backend.store
	default:
		s.store = blobstore.NewMemoryStore()
	}

	if o.manifest {
		s.manifest = manifest.NewStore(s.store, o.codec)
	}

	return s, nil
}

// Store returns the blob store holding runs.
func (s *Sorter) Store() blobstore.BlobStore { return s.store }

// Malformed returns the number of malformed lines seen by this Sorter.
func (s *Sorter) Malformed() int64 { return s.cmp.Malformed() }

func (s *Sorter) newJob() string {
	return path.Join(JobsPrefix, uuid.NewString())
}

func (s *Sorter) newSplitter(job string) (*split.Splitter, error) {
	sp, err := split.New(s.store, func(o *split.Options) {
		o.ChunkSizeBytes = s.opts.chunkSize
		o.Comparator = s.cmp
		o.Namer = run.Namer{Prefix: job}
		o.Compression = s.opts.compression
		o.Controller = s.rc
		o.Logger = s.logger.WithJob(job).Logger
	})
	return sp, translateError(err)
}

func (s *Sorter) newMerger(job string) (*merge.Merger, error) {
	m, err := merge.New(s.store, func(o *merge.Options) {
		o.FanIn = s.opts.fanIn
		o.Selection = s.opts.selection
		o.Namer = run.Namer{Prefix: job}
		o.Compression = s.opts.compression
		o.Controller = s.rc
		o.Logger = s.logger.WithJob(job).Logger
	})
	return m, translateError(err)
}

func (s *Sorter) acquire() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

// Sort reads records from r and writes them to w in sorted order, one per
// line. Runs are discarded on every exit path. On failure w holds partial,
// invalid output.
func (s *Sorter) Sort(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	if err := s.acquire(); err != nil {
		return Stats{}, err
	}
	defer s.mu.RUnlock()

	job := s.newJob()
	var stats Stats

	start := time.Now()
	res, err := s.split(ctx, r, job)
	stats.SplitDuration = time.Since(start)
	if err != nil {
		return stats, err
	}
	stats.Runs = len(res.Runs)
	stats.Malformed = res.Malformed
	stats.Skipped = res.Skipped

	defer func() {
		_ = s.discard(context.WithoutCancel(ctx), res.Runs)
	}()

	start = time.Now()
	ms, err := s.merge(ctx, res.Runs, w, job)
	stats.MergeDuration = time.Since(start)
	stats.Records = ms.Records
	stats.Passes = ms.Passes
	stats.Intermediate = ms.Intermediate

	return stats, err
}

// Split reads r and writes its records as sorted level-0 runs. The runs are
// recorded in the manifest until they are discarded.
func (s *Sorter) Split(ctx context.Context, r io.Reader) (*split.Result, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.mu.RUnlock()

	return s.split(ctx, r, s.newJob())
}

func (s *Sorter) split(ctx context.Context, r io.Reader, job string) (res *split.Result, err error) {
	start := time.Now()
	logger := s.logger.WithJob(job)
	defer func() {
		var (
			runs               int
			records, malformed int64
		)
		if res != nil {
			runs, records, malformed = len(res.Runs), res.Records, res.Malformed
		}
		logger.LogSplit(ctx, runs, records, malformed, err)
		s.metrics.RecordSplit(runs, records, time.Since(start), err)
	}()

	sp, err := s.newSplitter(job)
	if err != nil {
		return nil, err
	}

	res, err = sp.Split(ctx, r)
	if err != nil {
		return nil, translateError(err)
	}

	if s.manifest != nil && len(res.Runs) > 0 {
		_, err = s.manifest.Update(ctx, func(m *manifest.Manifest) error {
			m.AddRuns(res.Runs...)
			return nil
		})
		if err != nil {
			derr := run.Delete(context.WithoutCancel(ctx), s.store, res.Runs)
			return nil, translateError(errors.Join(ioerr.Wrap("update", manifest.CurrentFileName, err), derr))
		}
	}

	return res, nil
}

// Merge writes the merged records of runs to w. runs are left in place;
// call Discard to delete them.
func (s *Sorter) Merge(ctx context.Context, runs []run.Info, w io.Writer) (merge.Stats, error) {
	if err := s.acquire(); err != nil {
		return merge.Stats{}, err
	}
	defer s.mu.RUnlock()

	return s.merge(ctx, runs, w, s.newJob())
}

func (s *Sorter) merge(ctx context.Context, runs []run.Info, w io.Writer, job string) (stats merge.Stats, err error) {
	start := time.Now()
	defer func() {
		s.logger.WithJob(job).LogMerge(ctx, len(runs), stats.Records, stats.Passes, err)
		s.metrics.RecordMerge(len(runs), stats.Passes, stats.Records, time.Since(start), err)
	}()

	m, err := s.newMerger(job)
	if err != nil {
		return stats, err
	}

	stats, err = m.Merge(ctx, runs, w)
	return stats, translateError(err)
}

// Discard deletes runs and removes them from the manifest.
func (s *Sorter) Discard(ctx context.Context, runs []run.Info) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.mu.RUnlock()

	return s.discard(ctx, runs)
}

func (s *Sorter) discard(ctx context.Context, runs []run.Info) (err error) {
	defer func() {
		s.logger.LogDiscard(ctx, len(runs), err)
		s.metrics.RecordDiscard(len(runs), err)
	}()

	if err := run.Delete(ctx, s.store, runs); err != nil {
		return translateError(err)
	}

	if s.manifest != nil && len(runs) > 0 {
		_, err := s.manifest.Update(ctx, func(m *manifest.Manifest) error {
			m.RemoveRuns(runs...)
			return nil
		})
		if err != nil {
			return translateError(ioerr.Wrap("update", manifest.CurrentFileName, err))
		}
	}
	return nil
}

// Pending returns the runs recorded in the manifest and not yet discarded.
// It returns nil when the manifest is disabled.
func (s *Sorter) Pending(ctx context.Context) ([]run.Info, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.mu.RUnlock()

	if s.manifest == nil {
		return nil, nil
	}
	m, err := s.manifest.Load(ctx)
	if errors.Is(err, manifest.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(ioerr.Wrap("load", manifest.CurrentFileName, err))
	}
	return m.Runs, nil
}

// Cleanup deletes runs left behind by sorts that did not finish, such as
// after a crash: every run listed in the manifest, every blob under
// JobsPrefix and, for stores that keep them, temporary files of unfinished
// run writes. It returns the number of blobs deleted.
func (s *Sorter) Cleanup(ctx context.Context) (deleted int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	defer func() {
		s.logger.LogCleanup(ctx, deleted, err)
	}()

	var names []string
	if s.manifest != nil {
		m, err := s.manifest.Load(ctx)
		if err != nil && !errors.Is(err, manifest.ErrNotFound) {
			return 0, translateError(ioerr.Wrap("load", manifest.CurrentFileName, err))
		}
		if m != nil {
			for _, r := range m.Runs {
				names = append(names, r.Name)
			}
		}
	}

	listed, err := s.store.List(ctx, JobsPrefix+"/")
	if err != nil {
		return 0, translateError(ioerr.Wrap("list", JobsPrefix, err))
	}
	names = append(names, listed...)
	if ul, ok := s.store.(blobstore.UnfinishedLister); ok {
		unfinished, err := ul.ListUnfinished(ctx, JobsPrefix+"/")
		if err != nil {
			return 0, translateError(ioerr.Wrap("list", JobsPrefix, err))
		}
		names = append(names, unfinished...)
	}
	slices.Sort(names)
	names = slices.Compact(names)

	var errs []error
	for _, name := range names {
		if err := s.store.Delete(ctx, name); err != nil {
			errs = append(errs, ioerr.Wrap("delete", name, err))
			continue
		}
		deleted++
	}
	if err := errors.Join(errs...); err != nil {
		return deleted, translateError(err)
	}

	if s.manifest != nil {
		_, err := s.manifest.Update(ctx, func(m *manifest.Manifest) error {
			m.RemovePrefix("")
			return nil
		})
		if err != nil {
			return deleted, translateError(ioerr.Wrap("update", manifest.CurrentFileName, err))
		}
	}
	return deleted, nil
}

// Close releases the Sorter. A temporary directory created by Local("") is
// removed. Close waits for running operations.
func (s *Sorter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.tempDir != "" {
		if err := os.RemoveAll(s.tempDir); err != nil {
			return translateError(ioerr.Wrap("remove", s.tempDir, err))
		}
	}
	return nil
}
