package merge

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/hupe1980/filesort/blobstore"
	"github.com/hupe1980/filesort/internal/ioerr"
	"github.com/hupe1980/filesort/record"
	"github.com/hupe1980/filesort/resource"
	"github.com/hupe1980/filesort/run"
	"github.com/hupe1980/filesort/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRuns(t *testing.T, store blobstore.BlobStore, runs ...[]string) []run.Info {
	t.Helper()
	ctx := context.Background()

	infos := make([]run.Info, len(runs))
	for i, lines := range runs {
		w, err := run.Create(ctx, store, run.Namer{Prefix: "in"}.Info(0, i, run.CompressionNone), nil)
		require.NoError(t, err)
		for _, l := range lines {
			require.NoError(t, w.Write(l))
		}
		infos[i], err = w.Close(ctx)
		require.NoError(t, err)
	}
	return infos
}

func randomRuns(rng *testutil.RNG, n, size int) [][]string {
	out := make([][]string, n)
	for i := range out {
		out[i] = testutil.Sorted(rng.Records(rng.Intn(size+1), 4))
	}
	return out
}

func newMerger(t *testing.T, store blobstore.BlobStore, optFns ...func(o *Options)) *Merger {
	t.Helper()
	m, err := New(store, optFns...)
	require.NoError(t, err)
	return m
}

func mergeLines(t *testing.T, m *Merger, runs []run.Info) ([]string, Stats) {
	t.Helper()
	var out bytes.Buffer
	stats, err := m.Merge(context.Background(), runs, &out)
	require.NoError(t, err)
	return testutil.Split(out.String()), stats
}

func TestMerge_TwoRuns(t *testing.T) {
	store := blobstore.NewMemoryStore()
	runs := writeRuns(t, store, []string{"1.aa", "3.cc"}, []string{"2.bb"})

	for _, sel := range []Selection{SelectHeap, SelectScan} {
		t.Run(sel.String(), func(t *testing.T) {
			m := newMerger(t, store, func(o *Options) { o.Selection = sel })
			got, stats := mergeLines(t, m, runs)
			assert.Equal(t, []string{"1.aa", "2.bb", "3.cc"}, got)
			assert.Equal(t, Stats{Runs: 2, Records: 3, Passes: 1}, stats)
		})
	}
}

func TestMerge_Empty(t *testing.T) {
	store := blobstore.NewMemoryStore()
	m := newMerger(t, store)

	got, stats := mergeLines(t, m, nil)
	assert.Empty(t, got)
	assert.Equal(t, int64(0), stats.Records)

	got, _ = mergeLines(t, m, writeRuns(t, store, nil, nil))
	assert.Empty(t, got)
}

func TestMerge_SingleRunPassThrough(t *testing.T) {
	store := blobstore.NewMemoryStore()
	lines := []string{"7.a", "1.b", "1.b", "0.c"}
	runs := writeRuns(t, store, lines)

	got, _ := mergeLines(t, newMerger(t, store), runs)
	assert.Equal(t, lines, got)
}

func TestMerge_TiesFollowRunOrder(t *testing.T) {
	store := blobstore.NewMemoryStore()
	// "01.x" and "1.x" carry equal keys; the earlier run wins.
	runs := writeRuns(t, store, []string{"1.x"}, []string{"01.x"}, []string{"001.x"})

	for _, sel := range []Selection{SelectHeap, SelectScan} {
		m := newMerger(t, store, func(o *Options) { o.Selection = sel })
		got, _ := mergeLines(t, m, runs)
		assert.Equal(t, []string{"1.x", "01.x", "001.x"}, got, sel.String())
	}
}

func TestMerge_HeapScanEquivalence(t *testing.T) {
	rng := testutil.NewRNG(42)
	store := blobstore.NewMemoryStore()
	input := randomRuns(rng, 17, 60)
	runs := writeRuns(t, store, input...)

	heap, _ := mergeLines(t, newMerger(t, store, func(o *Options) { o.Selection = SelectHeap }), runs)
	scan, _ := mergeLines(t, newMerger(t, store, func(o *Options) { o.Selection = SelectScan }), runs)

	assert.Equal(t, heap, scan)
	assert.True(t, testutil.IsSorted(heap))
	assert.Equal(t, testutil.Sorted(slices.Concat(input...)), heap)
}

func TestMerge_MultiPass(t *testing.T) {
	rng := testutil.NewRNG(7)
	store := blobstore.NewMemoryStore()
	input := randomRuns(rng, 23, 40)
	runs := writeRuns(t, store, input...)

	m := newMerger(t, store, func(o *Options) {
		o.FanIn = 3
		o.Namer = run.Namer{Prefix: "tmp"}
		o.Compression = run.CompressionZstd
		o.Controller = resource.NewController(resource.Config{MaxWorkers: 4})
	})

	got, stats := mergeLines(t, m, runs)
	assert.Equal(t, testutil.Sorted(slices.Concat(input...)), got)
	assert.Equal(t, 23, stats.Runs)
	// 23 -> 8 -> 3 -> final
	assert.Equal(t, 3, stats.Passes)
	assert.Equal(t, 8+3, stats.Intermediate)

	names, err := store.List(context.Background(), "tmp")
	require.NoError(t, err)
	assert.Empty(t, names, "intermediate runs must be deleted")

	names, err = store.List(context.Background(), "in")
	require.NoError(t, err)
	assert.Len(t, names, 23, "input runs must survive")
}

func TestMerge_Idempotent(t *testing.T) {
	rng := testutil.NewRNG(9)
	store := blobstore.NewMemoryStore()
	input := randomRuns(rng, 5, 30)
	m := newMerger(t, store)

	once, _ := mergeLines(t, m, writeRuns(t, store, input...))

	store2 := blobstore.NewMemoryStore()
	twice, _ := mergeLines(t, newMerger(t, store2), writeRuns(t, store2, once))
	assert.Equal(t, once, twice)
}

func TestMerge_MaxOpenRunsCapsFanIn(t *testing.T) {
	store := blobstore.NewMemoryStore()
	rc := resource.NewController(resource.Config{MaxOpenRuns: 4})
	m := newMerger(t, store, func(o *Options) {
		o.FanIn = 64
		o.Controller = rc
		o.Namer = run.Namer{Prefix: "tmp"}
	})
	assert.Equal(t, 4, m.FanIn())

	input := randomRuns(testutil.NewRNG(11), 10, 20)
	got, stats := mergeLines(t, m, writeRuns(t, store, input...))
	assert.Equal(t, testutil.Sorted(slices.Concat(input...)), got)
	assert.Greater(t, stats.Passes, 1)
	assert.Equal(t, int64(0), rc.OpenHandles())
}

func TestMerge_All(t *testing.T) {
	store := blobstore.NewMemoryStore()
	runs := writeRuns(t, store, []string{"1.aa", "3.cc"}, []string{"2.bb"})
	m := newMerger(t, store)

	var got []string
	for rec, err := range m.All(context.Background(), runs) {
		require.NoError(t, err)
		got = append(got, rec.Line)
		assert.Equal(t, record.KeyOf(rec.Line), rec.Key)
	}
	assert.Equal(t, []string{"1.aa", "2.bb", "3.cc"}, got)
}

func TestMerge_AllStopEarly(t *testing.T) {
	store := blobstore.NewMemoryStore()
	rc := resource.NewController(resource.Config{MaxOpenRuns: 8})
	runs := writeRuns(t, store, []string{"1.a", "2.a"}, []string{"1.b"})
	m := newMerger(t, store, func(o *Options) { o.Controller = rc })

	for range m.All(context.Background(), runs) {
		break
	}
	assert.Equal(t, int64(0), rc.OpenHandles())
}

func TestMerge_MissingRun(t *testing.T) {
	store := blobstore.NewMemoryStore()
	runs := writeRuns(t, store, []string{"1.a"})
	runs = append(runs, run.Info{Name: "in/missing.txt"})

	_, err := newMerger(t, store).Merge(context.Background(), runs, &bytes.Buffer{})
	assert.ErrorIs(t, err, ioerr.ErrIO)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestMerge_OutputFailure(t *testing.T) {
	store := blobstore.NewMemoryStore()
	runs := writeRuns(t, store, []string{strings.Repeat("x", 100) + ".a"})

	_, err := newMerger(t, store).Merge(context.Background(), runs, failingWriter{})
	var ioErr *ioerr.Error
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "output", ioErr.Name)
}

func TestMerge_IntermediateFailureCleansUp(t *testing.T) {
	mem := blobstore.NewMemoryStore()
	runs := writeRuns(t, mem, randomRuns(testutil.NewRNG(5), 9, 20)...)

	store := testutil.NewFaultyStore(mem)
	store.AddRule("tmp/run-L1-000002", testutil.Fault{FailOnClose: true})

	m := newMerger(t, store, func(o *Options) {
		o.FanIn = 2
		o.Namer = run.Namer{Prefix: "tmp"}
	})
	_, err := m.Merge(context.Background(), runs, &bytes.Buffer{})
	assert.ErrorIs(t, err, testutil.ErrInjected)

	names, err := mem.List(context.Background(), "tmp")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNew_InvalidFanIn(t *testing.T) {
	_, err := New(blobstore.NewMemoryStore(), func(o *Options) { o.FanIn = 1 })
	assert.ErrorIs(t, err, ErrInvalidFanIn)
}

func TestNew_MaxOpenRuns(t *testing.T) {
	store := blobstore.NewMemoryStore()

	_, err := New(store, func(o *Options) {
		o.Controller = resource.NewController(resource.Config{MaxOpenRuns: 1})
	})
	assert.ErrorIs(t, err, ErrInvalidMaxOpenRuns)

	m, err := New(store, func(o *Options) {
		o.FanIn = 8
		o.Controller = resource.NewController(resource.Config{MaxOpenRuns: 2})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.FanIn())
}
