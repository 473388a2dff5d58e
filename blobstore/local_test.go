package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	// 1. Create a run blob in a job directory
	blobName := "job-1/run-L0-000000.txt"
	data := []byte("2.aa\n9.aa\n5.bb\n")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	// Not visible before Close
	_, err = os.Stat(filepath.Join(tmpDir, "job-1", "run-L0-000000.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), os.ErrClosed)

	_, err = os.Stat(filepath.Join(tmpDir, "job-1", "run-L0-000000.txt"))
	require.NoError(t, err)

	// 2. Open and ReadAt
	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 4)
	n, err = blob.ReadAt(ctx, buf, 5)
	require.NoError(t, err)
	require.Equal(t, "9.aa", string(buf[:n]))

	// 3. ReadRange
	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, data, content)

	// 4. List
	require.NoError(t, store.Put(ctx, "job-1/run-L0-000001.txt", []byte("1.a\n")))
	require.NoError(t, store.Put(ctx, "MANIFEST-000001.json", []byte("{}")))

	names, err := store.List(ctx, "job-1/")
	require.NoError(t, err)
	require.Equal(t, []string{"job-1/run-L0-000000.txt", "job-1/run-L0-000001.txt"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	// 5. Delete
	require.NoError(t, store.Delete(ctx, "job-1/run-L0-000001.txt"))
	require.NoError(t, store.Delete(ctx, "job-1/run-L0-000001.txt"), "delete is idempotent")

	_, err = store.Open(ctx, "job-1/run-L0-000001.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ReadRange_Boundaries(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "boundary.bin", []byte("0123456789")))

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)
	defer blob.Close()

	r, err := blob.ReadRange(ctx, 8, 5)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "89", string(content))

	_, err = blob.ReadRange(ctx, 20, 5)
	require.ErrorIs(t, err, io.EOF)
}

func TestLocalStore_EmptyBlob(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "empty.txt", nil))

	blob, err := store.Open(ctx, "empty.txt")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(0), blob.Size())
	_, err = blob.ReadRange(ctx, 0, 1)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLocalStore_Abort(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	w, err := store.Create(ctx, "aborted.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, Abort(ctx, w))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary file is removed")
}

func TestLocalStore_ListUnfinished(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "jobs/a/run-L0-000001.txt", []byte("1.a\n")))

	// Never closed, as after a crash.
	w, err := store.Create(ctx, "jobs/a/run-L0-000000.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("1.a\n"))
	require.NoError(t, err)

	names, err := store.List(ctx, "jobs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs/a/run-L0-000001.txt"}, names)

	unfinished, err := store.ListUnfinished(ctx, "jobs/")
	require.NoError(t, err)
	require.Len(t, unfinished, 1)
	assert.Regexp(t, `^jobs/a/\.run-L0-000000\.txt\.tmp-`, unfinished[0])

	none, err := store.ListUnfinished(ctx, "other/")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, w.(*localWritableBlob).f.Close())
	require.NoError(t, store.Delete(ctx, unfinished[0]))
	entries, err := os.ReadDir(filepath.Join(tmpDir, "jobs", "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-L0-000001.txt", entries[0].Name())
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "does-not-exist"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Create(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.Open(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
