package minio

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/hupe1980/filesort/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMinioStore_Integration needs a MinIO server on localhost:9000 and
// skips otherwise.
func TestMinioStore_Integration(t *testing.T) {
	ctx := context.Background()

	store, err := Dial(ctx, "localhost:9000", "filesort-test",
		WithStaticCredentials("minioadmin", "minioadmin"),
		WithPrefix("it/"+uuid.NewString()),
	)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	t.Run("PutOpen", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "CURRENT", []byte("MANIFEST-000001.json")))

		blob, err := store.Open(ctx, "CURRENT")
		require.NoError(t, err)
		defer func() { _ = blob.Close() }()

		buf := make([]byte, blob.Size())
		n, err := blob.ReadAt(ctx, buf, 0)
		require.NoError(t, err)
		assert.Equal(t, "MANIFEST-000001.json", string(buf[:n]))

		rc, err := blob.ReadRange(ctx, 9, 6)
		require.NoError(t, err)
		part, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "000001", string(part))
	})

	t.Run("StreamedRun", func(t *testing.T) {
		w, err := store.Create(ctx, "run-L0-000000.txt")
		require.NoError(t, err)
		_, err = w.Write([]byte("1.a\n2.b\n"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		blob, err := store.Open(ctx, "run-L0-000000.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(8), blob.Size())
		require.NoError(t, blob.Close())
	})

	t.Run("AbortedRun", func(t *testing.T) {
		w, err := store.Create(ctx, "run-L0-000001.txt")
		require.NoError(t, err)
		_, err = w.Write([]byte("partial"))
		require.NoError(t, err)
		require.NoError(t, blobstore.Abort(ctx, w))

		_, err = store.Open(ctx, "run-L0-000001.txt")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("ListDelete", func(t *testing.T) {
		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"CURRENT", "run-L0-000000.txt"}, names)

		for _, name := range names {
			require.NoError(t, store.Delete(ctx, name))
		}
		require.NoError(t, store.Delete(ctx, "CURRENT"))

		_, err = store.Open(ctx, "CURRENT")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})
}
