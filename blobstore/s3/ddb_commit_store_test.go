package s3

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/filesort/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDDB keeps commit items in memory keyed by namespace and version.
type fakeDDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDDB() *fakeDDB {
	return &fakeDDB{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(ns, version string) string { return ns + "#" + version }

func (f *fakeDDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ns := params.Item["namespace"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := itemKey(ns, version)

	if aws.ToString(params.ConditionExpression) == "attribute_not_exists(version)" {
		if _, ok := f.items[key]; ok {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	}
	f.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDDB) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ns := params.ExpressionAttributeValues[":ns"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range f.items {
		if item["namespace"].(*types.AttributeValueMemberS).Value == ns {
			items = append(items, item)
		}
	}

	version := func(i int) uint64 {
		v, _ := strconv.ParseUint(items[i]["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return v
	}
	desc := params.ScanIndexForward != nil && !*params.ScanIndexForward
	sort.Slice(items, func(i, j int) bool {
		if desc {
			return version(i) > version(j)
		}
		return version(i) < version(j)
	})

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func (f *fakeDDB) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ns := params.Key["namespace"].(*types.AttributeValueMemberS).Value
	version := params.Key["version"].(*types.AttributeValueMemberN).Value
	delete(f.items, itemKey(ns, version))
	return &dynamodb.DeleteItemOutput{}, nil
}

func readCurrent(t *testing.T, store blobstore.BlobStore) string {
	t.Helper()

	blob, err := store.Open(context.Background(), CurrentName)
	require.NoError(t, err)
	defer func() { _ = blob.Close() }()

	rc, err := blob.ReadRange(context.Background(), 0, blob.Size())
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestDDBCommitStore_NotFound(t *testing.T) {
	store := NewDDBCommitStore(NewStore(new(MockS3Client), "bucket", ""), newFakeDDB(), "commits", "s3://bucket/job")

	_, err := store.Open(context.Background(), CurrentName)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDDBCommitStore_Commits(t *testing.T) {
	store := NewDDBCommitStore(NewStore(new(MockS3Client), "bucket", ""), newFakeDDB(), "commits", "s3://bucket/job")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, CurrentName, []byte("MANIFEST-000001.json")))
	assert.Equal(t, "MANIFEST-000001.json", readCurrent(t, store))

	require.NoError(t, store.Put(ctx, CurrentName, []byte("MANIFEST-000002.json")))
	assert.Equal(t, "MANIFEST-000002.json", readCurrent(t, store))

	version, _, err := store.latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)
}

func TestDDBCommitStore_ConcurrentCommits(t *testing.T) {
	ddb := newFakeDDB()
	store := NewDDBCommitStore(NewStore(new(MockS3Client), "bucket", ""), ddb, "commits", "s3://bucket/job")
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Put(ctx, CurrentName, []byte(fmt.Sprintf("MANIFEST-%06d.json", i)))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrConcurrentModification)
		}(i)
	}
	wg.Wait()

	version, _, err := store.latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(succeeded), version)
}

func TestDDBCommitStore_IsolatedNamespaces(t *testing.T) {
	ddb := newFakeDDB()
	s3Store := NewStore(new(MockS3Client), "bucket", "")
	a := NewDDBCommitStore(s3Store, ddb, "commits", "s3://bucket/a")
	b := NewDDBCommitStore(s3Store, ddb, "commits", "s3://bucket/b")
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, CurrentName, []byte("MANIFEST-000001.json")))

	_, err := b.Open(ctx, CurrentName)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.Equal(t, "MANIFEST-000001.json", readCurrent(t, a))
}

func TestDDBCommitStore_DeleteCurrent(t *testing.T) {
	store := NewDDBCommitStore(NewStore(new(MockS3Client), "bucket", ""), newFakeDDB(), "commits", "s3://bucket/job")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, CurrentName, []byte("MANIFEST-000001.json")))
	require.NoError(t, store.Put(ctx, CurrentName, []byte("MANIFEST-000002.json")))
	require.NoError(t, store.Delete(ctx, CurrentName))

	_, err := store.Open(ctx, CurrentName)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
