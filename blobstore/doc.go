// Package blobstore provides the storage abstraction for filesort's sorted runs
// and manifests.
//
// Runs are written once during the split phase, read once front to back during
// the merge phase and then deleted. Every BlobStore implementation therefore
// needs streaming writes (Create), streaming reads (Blob.ReadRange), Delete and
// List.
//
// # Built-in Implementations
//
//   - LocalStore: local file system, reads through mmap
//   - MemoryStore: in-process, for tests and small inputs
//   - s3.Store: Amazon S3 with multipart streaming uploads
//   - s3.DDBCommitStore: S3 plus DynamoDB for atomic manifest commits
//   - minio.Store: MinIO and other S3-compatible object stores
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// A WritableBlob that can discard an unfinished upload should also implement
// Aborter; the split phase aborts runs whose write failed.
package blobstore
