// Package minio keeps filesort runs and manifests in MinIO or any other
// S3-compatible object store reachable with the MinIO client.
//
//	store, err := minio.Dial(ctx, "localhost:9000", "sort-runs",
//	    minio.WithStaticCredentials("minioadmin", "minioadmin"),
//	    minio.WithPrefix("jobs/"),
//	)
//	sorter, err := filesort.New(filesort.Remote(store))
//
// Run files are uploaded as they are written. Their final size is unknown
// until the split finishes, so uploads use a fixed part size (see
// WithPartSize) instead of the client's default, which assumes objects up
// to 5 TiB and buffers accordingly.
package minio
