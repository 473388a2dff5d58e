// Package s3 stores filesort runs and manifests in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("sort-jobs/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//	sorter, err := filesort.New(filesort.Remote(store))
//
// Runs are uploaded as streaming multipart uploads while the split phase
// writes them, and read back with ranged GETs during the merge.
//
// DDBCommitStore layers DynamoDB conditional writes on top of Store so that
// manifest commits from concurrent sorters sharing one prefix never overwrite
// each other.
package s3
