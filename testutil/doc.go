// Package testutil provides helpers for filesort tests.
//
// This package is intended for use in tests and benchmarks only.
//
// # Record Generation
//
//	rng := testutil.NewRNG(seed)
//	lines := rng.Records(10_000, 4)   // "8123. dcab", ...
//
// # Order Assertions
//
//	want := testutil.Sorted(lines)
//	ok := testutil.IsSorted(got)
//
// # Fault Injection
//
//	store := testutil.NewFaultyStore(blobstore.NewMemoryStore())
//	store.AddRule("run-L0-000002", testutil.Fault{FailAfterBytes: 16})
package testutil
