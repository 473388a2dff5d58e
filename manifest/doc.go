// Package manifest keeps a versioned catalogue of the runs a Sorter has
// written but not yet discarded.
//
// Each Save writes a new MANIFEST-<id>.<ext> document and then repoints
// CURRENT at it. After a crash, the runs listed by the current manifest are
// exactly the ones left behind, so they can be deleted on the next start.
package manifest
