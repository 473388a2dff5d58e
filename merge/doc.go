// Package merge combines sorted runs into one sorted stream.
//
// Each input run is consumed through a cursor holding its head record. At
// every step the cursor with the smallest head is emitted and advanced; ties
// go to the run listed first. The minimum is found with a binary heap
// (SelectHeap) or a linear scan (SelectScan); both produce identical output.
//
// When more runs are given than FanIn allows, groups of FanIn runs are first
// merged into intermediate runs one level up, in parallel, until a single
// final pass suffices. Intermediate runs are deleted once consumed; the
// caller's runs are never deleted.
package merge
