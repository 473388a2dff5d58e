// Package record parses and orders the `<integer>.<suffix>` lines that filesort sorts.
//
// A line is split at its first '.' into a numeric prefix and a string suffix.
// Records order by suffix (byte-wise) first and by numeric prefix second:
//
//	2.aa < 9.aa < 5.bb
//
// # Malformed Records
//
// Lines without a '.' or with a prefix that is not a base-10 int64 are
// malformed. What happens to them is decided by a Policy:
//
//   - FailFast: the split aborts with ErrMalformedKey (default)
//   - SkipAndCount: the record is dropped and counted
//   - BestEffortDefault: the record is kept with prefix 0
//
// Every malformed record is reported through the Comparator's report hook
// regardless of the policy.
package record
