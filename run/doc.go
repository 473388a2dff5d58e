// Package run reads and writes sorted runs.
//
// A run is a newline-delimited text blob holding records in ascending key
// order, optionally compressed as a single stream. Runs are write-once and
// read-once: the splitter writes level-0 runs, the merger consumes them and
// may write intermediate runs of higher levels.
package run
