// Package filesort sorts line-oriented datasets that do not fit in memory.
//
// Every line is a record of the form `<integer>.<suffix>`. Records are
// ordered by suffix, compared byte-wise, with the integer prefix as
// tie-break. Sorting is an external merge sort: the input is split into
// bounded chunks, each chunk is sorted in memory and persisted as a run,
// and the runs are k-way merged into the output.
//
// # Quick Start
//
// Local mode:
//
//	ctx := context.Background()
//	s, _ := filesort.New(filesort.Local("./runs"))
//	defer s.Close()
//	stats, _ := s.Sort(ctx, input, output)
//
// Cloud mode:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("sort/"))
//	s, _ := filesort.New(filesort.Remote(s3Store))
//
// # Phases
//
// Sort runs both phases and discards the runs afterwards. The phases are
// also available on their own:
//
//	res, _ := s.Split(ctx, input)       // sorted level-0 runs
//	_, _ = s.Merge(ctx, res.Runs, out)  // merged output
//	_ = s.Discard(ctx, res.Runs)
//
// # Malformed Lines
//
// A line that does not parse is logged and counted, then handled by the
// configured Policy:
//
//   - FailFast aborts the split with ErrMalformedKey.
//   - SkipAndCount drops the line and records its line number.
//   - BestEffortDefault keeps it with prefix 0 and the text after the first
//     '.' (or the whole line) as suffix.
//
// # Resources
//
// Chunk size bounds the memory held by one chunk. WithWorkers sorts chunks
// in parallel, WithMemoryLimit bounds the chunks held at once and
// WithMaxOpenRuns bounds open run readers. With more runs than the fan-in,
// runs are merged in several passes through intermediate runs.
//
// # Crash Recovery
//
// Runs are recorded in a manifest until discarded. After a crash, Cleanup
// deletes every run left behind.
package filesort
