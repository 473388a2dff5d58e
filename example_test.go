package filesort_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hupe1980/filesort"
	"github.com/hupe1980/filesort/run"
)

// Example demonstrates sorting records with runs kept in memory.
func Example() {
	s, err := filesort.New(filesort.Memory())
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	input := strings.NewReader("5.bb\n2.aa\n9.aa\n")
	if _, err := s.Sort(context.Background(), input, os.Stdout); err != nil {
		log.Fatal(err)
	}
	// Output:
	// 2.aa
	// 9.aa
	// 5.bb
}

// Example_phases demonstrates running split and merge separately.
func Example_phases() {
	ctx := context.Background()

	s, err := filesort.New(filesort.Local(""), filesort.WithChunkSize(12))
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	res, err := s.Split(ctx, strings.NewReader("3.cc\n1.aa\n2.bb\n"))
	if err != nil {
		log.Fatal(err)
	}
	defer s.Discard(ctx, res.Runs)

	fmt.Println("runs:", len(res.Runs))
	if _, err := s.Merge(ctx, res.Runs, os.Stdout); err != nil {
		log.Fatal(err)
	}
	// Output:
	// runs: 2
	// 1.aa
	// 2.bb
	// 3.cc
}

// Example_skipMalformed demonstrates dropping lines without a valid key.
func Example_skipMalformed() {
	s, err := filesort.New(filesort.Memory(),
		filesort.WithPolicy(filesort.SkipAndCount),
		filesort.WithCompression(run.CompressionZstd),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	var out strings.Builder
	stats, err := s.Sort(context.Background(), strings.NewReader("2.b\nno key\nx.y\n1.a\n"), &out)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(out.String())
	fmt.Println("skipped lines:", stats.Skipped.ToArray())
	// Output:
	// 1.a
	// 2.b
	// skipped lines: [2 3]
}
