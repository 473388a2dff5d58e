package merge

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/filesort/resource"
	"github.com/hupe1980/filesort/run"
)

// DefaultFanIn is the default maximum number of runs merged in one pass.
const DefaultFanIn = 64

var (
	// ErrInvalidFanIn is returned for a fan-in below 2.
	ErrInvalidFanIn = errors.New("fan-in must be at least 2")
	// ErrInvalidMaxOpenRuns is returned for an open-run limit of 1. A merge
	// needs at least two open runs.
	ErrInvalidMaxOpenRuns = errors.New("max open runs must be 0 or at least 2")
)

// Selection chooses how the minimum head is found.
type Selection int

const (
	// SelectHeap keeps cursors in a binary heap: O(log k) per record.
	SelectHeap Selection = iota
	// SelectScan scans all cursors: O(k) per record.
	SelectScan
)

func (s Selection) String() string {
	switch s {
	case SelectHeap:
		return "heap"
	case SelectScan:
		return "scan"
	default:
		return fmt.Sprintf("selection(%d)", int(s))
	}
}

// Options configures a Merger.
type Options struct {
	// FanIn is the maximum number of runs merged in one pass.
	FanIn int
	// Selection chooses heap or scan selection.
	Selection Selection
	// Namer names intermediate runs.
	Namer run.Namer
	// Compression encodes intermediate runs.
	Compression run.Compression
	// Controller bounds workers, open runs and IO. Its MaxOpenRuns caps FanIn.
	Controller *resource.Controller
	// Logger receives per-pass debug logs.
	Logger *slog.Logger
}

// DefaultOptions contains the default options for a Merger.
var DefaultOptions = Options{
	FanIn:     DefaultFanIn,
	Selection: SelectHeap,
}
