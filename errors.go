package filesort

import (
	"errors"
	"fmt"

	"github.com/hupe1980/filesort/internal/ioerr"
	"github.com/hupe1980/filesort/merge"
	"github.com/hupe1980/filesort/record"
	"github.com/hupe1980/filesort/split"
)

var (
	// ErrMalformedKey is returned when a line does not parse as
	// `<integer>.<suffix>` under the FailFast policy.
	ErrMalformedKey = errors.New("malformed key")

	// ErrIOFailure is returned when reading or writing a run, the input or
	// the output fails. IO failures are not retried.
	ErrIOFailure = errors.New("io failure")

	// ErrInvalidChunkSize is returned for a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidFanIn is returned for a fan-in below 2.
	ErrInvalidFanIn = errors.New("fan-in must be at least 2")

	// ErrInvalidMaxOpenRuns is returned for an open-run limit of 1.
	ErrInvalidMaxOpenRuns = errors.New("max open runs must be 0 or at least 2")

	// ErrClosed is returned by every operation on a closed Sorter.
	ErrClosed = errors.New("sorter is closed")
)

// MalformedKeyError describes the line that aborted a split.
//
// The original underlying error can be accessed via errors.Unwrap.
type MalformedKeyError struct {
	Line  string
	cause error
}

func (e *MalformedKeyError) Error() string {
	return fmt.Sprintf("malformed key: %v", e.cause)
}

func (e *MalformedKeyError) Unwrap() error { return e.cause }

// Is reports whether target is ErrMalformedKey.
func (e *MalformedKeyError) Is(target error) bool { return target == ErrMalformedKey }

// IOError describes a failed storage or stream operation.
//
// The original underlying error can be accessed via errors.Unwrap.
type IOError struct {
	Op    string
	Name  string
	cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io failure: %s %s: %v", e.Op, e.Name, e.cause)
}

func (e *IOError) Unwrap() error { return e.cause }

// Is reports whether target is ErrIOFailure.
func (e *IOError) Is(target error) bool { return target == ErrIOFailure }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var mk *record.MalformedKeyError
	if errors.As(err, &mk) {
		return &MalformedKeyError{Line: mk.Line, cause: err}
	}

	var ie *ioerr.Error
	if errors.As(err, &ie) {
		return &IOError{Op: ie.Op, Name: ie.Name, cause: err}
	}

	if errors.Is(err, split.ErrInvalidChunkSize) {
		return fmt.Errorf("%w: %w", ErrInvalidChunkSize, err)
	}
	if errors.Is(err, merge.ErrInvalidFanIn) {
		return fmt.Errorf("%w: %w", ErrInvalidFanIn, err)
	}
	if errors.Is(err, merge.ErrInvalidMaxOpenRuns) {
		return fmt.Errorf("%w: %w", ErrInvalidMaxOpenRuns, err)
	}

	return err
}
