package record

import (
	"errors"
	"fmt"
)

// ErrMalformedKey is returned when a line does not match `<integer>.<suffix>`.
//
// Implementations return a *MalformedKeyError that satisfies errors.Is(err, ErrMalformedKey).
var ErrMalformedKey = errors.New("malformed key")

// MalformedKeyError describes a line that could not be parsed into a Key.
//
// The underlying strconv error (if any) can be accessed via errors.Unwrap.
type MalformedKeyError struct {
	Line   string
	Reason string
	cause  error
}

func (e *MalformedKeyError) Error() string {
	return fmt.Sprintf("malformed key %q: %s", e.Line, e.Reason)
}

func (e *MalformedKeyError) Unwrap() error { return e.cause }

// Is reports whether target is ErrMalformedKey.
func (e *MalformedKeyError) Is(target error) bool { return target == ErrMalformedKey }
