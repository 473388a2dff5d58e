// Package ioerr defines the IO failure type shared by the split and merge phases.
package ioerr

import (
	"errors"
	"fmt"
)

// ErrIO matches every *Error via errors.Is.
var ErrIO = errors.New("io failure")

// Error records a failed operation on a named stream or blob.
type Error struct {
	Op   string // open, read, write, create, close, delete
	Name string // blob name or "input"/"output"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is ErrIO.
func (e *Error) Is(target error) bool { return target == ErrIO }

// Wrap returns nil if err is nil, err itself if it already is an *Error,
// and a new *Error otherwise.
func Wrap(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Name: name, Err: err}
}
