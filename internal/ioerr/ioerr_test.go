package ioerr

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("read", "input", nil))

	err := Wrap("read", "input", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.EqualError(t, err, "read input: unexpected EOF")

	again := Wrap("write", "output", err)
	assert.Same(t, err, again)
}

func TestWrap_Context(t *testing.T) {
	err := Wrap("open", "run-L0-000000.txt", context.Canceled)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, ErrIO))
}
