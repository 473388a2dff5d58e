package record

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Reader reads newline-delimited lines.
//
// A Reader from NewReader strips a trailing "\r", so CRLF input yields the
// same lines as LF input. A Reader from NewRawReader returns lines byte-exact
// apart from the "\n". The last line is returned even when it has no
// terminator.
type Reader struct {
	br      *bufio.Reader
	line    int64
	stripCR bool
}

// NewReader creates a Reader for input text. size is the buffer size; values
// <= 0 use 64KB.
func NewReader(r io.Reader, size int) *Reader {
	lr := NewRawReader(r, size)
	lr.stripCR = true
	return lr
}

// NewRawReader creates a Reader that keeps a trailing "\r". Runs are read
// with it, since their lines already went through NewReader once.
func NewRawReader(r io.Reader, size int) *Reader {
	if size <= 0 {
		size = 64 * 1024
	}
	return &Reader{br: bufio.NewReaderSize(r, size)}
}

// Next returns the next line. It returns io.EOF when the input is exhausted.
func (r *Reader) Next() (string, error) {
	s, err := r.br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if s == "" {
			return "", io.EOF
		}
	}
	r.line++
	s = strings.TrimSuffix(s, "\n")
	if r.stripCR {
		s = strings.TrimSuffix(s, "\r")
	}
	return s, nil
}

// Line returns the 1-based number of the line last returned by Next.
func (r *Reader) Line() int64 { return r.line }
