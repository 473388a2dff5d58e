package record

import (
	"cmp"
	"strconv"
	"strings"
)

// Separator splits the numeric prefix from the suffix.
const Separator = '.'

// Key is the sort key derived from a line.
type Key struct {
	Prefix int64
	Suffix string
}

// Compare returns -1, 0 or +1 depending on whether k sorts before, equal to or after o.
func (k Key) Compare(o Key) int {
	if c := strings.Compare(k.Suffix, o.Suffix); c != 0 {
		return c
	}
	return cmp.Compare(k.Prefix, o.Prefix)
}

// Less reports whether k sorts strictly before o.
func (k Key) Less(o Key) bool { return k.Compare(o) < 0 }

// Parse splits line at its first '.' and parses the prefix as a base-10 int64.
func Parse(line string) (Key, error) {
	i := strings.IndexByte(line, Separator)
	if i < 0 {
		return Key{}, &MalformedKeyError{Line: line, Reason: "missing separator"}
	}
	n, err := strconv.ParseInt(line[:i], 10, 64)
	if err != nil {
		return Key{}, &MalformedKeyError{Line: line, Reason: "invalid numeric prefix", cause: err}
	}
	return Key{Prefix: n, Suffix: line[i+1:]}, nil
}

// DefaultKey is the key a malformed line sorts by under BestEffortDefault.
//
// The prefix is 0. The suffix is the text after the first '.', or the whole
// line when it has none.
func DefaultKey(line string) Key {
	if i := strings.IndexByte(line, Separator); i >= 0 {
		return Key{Suffix: line[i+1:]}
	}
	return Key{Suffix: line}
}

// Record is a line together with its parsed key.
type Record struct {
	Line string
	Key  Key
}

// Compare orders records by key.
func (r Record) Compare(o Record) int { return r.Key.Compare(o.Key) }

// Size is the byte estimate a record contributes to a chunk: its length plus a
// two-byte line terminator allowance.
func (r Record) Size() int64 { return int64(len(r.Line)) + 2 }

// KeyOf parses line and falls back to DefaultKey without reporting.
// It is used for lines already admitted into a run.
func KeyOf(line string) Key {
	if k, err := Parse(line); err == nil {
		return k
	}
	return DefaultKey(line)
}
