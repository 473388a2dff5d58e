package record

import (
	"fmt"
	"sync/atomic"
)

// Policy decides what happens to a malformed line.
type Policy int

const (
	// FailFast aborts on the first malformed line.
	FailFast Policy = iota
	// SkipAndCount drops malformed lines and counts them.
	SkipAndCount
	// BestEffortDefault keeps malformed lines, sorting them by DefaultKey.
	BestEffortDefault
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case SkipAndCount:
		return "skip-and-count"
	case BestEffortDefault:
		return "best-effort-default"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy returns the policy with the given String name.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "fail-fast", "":
		return FailFast, nil
	case "skip-and-count":
		return SkipAndCount, nil
	case "best-effort-default":
		return BestEffortDefault, nil
	default:
		return 0, fmt.Errorf("unknown policy %q", s)
	}
}

// ReportFunc receives every malformed line the Comparator encounters.
type ReportFunc func(line string, err error)

// Comparator implements the record total order and the malformed-key policy.
// It is safe for concurrent use.
type Comparator struct {
	policy    Policy
	report    ReportFunc
	malformed atomic.Int64
}

// NewComparator creates a Comparator. report may be nil.
func NewComparator(policy Policy, report ReportFunc) *Comparator {
	return &Comparator{policy: policy, report: report}
}

// Policy returns the configured policy.
func (c *Comparator) Policy() Policy { return c.policy }

// Malformed returns the number of malformed lines reported so far.
func (c *Comparator) Malformed() int64 { return c.malformed.Load() }

func (c *Comparator) reportMalformed(line string, err error) {
	c.malformed.Add(1)
	if c.report != nil {
		c.report(line, err)
	}
}

// Key parses line. A malformed line is reported and sorts by DefaultKey.
func (c *Comparator) Key(line string) Key {
	k, err := Parse(line)
	if err != nil {
		c.reportMalformed(line, err)
		return DefaultKey(line)
	}
	return k
}

// Compare parses both lines and compares their keys. It never fails.
func (c *Comparator) Compare(a, b string) int {
	return c.Key(a).Compare(c.Key(b))
}

// Verdict is the outcome of admitting a line.
type Verdict int

const (
	// Accepted lines parsed cleanly.
	Accepted Verdict = iota
	// Defaulted lines were malformed and carry DefaultKey.
	Defaulted
	// Skipped lines were malformed and must not enter a chunk.
	Skipped
	// Rejected lines were malformed under FailFast.
	Rejected
)

// Keep reports whether the line enters a chunk.
func (v Verdict) Keep() bool { return v == Accepted || v == Defaulted }

// Malformed reports whether the line failed to parse.
func (v Verdict) Malformed() bool { return v != Accepted }

// Admit parses line and applies the policy. err is non-nil only for Rejected.
func (c *Comparator) Admit(line string) (Record, Verdict, error) {
	k, err := Parse(line)
	if err == nil {
		return Record{Line: line, Key: k}, Accepted, nil
	}
	c.reportMalformed(line, err)
	switch c.policy {
	case SkipAndCount:
		return Record{}, Skipped, nil
	case BestEffortDefault:
		return Record{Line: line, Key: DefaultKey(line)}, Defaulted, nil
	default:
		return Record{}, Rejected, err
	}
}
