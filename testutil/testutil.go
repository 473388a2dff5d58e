package testutil

import (
	"math/rand"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/hupe1980/filesort/record"
)

// RNG wraps a seeded math/rand source. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

const alphabet = "abcd"

// Records returns n lines of the form "<n>. <word>" where word has up to
// maxWord letters from a four-letter alphabet, so equal suffixes are common.
func (r *RNG) Records(n, maxWord int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, n)
	var sb strings.Builder
	for i := range out {
		sb.Reset()
		sb.WriteString(strconv.Itoa(r.rand.Intn(10_000)))
		sb.WriteString(". ")
		for j := r.rand.Intn(maxWord + 1); j > 0; j-- {
			sb.WriteByte(alphabet[r.rand.Intn(len(alphabet))])
		}
		out[i] = sb.String()
	}
	return out
}

// Shuffle returns a shuffled copy of lines.
func (r *RNG) Shuffle(lines []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := slices.Clone(lines)
	r.rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Join renders lines as newline-terminated input.
func Join(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Split is the inverse of Join.
func Split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// Sorted returns lines in record order, computed in memory.
func Sorted(lines []string) []string {
	out := slices.Clone(lines)
	slices.SortStableFunc(out, func(a, b string) int {
		return record.KeyOf(a).Compare(record.KeyOf(b))
	})
	return out
}

// IsSorted reports whether every adjacent pair is in non-decreasing order.
func IsSorted(lines []string) bool {
	for i := 1; i < len(lines); i++ {
		if record.KeyOf(lines[i-1]).Compare(record.KeyOf(lines[i])) > 0 {
			return false
		}
	}
	return true
}
