package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/hupe1980/filesort/blobstore"
)

// ErrInjected is the default injected error.
var ErrInjected = errors.New("injected fault")

// Fault defines failure behavior for blobs whose name contains a pattern.
type Fault struct {
	FailOnCreate bool
	FailOnOpen   bool
	FailOnClose  bool
	// FailAfterBytes fails writes once this many bytes were written to the
	// blob. 0 disables it.
	FailAfterBytes int64
	Err            error
}

// FaultyStore wraps a BlobStore and injects errors.
type FaultyStore struct {
	blobstore.BlobStore

	mu    sync.Mutex
	rules map[string]Fault
}

// NewFaultyStore wraps store.
func NewFaultyStore(store blobstore.BlobStore) *FaultyStore {
	return &FaultyStore{BlobStore: store, rules: make(map[string]Fault)}
}

// AddRule injects fault into every blob whose name contains pattern.
func (s *FaultyStore) AddRule(pattern string, fault Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fault.Err == nil {
		fault.Err = ErrInjected
	}
	s.rules[pattern] = fault
}

// ClearRules removes all rules.
func (s *FaultyStore) ClearRules() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.rules)
}

func (s *FaultyStore) fault(name string) (Fault, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pattern, f := range s.rules {
		if strings.Contains(name, pattern) {
			return f, true
		}
	}
	return Fault{}, false
}

func (s *FaultyStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if f, ok := s.fault(name); ok && f.FailOnOpen {
		return nil, f.Err
	}
	return s.BlobStore.Open(ctx, name)
}

func (s *FaultyStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	f, ok := s.fault(name)
	if ok && f.FailOnCreate {
		return nil, f.Err
	}
	w, err := s.BlobStore.Create(ctx, name)
	if err != nil || !ok {
		return w, err
	}
	return &faultyBlob{WritableBlob: w, fault: f}, nil
}

type faultyBlob struct {
	blobstore.WritableBlob
	fault   Fault
	written int64
}

func (b *faultyBlob) Write(p []byte) (int, error) {
	if b.fault.FailAfterBytes > 0 && b.written+int64(len(p)) > b.fault.FailAfterBytes {
		return 0, b.fault.Err
	}
	n, err := b.WritableBlob.Write(p)
	b.written += int64(n)
	return n, err
}

func (b *faultyBlob) Close() error {
	if b.fault.FailOnClose {
		_ = blobstore.Abort(context.Background(), b.WritableBlob)
		return b.fault.Err
	}
	return b.WritableBlob.Close()
}

func (b *faultyBlob) Abort(ctx context.Context) error {
	return blobstore.Abort(ctx, b.WritableBlob)
}
