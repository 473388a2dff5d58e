package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/filesort/blobstore"
	"github.com/hupe1980/filesort/codec"
	"github.com/hupe1980/filesort/run"
)

const (
	ManifestFileName = "MANIFEST"
	CurrentFileName  = "CURRENT"
	// CurrentVersion is the version of the manifest format.
	CurrentVersion = 1
)

// Manifest lists the live runs at a point in time.
type Manifest struct {
	Version   int        `json:"version" bson:"version"`
	ID        uint64     `json:"id" bson:"id"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	Runs      []run.Info `json:"runs" bson:"runs"`
}

// New creates an empty manifest.
func New() *Manifest {
	return &Manifest{Version: CurrentVersion}
}

// AddRuns appends runs that are not listed yet.
func (m *Manifest) AddRuns(runs ...run.Info) {
	for _, r := range runs {
		if !m.Contains(r.Name) {
			m.Runs = append(m.Runs, r)
		}
	}
}

// RemoveRuns drops runs by name. Unknown names are ignored.
func (m *Manifest) RemoveRuns(runs ...run.Info) {
	m.Runs = slices.DeleteFunc(m.Runs, func(r run.Info) bool {
		return slices.ContainsFunc(runs, func(o run.Info) bool { return o.Name == r.Name })
	})
}

// RemovePrefix drops every run whose name starts with prefix.
func (m *Manifest) RemovePrefix(prefix string) {
	m.Runs = slices.DeleteFunc(m.Runs, func(r run.Info) bool {
		return strings.HasPrefix(r.Name, prefix)
	})
}

// Contains reports whether a run with the given name is listed.
func (m *Manifest) Contains(name string) bool {
	return slices.ContainsFunc(m.Runs, func(r run.Info) bool { return r.Name == name })
}

// Store loads and saves manifests in a blob store.
type Store struct {
	store blobstore.BlobStore
	codec codec.Codec
	mu    sync.Mutex
	now   func() time.Time
}

// NewStore creates a manifest store writing with c (codec.Default if nil).
func NewStore(store blobstore.BlobStore, c codec.Codec) *Store {
	if c == nil {
		c = codec.Default
	}
	return &Store{store: store, codec: c, now: time.Now}
}

// FileName returns the manifest blob name for id.
func (s *Store) FileName(id uint64) string {
	return fmt.Sprintf("%s-%06d.%s", ManifestFileName, id, s.codec.Ext())
}

// Load loads the current manifest. It returns ErrNotFound if none was saved.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) (*Manifest, error) {
	current, err := readAll(ctx, s.store, CurrentFileName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	name := strings.TrimSpace(string(current))

	c, ok := codec.ByExt(strings.TrimPrefix(path.Ext(name), "."))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}

	data, err := readAll(ctx, s.store, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", name, err)
	}

	m := &Manifest{}
	if err := c.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", name, err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrIncompatibleVersion, m.Version)
	}
	return m, nil
}

// Save writes m as the next version and repoints CURRENT at it. The
// previous manifest document is deleted afterwards.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, m)
}

func (s *Store) save(ctx context.Context, m *Manifest) error {
	prev := m.ID

	m.Version = CurrentVersion
	m.ID++
	m.CreatedAt = s.now().UTC()

	data, err := s.codec.Marshal(m)
	if err != nil {
		return err
	}

	name := s.FileName(m.ID)
	if err := s.store.Put(ctx, name, data); err != nil {
		return err
	}
	if err := s.store.Put(ctx, CurrentFileName, []byte(name)); err != nil {
		return err
	}

	if prev > 0 {
		_ = s.deleteVersion(ctx, prev)
	}
	return nil
}

// Update loads the current manifest (or starts a new one), applies fn and
// saves the result. Updates from one Store are serialized.
func (s *Store) Update(ctx context.Context, fn func(*Manifest) error) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load(ctx)
	if errors.Is(err, ErrNotFound) {
		m, err = New(), nil
	}
	if err != nil {
		return nil, err
	}

	if err := fn(m); err != nil {
		return nil, err
	}
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// deleteVersion removes every encoding of version id.
func (s *Store) deleteVersion(ctx context.Context, id uint64) error {
	prefix := fmt.Sprintf("%s-%06d.", ManifestFileName, id)
	names, err := s.store.List(ctx, prefix)
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		errs = append(errs, s.store.Delete(ctx, name))
	}
	return errors.Join(errs...)
}

func readAll(ctx context.Context, store blobstore.BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()

	if b.Size() == 0 {
		return nil, nil
	}
	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
