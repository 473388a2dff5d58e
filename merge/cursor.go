package merge

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/filesort/blobstore"
	"github.com/hupe1980/filesort/internal/queue"
	"github.com/hupe1980/filesort/record"
	"github.com/hupe1980/filesort/resource"
	"github.com/hupe1980/filesort/run"
)

// cursor is an open run positioned at its head record.
type cursor struct {
	r     *run.Reader
	head  record.Record
	order int
}

// advance loads the next head. It returns io.EOF when the run is exhausted.
func (c *cursor) advance() error {
	line, err := c.r.Next()
	if err != nil {
		return err
	}
	c.head = record.Record{Line: line, Key: record.KeyOf(line)}
	return nil
}

func cursorLess(a, b *cursor) bool {
	if c := a.head.Compare(b.head); c != 0 {
		return c < 0
	}
	return a.order < b.order
}

// kway merges a fixed set of runs.
type kway struct {
	sel     Selection
	heap    *queue.Heap[*cursor]
	list    []*cursor
	rc      *resource.Controller
	handles int
}

func openKWay(ctx context.Context, store blobstore.BlobStore, runs []run.Info, sel Selection, rc *resource.Controller) (*kway, error) {
	handles, err := rc.AcquireHandles(ctx, len(runs))
	if err != nil {
		return nil, err
	}

	k := &kway{sel: sel, rc: rc, handles: handles}
	if sel == SelectHeap {
		k.heap = queue.New(len(runs), cursorLess)
	} else {
		k.list = make([]*cursor, 0, len(runs))
	}

	for i, info := range runs {
		r, err := run.Open(ctx, store, info, rc)
		if err != nil {
			return nil, errors.Join(err, k.close())
		}

		c := &cursor{r: r, order: i}
		if err := c.advance(); err != nil {
			cerr := r.Close()
			if errors.Is(err, io.EOF) {
				if cerr != nil {
					return nil, errors.Join(cerr, k.close())
				}
				continue
			}
			return nil, errors.Join(err, k.close())
		}

		if k.heap != nil {
			k.heap.Push(c)
		} else {
			k.list = append(k.list, c)
		}
	}
	return k, nil
}

// next emits the minimal head and advances its cursor. It returns io.EOF
// once every cursor is exhausted.
func (k *kway) next() (record.Record, error) {
	if k.heap != nil {
		return k.nextHeap()
	}
	return k.nextScan()
}

func (k *kway) nextHeap() (record.Record, error) {
	c, ok := k.heap.Top()
	if !ok {
		return record.Record{}, io.EOF
	}
	rec := c.head

	if err := c.advance(); err != nil {
		if !errors.Is(err, io.EOF) {
			return record.Record{}, err
		}
		k.heap.Pop()
		if err := c.r.Close(); err != nil {
			return record.Record{}, err
		}
		return rec, nil
	}
	k.heap.Fix()
	return rec, nil
}

func (k *kway) nextScan() (record.Record, error) {
	if len(k.list) == 0 {
		return record.Record{}, io.EOF
	}

	best := 0
	for i := 1; i < len(k.list); i++ {
		if cursorLess(k.list[i], k.list[best]) {
			best = i
		}
	}

	c := k.list[best]
	rec := c.head

	if err := c.advance(); err != nil {
		if !errors.Is(err, io.EOF) {
			return record.Record{}, err
		}
		k.list = append(k.list[:best], k.list[best+1:]...)
		if err := c.r.Close(); err != nil {
			return record.Record{}, err
		}
	}
	return rec, nil
}

// close closes every remaining cursor and releases the handle slots.
func (k *kway) close() error {
	var errs []error
	if k.heap != nil {
		for _, c := range k.heap.Items() {
			errs = append(errs, c.r.Close())
		}
		k.heap.Reset()
	}
	for _, c := range k.list {
		errs = append(errs, c.r.Close())
	}
	k.list = nil

	k.rc.ReleaseHandles(k.handles)
	k.handles = 0
	return errors.Join(errs...)
}
