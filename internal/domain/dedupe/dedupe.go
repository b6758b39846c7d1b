// Package dedupe tracks idempotency keys of rating writes.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// DefaultMaxKeys bounds the tracker when no size is configured.
const DefaultMaxKeys = 10000

// Deduper records idempotency keys so a retried write is applied at most once.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen and records it if
	// not. It returns true when the key was already recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a write that failed after being recorded can
	// be retried with the same key.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// keyTracker keeps keys in insertion order and evicts the oldest first.
// A non-positive capacity disables eviction.
type keyTracker struct {
	mu      sync.Mutex
	order   *list.List
	index   map[string]*list.Element
	maxKeys int
}

// NewInMemoryDeduper creates an in-memory Deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &keyTracker{maxKeys: DefaultMaxKeys}
	for _, opt := range opts {
		opt(d)
	}
	d.order = list.New()
	d.index = make(map[string]*list.Element)
	return d
}

func (d *keyTracker) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[key]; ok {
		return true
	}
	if d.maxKeys > 0 && d.order.Len() >= d.maxKeys {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.index, oldest.Value.(string))
	}
	d.index[key] = d.order.PushBack(key)
	return false
}

func (d *keyTracker) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		d.order.Remove(el)
		delete(d.index, key)
	}
}

func (d *keyTracker) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
