package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMaxEntries = 4096

type entry struct {
	key     string
	payload []byte
	expires time.Time
}

// Memory is a process-local Cache with TTL and LRU eviction.
type Memory struct {
	mu         sync.Mutex
	versions   map[string]int64
	entries    map[string]*list.Element
	lru        *list.List
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// MemoryOption applies a configuration option to Memory.
type MemoryOption func(*Memory)

// WithTTL sets entry lifetime. Zero keeps entries until evicted.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		if ttl >= 0 {
			m.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the number of stored payloads.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithClock overrides time for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an in-process cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		versions:   make(map[string]int64),
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Version(_ context.Context, dayID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[dayID], nil
}

func (m *Memory) Bump(_ context.Context, dayID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[dayID]++
	return m.versions[dayID], nil
}

func (m *Memory) Get(_ context.Context, k Key) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.entries[k.String()]
	if !ok {
		return nil, ErrMiss
	}
	e := el.Value.(*entry)
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.lru.Remove(el)
		delete(m.entries, e.key)
		return nil, ErrMiss
	}
	m.lru.MoveToFront(el)
	return e.payload, nil
}

func (m *Memory) Set(_ context.Context, k Key, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expires time.Time
	if m.ttl > 0 {
		expires = m.now().Add(m.ttl)
	}
	key := k.String()
	if el, ok := m.entries[key]; ok {
		e := el.Value.(*entry)
		e.payload, e.expires = payload, expires
		m.lru.MoveToFront(el)
		return nil
	}
	m.entries[key] = m.lru.PushFront(&entry{key: key, payload: payload, expires: expires})
	for m.lru.Len() > m.maxEntries {
		oldest := m.lru.Back()
		m.lru.Remove(oldest)
		delete(m.entries, oldest.Value.(*entry).key)
	}
	return nil
}

// Len returns the number of stored payloads.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
