package cache

import (
	"container/list"
	"context"
	"sync"
)

// MemoryStore is a size bounded least recently used store.
type MemoryStore struct {
	mu       sync.Mutex
	ll       *list.List
	items    map[string]*list.Element
	bytes    int64
	maxBytes int64
	maxItems int
}

type entry struct {
	key   string
	value []byte
}

// NewMemoryStore returns an LRU store holding at most maxItems entries and
// maxBytes of values. Non-positive limits are unbounded.
func NewMemoryStore(maxItems int, maxBytes int64) *MemoryStore {
	return &MemoryStore{
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		maxBytes: maxBytes,
		maxItems: maxItems,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	m.ll.MoveToFront(el)
	return el.Value.(*entry).value, nil
}

// Set stores value. Values larger than the byte limit are not stored.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	size := int64(len(value))
	if m.maxBytes > 0 && size > m.maxBytes {
		return nil
	}
	if el, ok := m.items[key]; ok {
		e := el.Value.(*entry)
		m.bytes += size - int64(len(e.value))
		e.value = value
		m.ll.MoveToFront(el)
	} else {
		m.items[key] = m.ll.PushFront(&entry{key: key, value: value})
		m.bytes += size
	}
	for m.overLimit() {
		m.removeOldest()
	}
	return nil
}

func (m *MemoryStore) overLimit() bool {
	return (m.maxItems > 0 && m.ll.Len() > m.maxItems) ||
		(m.maxBytes > 0 && m.bytes > m.maxBytes)
}

func (m *MemoryStore) removeOldest() {
	el := m.ll.Back()
	if el == nil {
		return
	}
	e := m.ll.Remove(el).(*entry)
	delete(m.items, e.key)
	m.bytes -= int64(len(e.value))
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}

func (m *MemoryStore) Close() error { return nil }
