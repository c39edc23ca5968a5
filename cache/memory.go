package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

type memoryItem struct {
	key       string
	seq       uint64
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is the bounded in-process fallback. Once over capacity
// it evicts the oldest inserted key.
type MemoryBackend struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
	now      func() time.Time
}

func NewMemoryBackend(capacity int) *MemoryBackend {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryBackend{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

func (m *MemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	item := el.Value.(*memoryItem)
	if m.now().After(item.expiresAt) {
		m.removeElement(el)
		return nil, ErrNotFound
	}
	return item.value, nil
}

func (m *MemoryBackend) StoreIfNewer(_ context.Context, key string, seq uint64, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if el, ok := m.items[key]; ok {
		item := el.Value.(*memoryItem)
		if now.Before(item.expiresAt) && item.seq > seq {
			return false, nil
		}
		m.removeElement(el)
	}

	el := m.order.PushBack(&memoryItem{
		key:       key,
		seq:       seq,
		value:     value,
		expiresAt: now.Add(ttl),
	})
	m.items[key] = el

	for m.order.Len() > m.capacity {
		m.removeElement(m.order.Front())
	}
	return true, nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		if el, ok := m.items[key]; ok {
			m.removeElement(el)
		}
	}
	return nil
}

func (m *MemoryBackend) Flush(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, el := range m.items {
		if strings.HasPrefix(key, prefix) {
			m.removeElement(el)
		}
	}
	return nil
}

// Len returns the number of stored keys, expired ones included.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *MemoryBackend) removeElement(el *list.Element) {
	m.order.Remove(el)
	delete(m.items, el.Value.(*memoryItem).key)
}
