package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemoryCache is the in-process layer: a bounded map with per-entry absolute expiry.
// When full, the oldest inserted entry is dropped to make room.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]*list.Element
	order   *list.List // front is the oldest insertion
	maxSize int
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache holding at most maxSize entries.
func NewMemoryCache(maxSize int, now func() time.Time) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		items:   make(map[string]*list.Element, maxSize),
		order:   list.New(),
		maxSize: maxSize,
		now:     now,
	}
}

// Get returns a copy-free view of the stored bytes. Callers must not mutate it.
func (m *MemoryCache) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	elem, ok := m.items[key]
	if !ok {
		m.mu.RUnlock()
		return nil, false
	}
	item := elem.Value.(*memoryItem)
	if m.now().Before(item.expiresAt) {
		value := item.value
		m.mu.RUnlock()
		return value, true
	}
	m.mu.RUnlock()

	// Expired: drop it unless another writer replaced it meanwhile.
	m.mu.Lock()
	defer m.mu.Unlock()
	if elem, ok := m.items[key]; ok && !m.now().Before(elem.Value.(*memoryItem).expiresAt) {
		m.removeElement(elem)
	}
	return nil, false
}

// Set stores value for ttl. A non-positive ttl deletes the key.
func (m *MemoryCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		m.Delete(key)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.now().Add(ttl)
	if elem, ok := m.items[key]; ok {
		item := elem.Value.(*memoryItem)
		item.value = value
		item.expiresAt = expiresAt
		m.order.MoveToBack(elem)
		return
	}

	for m.order.Len() >= m.maxSize {
		m.removeElement(m.order.Front())
	}
	m.items[key] = m.order.PushBack(&memoryItem{key: key, value: value, expiresAt: expiresAt})
}

func (m *MemoryCache) Delete(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		if elem, ok := m.items[key]; ok {
			m.removeElement(elem)
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*list.Element, m.maxSize)
	m.order.Init()
}

// Purge removes every expired entry and returns how many were dropped.
func (m *MemoryCache) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for elem := m.order.Front(); elem != nil; {
		next := elem.Next()
		if !now.Before(elem.Value.(*memoryItem).expiresAt) {
			m.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Run purges expired entries every interval until ctx is cancelled.
func (m *MemoryCache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.Purge(); removed > 0 {
				log.WithField("removed", removed).Debug("Purged expired memory cache entries")
			}
		}
	}
}

// removeElement must be called with mu held.
func (m *MemoryCache) removeElement(elem *list.Element) {
	item := m.order.Remove(elem).(*memoryItem)
	delete(m.items, item.key)
}
