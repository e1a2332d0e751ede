package store

import (
	"context"
	"sync"
	"time"

	errUtils "github.com/cloudposse/weave/errors"
)

type entry struct {
	value   string
	expires time.Time
}

// InMemoryStore is an in-process cache. Expired entries are dropped on read.
type InMemoryStore struct {
	data map[string]entry
	mu   sync.RWMutex
	now  func() time.Time
}

// Ensure InMemoryStore implements the Cache interface.
var _ Cache = (*InMemoryStore)(nil)

// NewInMemoryStore initializes a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]entry), now: time.Now}
}

// Set stores a value in memory.
func (m *InMemoryStore) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = e
	return nil
}

// Get retrieves a value by key from memory.
func (m *InMemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	e, exists := m.data[key]
	m.mu.RUnlock()

	if !exists {
		return "", errUtils.ErrCacheMiss
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return "", errUtils.ErrCacheMiss
	}
	return e.value, nil
}

// Len returns the number of stored entries, expired ones included.
func (m *InMemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
