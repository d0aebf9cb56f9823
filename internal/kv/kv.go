// Package kv provides the key-value snapshot contract used by the
// association graph: a single serialized value under a fixed key.
package kv

import (
	"context"
	"sync"
)

// Store is the persistence contract for graph snapshots.
// Get returns (nil, nil) when the key has never been written.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// MapStore is an in-memory Store, used in tests and as the degraded-mode
// backend when Redis is unavailable at startup.
type MapStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	puts   int
}

// NewMapStore creates an empty in-memory store.
func NewMapStore() *MapStore {
	return &MapStore{values: make(map[string][]byte)}
}

// Get returns the value for key, or (nil, nil) if absent.
func (m *MapStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// Put stores a copy of value under key.
func (m *MapStore) Put(ctx context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = cp
	m.puts++
	return nil
}

// Puts reports how many writes the store has accepted.
func (m *MapStore) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
