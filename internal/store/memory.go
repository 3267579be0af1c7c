package store

import (
	"context"
	"maps"
	"sync"
)

// MemoryBackend is a concurrency-safe in-memory key-value backend. Its
// contents do not survive a restart.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]string),
	}
}

// Load returns a copy of all stored values.
func (m *MemoryBackend) Load(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.data), nil
}

// Replace swaps the stored values for values.
func (m *MemoryBackend) Replace(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = maps.Clone(values)
	if m.data == nil {
		m.data = make(map[string]string)
	}
	return nil
}

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }
