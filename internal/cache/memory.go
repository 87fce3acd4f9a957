package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache for tests and cache-disabled runs.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// Get returns the payload for key if present and unexpired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}

	payload := make([]byte, len(entry.payload))
	copy(payload, entry.payload)
	return payload, true, nil
}

// Set stores payload under key with ttl.
func (m *Memory) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)

	m.mu.Lock()
	m.entries[key] = memoryEntry{payload: stored, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
