package persist

import (
	"context"
	"sync"
)

// Memory is an in-process Backend, used in tests and when STATE_BACKEND=memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	// Saves counts successful Save calls per key.
	saves map[string]int
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte), saves: make(map[string]int)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(data))
	copy(v, data)
	m.data[key] = v
	m.saves[key]++
	return nil
}

// SaveCount returns how many times key has been saved.
func (m *Memory) SaveCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves[key]
}
