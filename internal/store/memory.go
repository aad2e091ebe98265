package store

import (
    "context"
    "sync"
)

// Memory is a simple in-memory KV used by tests and when persistence is off.
type Memory struct {
    mu   sync.Mutex
    data map[string][]byte
}

func NewMemory() *Memory {
    return &Memory{data: map[string][]byte{}}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    v, ok := m.data[key]
    if !ok { return nil, ErrNotFound }
    return append([]byte(nil), v...), nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.data[key] = append([]byte(nil), value...)
    return nil
}
