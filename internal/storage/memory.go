package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps collections in process memory. Useful for local development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[Collection][]byte
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Collection][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, collection Collection) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[collection]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryStore) Put(_ context.Context, collection Collection, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[collection] = append([]byte(nil), data...)
	return nil
}
