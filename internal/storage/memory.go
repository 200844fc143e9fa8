// Package storage provides the TokenStore backends: an in-memory map
// for tests, a JSON file for mobile-style installs, a SQLite database
// for desktop installs, and Redis for shared kiosk deployments.
package storage

import (
	"context"
	"sync"

	"github.com/you/trisonapp/domain"
)

// MemoryStore implements domain.TokenStore without persistence. It
// exists for tests and for explicitly ephemeral sessions.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get implements domain.TokenStore
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

// Set implements domain.TokenStore
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// SetMulti implements domain.TokenStore
func (s *MemoryStore) SetMulti(_ context.Context, pairs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range pairs {
		s.data[k] = v
	}
	return nil
}

// Delete implements domain.TokenStore
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Close implements domain.TokenStore
func (s *MemoryStore) Close() error { return nil }

var _ domain.TokenStore = (*MemoryStore)(nil)
