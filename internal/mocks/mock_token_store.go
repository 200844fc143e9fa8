package mocks

import (
	"context"
	"sync"

	"github.com/you/trisonapp/domain"
)

// MockTokenStore implements domain.TokenStore for testing. Without
// overrides it behaves like an in-memory store, so tests only stub
// the calls they care about.
type MockTokenStore struct {
	GetFunc      func(ctx context.Context, key string) (string, error)
	SetFunc      func(ctx context.Context, key, value string) error
	SetMultiFunc func(ctx context.Context, pairs map[string]string) error
	DeleteFunc   func(ctx context.Context, keys ...string) error

	mu   sync.Mutex
	data map[string]string
}

// NewMockTokenStore creates a new MockTokenStore with default behaviors
func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{data: make(map[string]string)}
}

// Seed preloads backing data, simulating a previous run.
func (m *MockTokenStore) Seed(pairs map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range pairs {
		m.data[k] = v
	}
}

// Contents returns a copy of the backing data.
func (m *MockTokenStore) Contents() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// Get reads one key
func (m *MockTokenStore) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

// Set writes one key
func (m *MockTokenStore) Set(ctx context.Context, key, value string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// SetMulti writes several keys
func (m *MockTokenStore) SetMulti(ctx context.Context, pairs map[string]string) error {
	if m.SetMultiFunc != nil {
		return m.SetMultiFunc(ctx, pairs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range pairs {
		m.data[k] = v
	}
	return nil
}

// Delete removes keys
func (m *MockTokenStore) Delete(ctx context.Context, keys ...string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, keys...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Close is a no-op
func (m *MockTokenStore) Close() error { return nil }

// Compile-time interface compliance verification
var _ domain.TokenStore = (*MockTokenStore)(nil)
