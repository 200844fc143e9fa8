package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/you/trisonapp/domain"
)

// FileStore implements domain.TokenStore as a single JSON document on
// disk. Writes go through a temp file and rename so a crash mid-write
// never leaves a torn record.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at path, creating parent
// directories as needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, &domain.StorageError{Op: "init", Err: err}
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "read", Err: err}
	}
	data := map[string]string{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &domain.StorageError{Op: "read", Err: fmt.Errorf("corrupt store file: %w", err)}
	}
	return data, nil
}

func (s *FileStore) save(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return &domain.StorageError{Op: "write", Err: err}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return &domain.StorageError{Op: "write", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &domain.StorageError{Op: "write", Err: err}
	}
	return nil
}

// Get implements domain.TokenStore
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

// Set implements domain.TokenStore
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	return s.SetMulti(ctx, map[string]string{key: value})
}

// SetMulti implements domain.TokenStore
func (s *FileStore) SetMulti(_ context.Context, pairs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return err
	}
	for k, v := range pairs {
		data[k] = v
	}
	return s.save(data)
}

// Delete implements domain.TokenStore
func (s *FileStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(data, k)
	}
	return s.save(data)
}

// Close implements domain.TokenStore
func (s *FileStore) Close() error { return nil }

var _ domain.TokenStore = (*FileStore)(nil)
