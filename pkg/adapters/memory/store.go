// Package memory implements ports.StateStore in memory.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/parleyio/parley/pkg/domain"
)

type entry struct {
	value []byte
	etag  string
}

// Store implements ports.StateStore with a process-local map.
// Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]entry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]entry),
	}
}

// Get retrieves the value and etag for a key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return nil, "", domain.ErrRecordNotFound
	}

	// Copy on read so callers can't mutate stored bytes.
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, e.etag, nil
}

// Put conditionally writes the value, enforcing the etag contract.
func (s *Store) Put(ctx context.Context, key string, value []byte, etag string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.data[key]
	if etag == "" {
		if exists {
			return "", domain.ErrConflict
		}
	} else if !exists || current.etag != etag {
		return "", domain.ErrConflict
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	next := uuid.NewString()
	s.data[key] = entry{value: stored, etag: next}
	return next, nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
