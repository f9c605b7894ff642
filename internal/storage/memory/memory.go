// Package memory is a process-local KV backend. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"bilancio/internal/storage"
)

var _ storage.KV = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items map[string]string
	// writes counts successful Set calls.
	writes int
}

func New() *Store {
	return &Store{items: map[string]string{}}
}

// NewWithValue returns a store pre-seeded with one key.
func NewWithValue(key, value string) *Store {
	s := New()
	s.items[key] = value
	return s
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	s.writes++
	return nil
}

// Writes returns how many times Set succeeded.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
