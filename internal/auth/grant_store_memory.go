package auth

import (
	"context"
	"sync"
)

// NewInMemoryGrantStore returns a GrantStore backed by an in-memory map.
func NewInMemoryGrantStore() *InMemoryGrantStore {
	return &InMemoryGrantStore{grants: make(map[string]Grant)}
}

// InMemoryGrantStore implements GrantStore for tests and local development.
type InMemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[string]Grant
}

// Save persists the provided grant.
func (s *InMemoryGrantStore) Save(_ context.Context, grant Grant) error {
	s.mu.Lock()
	s.grants[grant.Token] = grant
	s.mu.Unlock()
	return nil
}

// Find retrieves a grant by token.
func (s *InMemoryGrantStore) Find(_ context.Context, token string) (Grant, error) {
	s.mu.RLock()
	grant, ok := s.grants[token]
	s.mu.RUnlock()
	if !ok {
		return Grant{}, ErrGrantNotFound
	}
	return grant, nil
}

// Take removes and returns the grant.
func (s *InMemoryGrantStore) Take(_ context.Context, token string) (Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[token]
	if !ok {
		return Grant{}, ErrGrantNotFound
	}
	delete(s.grants, token)
	return grant, nil
}

// Has reports whether a grant exists. Useful for tests.
func (s *InMemoryGrantStore) Has(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.grants[token]
	return ok
}
