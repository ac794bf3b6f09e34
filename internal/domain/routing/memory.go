package routing

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. Suitable for a single
// instance and for tests; a fleet needs the Redis store.
type MemoryStore struct {
	mu     sync.RWMutex
	routes map[string]memoryRoute
}

type memoryRoute struct {
	instance  string
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory routing store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		routes: make(map[string]memoryRoute),
	}
}

// Register records instance ownership of a session.
func (s *MemoryStore) Register(ctx context.Context, sessionID, instance string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.routes[sessionID] = memoryRoute{
		instance:  instance,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Lookup returns the route for a session.
func (s *MemoryStore) Lookup(ctx context.Context, sessionID string) (*Route, error) {
	s.mu.RLock()
	route, ok := s.routes[sessionID]
	s.mu.RUnlock()

	if !ok || time.Now().After(route.expiresAt) {
		return nil, ErrRouteNotFound
	}

	return &Route{SessionID: sessionID, Instance: route.instance}, nil
}

// Refresh extends a live route's TTL.
func (s *MemoryStore) Refresh(ctx context.Context, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	route, ok := s.routes[sessionID]
	if !ok || time.Now().After(route.expiresAt) {
		return ErrRouteNotFound
	}

	route.expiresAt = time.Now().Add(ttl)
	s.routes[sessionID] = route
	return nil
}

// Unregister drops a session's route.
func (s *MemoryStore) Unregister(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.routes, sessionID)
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
