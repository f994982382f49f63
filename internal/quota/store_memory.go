package quota

import (
	"context"
	"sync"
)

// Store is the persistence contract for the transition catalog.
type Store interface {
	ListAllowed(ctx context.Context) ([]Transition, error)
	AddAllowed(ctx context.Context, t Transition) error
}

type MemoryStore struct {
	mu      sync.RWMutex
	allowed []Transition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) ListAllowed(_ context.Context) ([]Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Transition, len(s.allowed))
	copy(out, s.allowed)
	return out, nil
}

func (s *MemoryStore) AddAllowed(_ context.Context, t Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowed = append(s.allowed, t)
	return nil
}
