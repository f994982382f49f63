package edition

import (
	"context"
	"sync"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
)

// Store is the persistence contract for editions.
type Store interface {
	Create(ctx context.Context, e *Edition) error
	Get(ctx context.Context, editionID id.EditionID) (*Edition, error)
}

type MemoryStore struct {
	mu       sync.RWMutex
	editions map[id.EditionID]*Edition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{editions: make(map[id.EditionID]*Edition)}
}

func (s *MemoryStore) Create(_ context.Context, e *Edition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.editions[e.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *e
	s.editions[e.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, editionID id.EditionID) (*Edition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.editions[editionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}
