package interest

import (
	"context"
	"sync"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
)

type pairKey struct {
	appID   id.ApplicationID
	stageID id.StageID
}

// Store is the persistence contract for interest confirmations.
type Store interface {
	// Create inserts the confirmation; ErrConflict when one already exists
	// for the (application, stage) pair.
	Create(ctx context.Context, c *Confirmation) error
	Find(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (*Confirmation, error)
	ListByStage(ctx context.Context, stageID id.StageID) ([]*Confirmation, error)
}

type MemoryStore struct {
	mu     sync.RWMutex
	byPair map[pairKey]*Confirmation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byPair: make(map[pairKey]*Confirmation)}
}

func (s *MemoryStore) Create(_ context.Context, c *Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pairKey{appID: c.ApplicationID, stageID: c.StageID}
	if _, exists := s.byPair[k]; exists {
		return sentinel.ErrConflict
	}
	cp := *c
	s.byPair[k] = &cp
	return nil
}

func (s *MemoryStore) Find(_ context.Context, appID id.ApplicationID, stageID id.StageID) (*Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byPair[pairKey{appID: appID, stageID: stageID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListByStage(_ context.Context, stageID id.StageID) ([]*Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Confirmation
	for _, c := range s.byPair {
		if c.StageID == stageID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}
