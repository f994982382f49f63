package call

import (
	"context"
	"sync"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
)

type key struct {
	stageID  id.StageID
	courseID id.CourseID
	track    string
}

// Store is the persistence contract for calls.
type Store interface {
	// CreateIfAbsent inserts the call unless one already exists for its
	// (stage, course, track) key; it returns the stored call and whether a
	// new one was created.
	CreateIfAbsent(ctx context.Context, c *Call) (*Call, bool, error)
	Get(ctx context.Context, callID id.CallID) (*Call, error)
	ListByStage(ctx context.Context, stageID id.StageID) ([]*Call, error)
}

// MemoryStore keeps calls in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	calls  map[id.CallID]*Call
	byKey  map[key]id.CallID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		calls: make(map[id.CallID]*Call),
		byKey: make(map[key]id.CallID),
	}
}

func (s *MemoryStore) CreateIfAbsent(_ context.Context, c *Call) (*Call, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{stageID: c.StageID, courseID: c.CourseID, track: c.Track}
	if existingID, ok := s.byKey[k]; ok {
		cp := *s.calls[existingID]
		return &cp, false, nil
	}
	cp := *c
	s.calls[c.ID] = &cp
	s.byKey[k] = c.ID
	out := cp
	return &out, true, nil
}

func (s *MemoryStore) Get(_ context.Context, callID id.CallID) (*Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calls[callID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListByStage(_ context.Context, stageID id.StageID) ([]*Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Call
	for _, c := range s.calls {
		if c.StageID == stageID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}
