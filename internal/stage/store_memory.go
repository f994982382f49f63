package stage

import (
	"context"
	"sort"
	"sync"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
)

// Store is the persistence contract for stages.
type Store interface {
	Create(ctx context.Context, st *Stage) error
	Get(ctx context.Context, stageID id.StageID) (*Stage, error)
	Update(ctx context.Context, st *Stage) error
	ListByEdition(ctx context.Context, editionID id.EditionID) ([]*Stage, error)
	// FindOpen returns the open stage for the exact scope, or ErrNotFound.
	FindOpen(ctx context.Context, editionID id.EditionID, campus string) (*Stage, error)
	// HasCampusScoped reports whether any campus-scoped stage exists in the
	// edition.
	HasCampusScoped(ctx context.Context, editionID id.EditionID) (bool, error)
}

// MemoryStore keeps stages in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	stages map[id.StageID]*Stage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stages: make(map[id.StageID]*Stage)}
}

func (s *MemoryStore) Create(_ context.Context, st *Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.stages[st.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, other := range s.stages {
		if other.EditionID == st.EditionID && other.Number == st.Number && other.Campus == st.Campus {
			return sentinel.ErrConflict
		}
	}
	if st.Open && s.openScopeTaken(st) {
		return sentinel.ErrConflict
	}
	cp := *st
	s.stages[st.ID] = &cp
	return nil
}

// openScopeTaken reports whether another stage already holds the open slot
// for the same (edition, campus) scope.
func (s *MemoryStore) openScopeTaken(st *Stage) bool {
	for _, other := range s.stages {
		if other.ID != st.ID && other.Open &&
			other.EditionID == st.EditionID && other.Campus == st.Campus {
			return true
		}
	}
	return false
}

func (s *MemoryStore) Get(_ context.Context, stageID id.StageID) (*Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stages[stageID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, st *Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stages[st.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if st.Open && s.openScopeTaken(st) {
		return sentinel.ErrConflict
	}
	cp := *st
	s.stages[st.ID] = &cp
	return nil
}

func (s *MemoryStore) ListByEdition(_ context.Context, editionID id.EditionID) ([]*Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Stage
	for _, st := range s.stages {
		if st.EditionID == editionID {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *MemoryStore) FindOpen(_ context.Context, editionID id.EditionID, campus string) (*Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stages {
		if st.EditionID == editionID && st.Open && SameScope(st.Campus, campus) {
			cp := *st
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) HasCampusScoped(_ context.Context, editionID id.EditionID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stages {
		if st.EditionID == editionID && !st.Systemic() {
			return true, nil
		}
	}
	return false, nil
}
