package candidate

import (
	"context"
	"sync"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
)

// Store is the persistence contract for applications and scores.
type Store interface {
	ImportBatch(ctx context.Context, apps []*Application) error
	Get(ctx context.Context, appID id.ApplicationID) (*Application, error)
	CountByEdition(ctx context.Context, editionID id.EditionID) (int, error)
	ListByGroup(ctx context.Context, editionID id.EditionID, courseID id.CourseID, track string) ([]*Application, error)
	ListByCall(ctx context.Context, callID id.CallID) ([]*Application, error)
	AssignCall(ctx context.Context, appID id.ApplicationID, callID id.CallID) error
	UpdateScore(ctx context.Context, appID id.ApplicationID, score Score) error
	SetRank(ctx context.Context, appID id.ApplicationID, rank int) error
}

// MemoryStore keeps applications in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]*Application
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{apps: make(map[id.ApplicationID]*Application)}
}

func (s *MemoryStore) ImportBatch(_ context.Context, apps []*Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range apps {
		if _, exists := s.apps[a.ID]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, a := range apps {
		cp := *a
		s.apps[a.ID] = &cp
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, appID id.ApplicationID) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) CountByEdition(_ context.Context, editionID id.EditionID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.apps {
		if a.EditionID == editionID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListByGroup(_ context.Context, editionID id.EditionID, courseID id.CourseID, track string) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Application
	for _, a := range s.apps {
		if a.EditionID == editionID && a.CourseID == courseID && a.Track == track {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListByCall(_ context.Context, callID id.CallID) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Application
	for _, a := range s.apps {
		if a.CallID != nil && *a.CallID == callID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) AssignCall(_ context.Context, appID id.ApplicationID, callID id.CallID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[appID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c := callID
	a.CallID = &c
	return nil
}

func (s *MemoryStore) UpdateScore(_ context.Context, appID id.ApplicationID, score Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[appID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// Rank is owned by the ranking engine; keep the previous one until the
	// group is re-ranked.
	score.Rank = a.Score.Rank
	a.Score = score
	return nil
}

func (s *MemoryStore) SetRank(_ context.Context, appID id.ApplicationID, rank int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[appID]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.Score.Rank = rank
	return nil
}
