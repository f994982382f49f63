package allocation

import (
	"context"
	"sync"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
)

type outcomeKey struct {
	app   id.ApplicationID
	stage id.StageID
}

type Store interface {
	UpsertOutcome(ctx context.Context, o *Outcome) error
	GetOutcome(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (*Outcome, error)
	ListOutcomesByStage(ctx context.Context, stageID id.StageID) ([]*Outcome, error)
	DeleteOutcomesByStage(ctx context.Context, stageID id.StageID) error

	CreateEnrollment(ctx context.Context, e *Enrollment) error
	GetEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) (*Enrollment, error)
	FindEnrollment(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (*Enrollment, error)
	ListEnrollmentsByStage(ctx context.Context, stageID id.StageID) ([]*Enrollment, error)
	DeleteEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) error
}

type MemoryStore struct {
	mu          sync.RWMutex
	outcomes    map[outcomeKey]*Outcome
	enrollments map[id.EnrollmentID]*Enrollment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		outcomes:    make(map[outcomeKey]*Outcome),
		enrollments: make(map[id.EnrollmentID]*Enrollment),
	}
}

func (s *MemoryStore) UpsertOutcome(_ context.Context, o *Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.outcomes[outcomeKey{app: o.ApplicationID, stage: o.StageID}] = &cp
	return nil
}

func (s *MemoryStore) GetOutcome(_ context.Context, appID id.ApplicationID, stageID id.StageID) (*Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.outcomes[outcomeKey{app: appID, stage: stageID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) ListOutcomesByStage(_ context.Context, stageID id.StageID) ([]*Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Outcome
	for _, o := range s.outcomes {
		if o.StageID == stageID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteOutcomesByStage(_ context.Context, stageID id.StageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, o := range s.outcomes {
		if o.StageID == stageID {
			delete(s.outcomes, key)
		}
	}
	return nil
}

func (s *MemoryStore) CreateEnrollment(_ context.Context, e *Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.enrollments {
		if existing.ApplicationID == e.ApplicationID && existing.StageID == e.StageID {
			return sentinel.ErrConflict
		}
	}
	cp := *e
	s.enrollments[e.ID] = &cp
	return nil
}

func (s *MemoryStore) GetEnrollment(_ context.Context, enrollmentID id.EnrollmentID) (*Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[enrollmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) FindEnrollment(_ context.Context, appID id.ApplicationID, stageID id.StageID) (*Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.enrollments {
		if e.ApplicationID == appID && e.StageID == stageID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListEnrollmentsByStage(_ context.Context, stageID id.StageID) ([]*Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Enrollment
	for _, e := range s.enrollments {
		if e.StageID == stageID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteEnrollment(_ context.Context, enrollmentID id.EnrollmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollments[enrollmentID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.enrollments, enrollmentID)
	return nil
}
