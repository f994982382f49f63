package preanalysis

import (
	"context"
	"sync"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
)

type Store interface {
	CreatePhase(ctx context.Context, phase *Phase) error
	GetPhase(ctx context.Context, phaseID id.PhaseID) (*Phase, error)

	Enqueue(ctx context.Context, app *PreAnalysisApplication) error
	Get(ctx context.Context, preID id.PreAnalysisID) (*PreAnalysisApplication, error)
	FindByApplication(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (*PreAnalysisApplication, error)
	ListBySituation(ctx context.Context, phaseID id.PhaseID, situation string) ([]*PreAnalysisApplication, error)
	Update(ctx context.Context, app *PreAnalysisApplication) error
	CountUnresolvedByStage(ctx context.Context, stageID id.StageID) (int, error)

	UpsertEvaluation(ctx context.Context, eval *Evaluation) (replaced bool, err error)
	ListEvaluations(ctx context.Context, preID id.PreAnalysisID) ([]Evaluation, error)
	DeleteEvaluations(ctx context.Context, preID id.PreAnalysisID) error

	GetMailbox(ctx context.Context, phaseID id.PhaseID, reviewerID id.ReviewerID) (*Mailbox, error)
	SaveMailbox(ctx context.Context, box *Mailbox) error

	AddReason(ctx context.Context, reason RejectionReason) error
	GetReason(ctx context.Context, code string) (*RejectionReason, error)

	MarkAdjusted(ctx context.Context, preID id.PreAnalysisID) error
}

type evalKey struct {
	pre      id.PreAnalysisID
	reviewer id.ReviewerID
}

type boxKey struct {
	phase    id.PhaseID
	reviewer id.ReviewerID
}

type MemoryStore struct {
	mu       sync.RWMutex
	phases   map[id.PhaseID]*Phase
	apps     map[id.PreAnalysisID]*PreAnalysisApplication
	evals    map[evalKey]*Evaluation
	boxes    map[boxKey]*Mailbox
	reasons  map[string]RejectionReason
	adjusted map[id.PreAnalysisID]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		phases:   make(map[id.PhaseID]*Phase),
		apps:     make(map[id.PreAnalysisID]*PreAnalysisApplication),
		evals:    make(map[evalKey]*Evaluation),
		boxes:    make(map[boxKey]*Mailbox),
		reasons:  make(map[string]RejectionReason),
		adjusted: make(map[id.PreAnalysisID]struct{}),
	}
}

func (s *MemoryStore) CreatePhase(_ context.Context, phase *Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.phases[phase.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *phase
	s.phases[phase.ID] = &cp
	return nil
}

func (s *MemoryStore) GetPhase(_ context.Context, phaseID id.PhaseID) (*Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	phase, ok := s.phases[phaseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *phase
	return &cp, nil
}

func (s *MemoryStore) Enqueue(_ context.Context, app *PreAnalysisApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *app
	s.apps[app.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, preID id.PreAnalysisID) (*PreAnalysisApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[preID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *app
	return &cp, nil
}

func (s *MemoryStore) FindByApplication(_ context.Context, appID id.ApplicationID, stageID id.StageID) (*PreAnalysisApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.apps {
		if app.ApplicationID == appID && app.StageID == stageID {
			cp := *app
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListBySituation(_ context.Context, phaseID id.PhaseID, situation string) ([]*PreAnalysisApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*PreAnalysisApplication
	for _, app := range s.apps {
		if app.PhaseID == phaseID && app.Situation == situation {
			cp := *app
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, app *PreAnalysisApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *app
	s.apps[app.ID] = &cp
	return nil
}

func (s *MemoryStore) CountUnresolvedByStage(_ context.Context, stageID id.StageID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, app := range s.apps {
		if app.StageID == stageID && !app.Resolved() {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UpsertEvaluation(_ context.Context, eval *Evaluation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := evalKey{pre: eval.PreAnalysisID, reviewer: eval.ReviewerID}
	_, replaced := s.evals[key]
	cp := *eval
	s.evals[key] = &cp
	return replaced, nil
}

func (s *MemoryStore) ListEvaluations(_ context.Context, preID id.PreAnalysisID) ([]Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Evaluation
	for _, ev := range s.evals {
		if ev.PreAnalysisID == preID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteEvaluations(_ context.Context, preID id.PreAnalysisID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.evals {
		if key.pre == preID {
			delete(s.evals, key)
		}
	}
	return nil
}

func (s *MemoryStore) GetMailbox(_ context.Context, phaseID id.PhaseID, reviewerID id.ReviewerID) (*Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	box, ok := s.boxes[boxKey{phase: phaseID, reviewer: reviewerID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneMailbox(box), nil
}

func (s *MemoryStore) SaveMailbox(_ context.Context, box *Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boxes[boxKey{phase: box.PhaseID, reviewer: box.ReviewerID}] = cloneMailbox(box)
	return nil
}

func (s *MemoryStore) AddReason(_ context.Context, reason RejectionReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reasons[reason.Code]; ok {
		return sentinel.ErrConflict
	}
	s.reasons[reason.Code] = reason
	return nil
}

func (s *MemoryStore) GetReason(_ context.Context, code string) (*RejectionReason, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reason, ok := s.reasons[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &reason, nil
}

func (s *MemoryStore) MarkAdjusted(_ context.Context, preID id.PreAnalysisID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.adjusted[preID]; ok {
		return sentinel.ErrConflict
	}
	s.adjusted[preID] = struct{}{}
	return nil
}

func cloneMailbox(box *Mailbox) *Mailbox {
	cp := *box
	cp.Assigned = append([]id.PreAnalysisID(nil), box.Assigned...)
	return &cp
}
