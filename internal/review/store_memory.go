package review

import (
	"context"
	"sync"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
)

// Store is the persistence contract for document reviews.
type Store interface {
	Create(ctx context.Context, r *DocumentReview) error
	Update(ctx context.Context, r *DocumentReview) error
	Get(ctx context.Context, reviewID id.ReviewID) (*DocumentReview, error)
	FindByConfirmation(ctx context.Context, confirmationID id.ConfirmationID) (*DocumentReview, error)
}

type MemoryStore struct {
	mu             sync.RWMutex
	reviews        map[id.ReviewID]*DocumentReview
	byConfirmation map[id.ConfirmationID]id.ReviewID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reviews:        make(map[id.ReviewID]*DocumentReview),
		byConfirmation: make(map[id.ConfirmationID]id.ReviewID),
	}
}

func clone(r *DocumentReview) *DocumentReview {
	cp := *r
	if r.Appeal != nil {
		a := *r.Appeal
		cp.Appeal = &a
	}
	return &cp
}

func (s *MemoryStore) Create(_ context.Context, r *DocumentReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byConfirmation[r.ConfirmationID]; exists {
		return sentinel.ErrConflict
	}
	s.reviews[r.ID] = clone(r)
	s.byConfirmation[r.ConfirmationID] = r.ID
	return nil
}

func (s *MemoryStore) Update(_ context.Context, r *DocumentReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[r.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.reviews[r.ID] = clone(r)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, reviewID id.ReviewID) (*DocumentReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[reviewID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(r), nil
}

func (s *MemoryStore) FindByConfirmation(_ context.Context, confirmationID id.ConfirmationID) (*DocumentReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviewID, ok := s.byConfirmation[confirmationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.reviews[reviewID]), nil
}
