package seat

import (
	"context"
	"sort"
	"sync"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
)

// Store is the persistence contract for seats.
type Store interface {
	CreateBatch(ctx context.Context, seats []*Seat) error
	ListGroups(ctx context.Context, editionID id.EditionID) ([]Group, error)
	CountFree(ctx context.Context, editionID id.EditionID, courseID id.CourseID, track string) (int, error)
	// Occupy fills one free seat in the group and returns it. ErrInvalidState
	// when the group has no free seat.
	Occupy(ctx context.Context, editionID id.EditionID, courseID id.CourseID, track string, appID id.ApplicationID) (*Seat, error)
	// Release frees the seat occupied by the given application.
	Release(ctx context.Context, appID id.ApplicationID) error
	// RetagFree moves all unoccupied seats of a group to another track and
	// returns how many moved.
	RetagFree(ctx context.Context, editionID id.EditionID, courseID id.CourseID, from, to string) (int, error)
}

// MemoryStore keeps seats in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	seats map[id.SeatID]*Seat
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seats: make(map[id.SeatID]*Seat)}
}

func (s *MemoryStore) CreateBatch(_ context.Context, seats []*Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range seats {
		if _, exists := s.seats[st.ID]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, st := range seats {
		cp := *st
		s.seats[st.ID] = &cp
	}
	return nil
}

func (s *MemoryStore) ListGroups(_ context.Context, editionID id.EditionID) ([]Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Group]int)
	for _, st := range s.seats {
		if st.EditionID != editionID {
			continue
		}
		counts[Group{CourseID: st.CourseID, Track: st.Track}]++
	}
	groups := make([]Group, 0, len(counts))
	for g, n := range counts {
		g.Total = n
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CourseID != groups[j].CourseID {
			return groups[i].CourseID.String() < groups[j].CourseID.String()
		}
		return groups[i].Track < groups[j].Track
	})
	return groups, nil
}

func (s *MemoryStore) CountFree(_ context.Context, editionID id.EditionID, courseID id.CourseID, track string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, st := range s.seats {
		if st.EditionID == editionID && st.CourseID == courseID && st.Track == track && st.Free() {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Occupy(_ context.Context, editionID id.EditionID, courseID id.CourseID, track string, appID id.ApplicationID) (*Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.seats {
		if st.EditionID == editionID && st.CourseID == courseID && st.Track == track && st.Free() {
			a := appID
			st.OccupiedBy = &a
			cp := *st
			return &cp, nil
		}
	}
	return nil, sentinel.ErrInvalidState
}

func (s *MemoryStore) Release(_ context.Context, appID id.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.seats {
		if st.OccupiedBy != nil && *st.OccupiedBy == appID {
			st.OccupiedBy = nil
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *MemoryStore) RetagFree(_ context.Context, editionID id.EditionID, courseID id.CourseID, from, to string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := 0
	for _, st := range s.seats {
		if st.EditionID == editionID && st.CourseID == courseID && st.Track == from && st.Free() {
			st.Track = to
			moved++
		}
	}
	return moved, nil
}
