package quota

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ingresso/internal/seat"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/tx"
)

type TransitionServiceSuite struct {
	suite.Suite
	catalog   *MemoryStore
	seats     *seat.MemoryStore
	service   *Service
	editionID id.EditionID
	courseID  id.CourseID
}

func TestTransitionServiceSuite(t *testing.T) {
	suite.Run(t, new(TransitionServiceSuite))
}

func (s *TransitionServiceSuite) SetupTest() {
	s.catalog = NewMemoryStore()
	s.seats = seat.NewMemoryStore()
	s.service = NewService(s.catalog, s.seats, tx.NewMemoryRunner())
	s.editionID = id.EditionID(uuid.New())
	s.courseID = id.CourseID(uuid.New())

	ctx := context.Background()
	s.Require().NoError(s.catalog.AddAllowed(ctx, Transition{From: "L1", To: "AC"}))
	s.Require().NoError(s.catalog.AddAllowed(ctx, Transition{From: "L2", To: "L1"}))
}

func (s *TransitionServiceSuite) seed(track string, occupied bool) {
	st := &seat.Seat{
		ID:        id.SeatID(uuid.New()),
		EditionID: s.editionID,
		CourseID:  s.courseID,
		Track:     track,
	}
	if occupied {
		app := id.ApplicationID(uuid.New())
		st.OccupiedBy = &app
	}
	s.Require().NoError(s.seats.CreateBatch(context.Background(), []*seat.Seat{st}))
}

func (s *TransitionServiceSuite) TestApplyTransitions() {
	ctx := context.Background()

	s.Run("empty batch is a validation error", func() {
		_, err := s.service.ApplyTransitions(ctx, s.editionID, s.courseID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("cyclic batch is refused before any seat moves", func() {
		s.seed("L1", false)
		_, err := s.service.ApplyTransitions(ctx, s.editionID, s.courseID, []Transition{
			{From: "L1", To: "AC"},
			{From: "AC", To: "L1"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		free, err := s.seats.CountFree(ctx, s.editionID, s.courseID, "L1")
		s.NoError(err)
		s.Equal(1, free)
	})

	s.Run("uncataloged edge is refused", func() {
		_, err := s.service.ApplyTransitions(ctx, s.editionID, s.courseID, []Transition{
			{From: "AC", To: "L2"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("moves only free seats", func() {
		s.seed("L2", false)
		s.seed("L2", true)

		moved, err := s.service.ApplyTransitions(ctx, s.editionID, s.courseID, []Transition{
			{From: "L2", To: "L1"},
		})
		s.NoError(err)
		s.Equal(1, moved)

		freeL2, err := s.seats.CountFree(ctx, s.editionID, s.courseID, "L2")
		s.NoError(err)
		s.Equal(0, freeL2)
	})
}
