package call

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ingresso/internal/audit"
	"ingresso/internal/candidate"
	"ingresso/internal/seat"
	"ingresso/internal/stage"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/requestcontext"
)

type GeneratorSuite struct {
	suite.Suite
	stages     *stage.MemoryStore
	seats      *seat.MemoryStore
	candidates *candidate.MemoryStore
	calls      *MemoryStore
	generator  *Generator
	editionID  id.EditionID
	courseID   id.CourseID
	stageID    id.StageID
}

func TestGeneratorSuite(t *testing.T) {
	suite.Run(t, new(GeneratorSuite))
}

func (s *GeneratorSuite) SetupTest() {
	s.stages = stage.NewMemoryStore()
	s.seats = seat.NewMemoryStore()
	s.candidates = candidate.NewMemoryStore()
	s.calls = NewMemoryStore()
	s.generator = NewGenerator(s.stages, s.seats, s.candidates, s.calls)

	s.editionID = id.EditionID(uuid.New())
	s.courseID = id.CourseID(uuid.New())
	s.stageID = id.StageID(uuid.New())

	st := &stage.Stage{
		ID:         s.stageID,
		EditionID:  s.editionID,
		Number:     1,
		Open:       true,
		Multiplier: 2,
	}
	s.Require().NoError(s.stages.Create(context.Background(), st))
}

func (s *GeneratorSuite) seedSeats(track string, n int) {
	var seats []*seat.Seat
	for i := 0; i < n; i++ {
		seats = append(seats, &seat.Seat{
			ID:        id.SeatID(uuid.New()),
			EditionID: s.editionID,
			CourseID:  s.courseID,
			Track:     track,
		})
	}
	s.Require().NoError(s.seats.CreateBatch(context.Background(), seats))
}

func (s *GeneratorSuite) seedApp(track string, overall float64) *candidate.Application {
	app := &candidate.Application{
		ID:        id.ApplicationID(uuid.New()),
		EditionID: s.editionID,
		CourseID:  s.courseID,
		Track:     track,
		BirthDate: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Score:     candidate.Score{Overall: overall},
	}
	s.Require().NoError(s.candidates.ImportBatch(context.Background(), []*candidate.Application{app}))
	return app
}

func (s *GeneratorSuite) TestGenerate() {
	ctx := context.Background()

	s.Run("unknown stage is not found", func() {
		_, err := s.generator.Generate(ctx, id.StageID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("cuts each pool at seatCount times multiplier", func() {
		s.seedSeats("AC", 1)
		best := s.seedApp("AC", 900)
		second := s.seedApp("AC", 800)
		third := s.seedApp("AC", 700)

		calls, err := s.generator.Generate(ctx, s.stageID)
		s.Require().NoError(err)
		s.Require().Len(calls, 1)
		s.Equal(1, calls[0].SeatCount)
		s.Equal(2, calls[0].Threshold())

		members, err := s.candidates.ListByCall(ctx, calls[0].ID)
		s.Require().NoError(err)
		s.Len(members, 2)

		got, err := s.candidates.Get(ctx, best.ID)
		s.Require().NoError(err)
		s.Equal(1, got.Score.Rank)
		s.NotNil(got.CallID)

		got, err = s.candidates.Get(ctx, second.ID)
		s.Require().NoError(err)
		s.Equal(2, got.Score.Rank)
		s.NotNil(got.CallID)

		// Outside the cut: ranked but unassigned, eligible for a later stage.
		got, err = s.candidates.Get(ctx, third.ID)
		s.Require().NoError(err)
		s.Equal(3, got.Score.Rank)
		s.Nil(got.CallID)
	})

	s.Run("re-running is a no-op for existing calls", func() {
		before, err := s.calls.ListByStage(ctx, s.stageID)
		s.Require().NoError(err)
		s.Require().Len(before, 1)

		calls, err := s.generator.Generate(ctx, s.stageID)
		s.Require().NoError(err)
		s.Require().Len(calls, 1)
		s.Equal(before[0].ID, calls[0].ID)
	})

	s.Run("one call per pool", func() {
		s.seedSeats("L1", 2)
		s.seedApp("L1", 640)

		calls, err := s.generator.Generate(ctx, s.stageID)
		s.Require().NoError(err)
		s.Len(calls, 2)
	})

	s.Run("closed stage is refused", func() {
		st, err := s.stages.Get(ctx, s.stageID)
		s.Require().NoError(err)
		st.Open = false
		s.Require().NoError(s.stages.Update(ctx, st))

		_, err = s.generator.Generate(ctx, s.stageID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *GeneratorSuite) TestGenerateAudit() {
	auditStore := audit.NewMemoryStore()
	generator := NewGenerator(s.stages, s.seats, s.candidates, s.calls,
		WithAuditPublisher(audit.NewPublisher(auditStore)))

	s.seedSeats("Open", 1)
	s.seedApp("Open", 700)

	actor := id.UserID(uuid.New())
	ctx := requestcontext.WithActor(context.Background(), actor)

	_, err := generator.Generate(ctx, s.stageID)
	s.Require().NoError(err)

	events, err := auditStore.ListByActor(ctx, actor)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionCallsGenerated, events[0].Action)
	s.Equal(s.stageID.String(), events[0].EntityID)
	s.Equal("1", events[0].Detail)
}
