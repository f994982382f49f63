package stage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ingresso/internal/candidate"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/tx"
)

type stubReviewGate struct {
	unresolved int
}

func (g *stubReviewGate) CountUnresolved(context.Context, id.StageID) (int, error) {
	return g.unresolved, nil
}

type stubPurger struct {
	purged []id.StageID
}

func (p *stubPurger) PurgeStage(_ context.Context, stageID id.StageID) error {
	p.purged = append(p.purged, stageID)
	return nil
}

type StageServiceSuite struct {
	suite.Suite
	stages     *MemoryStore
	candidates *candidate.MemoryStore
	reviews    *stubReviewGate
	purger     *stubPurger
	service    *Service
	editionID  id.EditionID
}

func TestStageServiceSuite(t *testing.T) {
	suite.Run(t, new(StageServiceSuite))
}

func (s *StageServiceSuite) SetupTest() {
	s.stages = NewMemoryStore()
	s.candidates = candidate.NewMemoryStore()
	s.reviews = &stubReviewGate{}
	s.purger = &stubPurger{}
	s.service = NewService(s.stages, s.candidates, s.reviews, s.purger, tx.NewMemoryRunner())
	s.editionID = id.EditionID(uuid.New())

	// Imported candidate data is a precondition for every stage.
	app := &candidate.Application{
		ID:        id.ApplicationID(uuid.New()),
		EditionID: s.editionID,
		CourseID:  id.CourseID(uuid.New()),
		Track:     "AC",
		BirthDate: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.candidates.ImportBatch(context.Background(), []*candidate.Application{app}))
}

func (s *StageServiceSuite) create(number int, campus string, multiplier int) (*Stage, error) {
	return s.service.Create(context.Background(), CreateParams{
		EditionID:  s.editionID,
		Number:     number,
		Campus:     campus,
		Multiplier: multiplier,
	})
}

func (s *StageServiceSuite) TestCreate() {
	s.Run("rejects multiplier below 1", func() {
		_, err := s.create(1, "", 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		fields := dErrors.FieldsOf(err)
		s.Require().Len(fields, 1)
		s.Equal("multiplier", fields[0].Field)
	})

	s.Run("stage zero requires multiplier 1", func() {
		_, err := s.create(0, "", 2)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects edition without candidate data", func() {
		_, err := s.service.Create(context.Background(), CreateParams{
			EditionID:  id.EditionID(uuid.New()),
			Number:     1,
			Multiplier: 1,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "candidate data")
	})

	s.Run("creates an open systemic stage", func() {
		st, err := s.create(1, "", 2)
		s.Require().NoError(err)
		s.True(st.Open)
		s.True(st.Systemic())
	})

	s.Run("second open stage in the same scope fails", func() {
		_, err := s.create(2, "", 1)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("campus scope is independent of the open systemic stage", func() {
		st, err := s.create(1, "north", 1)
		s.Require().NoError(err)
		s.Equal("north", st.Campus)
	})

	s.Run("systemic stage refused once campus stages exist", func() {
		other := id.EditionID(uuid.New())
		app := &candidate.Application{
			ID:        id.ApplicationID(uuid.New()),
			EditionID: other,
			CourseID:  id.CourseID(uuid.New()),
			Track:     "AC",
		}
		s.Require().NoError(s.candidates.ImportBatch(context.Background(), []*candidate.Application{app}))

		_, err := s.service.Create(context.Background(), CreateParams{
			EditionID: other, Number: 1, Campus: "south", Multiplier: 1,
		})
		s.Require().NoError(err)

		_, err = s.service.Create(context.Background(), CreateParams{
			EditionID: other, Number: 2, Multiplier: 1,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *StageServiceSuite) TestClose() {
	ctx := context.Background()

	s.Run("missing stage is not found", func() {
		err := s.service.Close(ctx, id.StageID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("closes an open stage", func() {
		st, err := s.create(1, "", 1)
		s.Require().NoError(err)

		s.Require().NoError(s.service.Close(ctx, st.ID))

		got, err := s.stages.Get(ctx, st.ID)
		s.Require().NoError(err)
		s.False(got.Open)
		s.NotNil(got.ClosedAt)
	})

	s.Run("closing twice is a validation error", func() {
		st, err := s.create(2, "", 1)
		s.Require().NoError(err)
		s.Require().NoError(s.service.Close(ctx, st.ID))

		err = s.service.Close(ctx, st.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("managed analysis blocks close while reviews are unresolved", func() {
		st, err := s.service.Create(ctx, CreateParams{
			EditionID: s.editionID, Number: 3, Multiplier: 1, ManagedAnalysis: true,
		})
		s.Require().NoError(err)

		s.reviews.unresolved = 2
		err = s.service.Close(ctx, st.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		s.reviews.unresolved = 0
		s.NoError(s.service.Close(ctx, st.ID))
	})
}

func (s *StageServiceSuite) TestReopen() {
	ctx := context.Background()

	s.Run("reopening an open stage fails", func() {
		st, err := s.create(1, "", 1)
		s.Require().NoError(err)

		err = s.service.Reopen(ctx, st.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		s.Require().NoError(s.service.Close(ctx, st.ID))
	})

	s.Run("reopen purges outcomes and restores the stage", func() {
		stages, err := s.stages.ListByEdition(ctx, s.editionID)
		s.Require().NoError(err)
		s.Require().Len(stages, 1)
		st := stages[0]

		s.Require().NoError(s.service.Reopen(ctx, st.ID))
		s.Equal([]id.StageID{st.ID}, s.purger.purged)

		got, err := s.stages.Get(ctx, st.ID)
		s.Require().NoError(err)
		s.True(got.Open)
		s.Nil(got.ClosedAt)
	})

	s.Run("only the latest stage can reopen", func() {
		stages, err := s.stages.ListByEdition(ctx, s.editionID)
		s.Require().NoError(err)
		first := stages[0]
		s.Require().NoError(s.service.Close(ctx, first.ID))

		second, err := s.create(2, "", 1)
		s.Require().NoError(err)
		s.Require().NoError(s.service.Close(ctx, second.ID))

		err = s.service.Reopen(ctx, first.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.NoError(s.service.Reopen(ctx, second.ID))
	})
}
