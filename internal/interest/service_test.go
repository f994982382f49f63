package interest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ingresso/internal/candidate"
	"ingresso/internal/stage"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/requestcontext"
)

type ConfirmSuite struct {
	suite.Suite
	stages     *stage.MemoryStore
	candidates *candidate.MemoryStore
	service    *Service
	stageID    id.StageID
	appID      id.ApplicationID
	inWindow   time.Time
}

func TestConfirmSuite(t *testing.T) {
	suite.Run(t, new(ConfirmSuite))
}

func (s *ConfirmSuite) SetupTest() {
	s.stages = stage.NewMemoryStore()
	s.candidates = candidate.NewMemoryStore()
	s.service = NewService(NewMemoryStore(), s.stages, s.candidates)

	s.stageID = id.StageID(uuid.New())
	s.appID = id.ApplicationID(uuid.New())
	editionID := id.EditionID(uuid.New())
	callID := id.CallID(uuid.New())
	s.inWindow = time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)

	st := &stage.Stage{
		ID:         s.stageID,
		EditionID:  editionID,
		Number:     1,
		Open:       true,
		Multiplier: 1,
		Schedule: stage.Schedule{
			InterestStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			InterestEnd:   time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		},
	}
	s.Require().NoError(s.stages.Create(context.Background(), st))

	app := &candidate.Application{
		ID:        s.appID,
		EditionID: editionID,
		CourseID:  id.CourseID(uuid.New()),
		Track:     "AC",
		CallID:    &callID,
	}
	s.Require().NoError(s.candidates.ImportBatch(context.Background(), []*candidate.Application{app}))
}

func (s *ConfirmSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ConfirmSuite) TestConfirm() {
	s.Run("accepts inside the interest window", func() {
		c, err := s.service.Confirm(s.ctxAt(s.inWindow), s.appID, s.stageID)
		s.Require().NoError(err)
		s.Equal(s.inWindow, c.ConfirmedAt)
	})

	s.Run("second confirmation conflicts", func() {
		_, err := s.service.Confirm(s.ctxAt(s.inWindow), s.appID, s.stageID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects outside the window", func() {
		late := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
		_, err := s.service.Confirm(s.ctxAt(late), id.ApplicationID(uuid.New()), s.stageID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects an uncalled application", func() {
		uncalled := &candidate.Application{
			ID:        id.ApplicationID(uuid.New()),
			EditionID: id.EditionID(uuid.New()),
			CourseID:  id.CourseID(uuid.New()),
			Track:     "AC",
		}
		s.Require().NoError(s.candidates.ImportBatch(context.Background(), []*candidate.Application{uncalled}))

		_, err := s.service.Confirm(s.ctxAt(s.inWindow), uncalled.ID, s.stageID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "not been called")
	})

	s.Run("rejects a closed stage", func() {
		st, err := s.stages.Get(context.Background(), s.stageID)
		s.Require().NoError(err)
		st.Open = false
		s.Require().NoError(s.stages.Update(context.Background(), st))

		_, err = s.service.Confirm(s.ctxAt(s.inWindow), s.appID, s.stageID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
