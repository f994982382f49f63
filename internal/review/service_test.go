package review

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ingresso/internal/events"
	"ingresso/internal/interest"
	"ingresso/internal/stage"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/requestcontext"
)

type ReviewServiceSuite struct {
	suite.Suite
	reviews       *MemoryStore
	confirmations *interest.MemoryStore
	stages        *stage.MemoryStore
	publisher     *events.MemoryPublisher
	service       *Service
	stageID       id.StageID
	appID         id.ApplicationID
	confID        id.ConfirmationID
	inAnalysis    time.Time
}

func TestReviewServiceSuite(t *testing.T) {
	suite.Run(t, new(ReviewServiceSuite))
}

func (s *ReviewServiceSuite) SetupTest() {
	s.reviews = NewMemoryStore()
	s.confirmations = interest.NewMemoryStore()
	s.stages = stage.NewMemoryStore()
	s.publisher = events.NewMemoryPublisher()
	s.service = NewService(s.reviews, s.confirmations, s.stages, WithPublisher(s.publisher))

	s.stageID = id.StageID(uuid.New())
	s.appID = id.ApplicationID(uuid.New())
	s.confID = id.ConfirmationID(uuid.New())
	s.inAnalysis = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	st := &stage.Stage{
		ID:         s.stageID,
		EditionID:  id.EditionID(uuid.New()),
		Number:     1,
		Open:       true,
		Multiplier: 1,
		Schedule: stage.Schedule{
			AnalysisStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			AnalysisEnd:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
	}
	s.Require().NoError(s.stages.Create(context.Background(), st))

	conf := &interest.Confirmation{
		ID:            s.confID,
		ApplicationID: s.appID,
		StageID:       s.stageID,
	}
	s.Require().NoError(s.confirmations.Create(context.Background(), conf))
}

func (s *ReviewServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ReviewServiceSuite) TestSubmit() {
	ctx := s.ctxAt(s.inAnalysis)

	s.Run("requires a matching confirmation", func() {
		_, err := s.service.Submit(ctx, s.confID, id.ApplicationID(uuid.New()), s.stageID, true, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("records a valid verdict", func() {
		r, err := s.service.Submit(ctx, s.confID, s.appID, s.stageID, true, "all documents present")
		s.Require().NoError(err)
		s.Equal(StatusReviewed, r.Status)
		s.True(r.FinalValidity())
	})

	s.Run("second review conflicts", func() {
		_, err := s.service.Submit(ctx, s.confID, s.appID, s.stageID, false, "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ReviewServiceSuite) invalidReview() *DocumentReview {
	r, err := s.service.Submit(s.ctxAt(s.inAnalysis), s.confID, s.appID, s.stageID, false, "missing income proof")
	s.Require().NoError(err)
	return r
}

func (s *ReviewServiceSuite) TestAppeal() {
	s.Run("valid review is not appealable", func() {
		r, err := s.service.Submit(s.ctxAt(s.inAnalysis), s.confID, s.appID, s.stageID, true, "")
		s.Require().NoError(err)

		ok, err := s.service.CanAppeal(s.ctxAt(s.inAnalysis), r.ID, s.stageID)
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *ReviewServiceSuite) TestAppealFlow() {
	r := s.invalidReview()

	s.Run("appealable strictly inside the analysis window", func() {
		ok, err := s.service.CanAppeal(s.ctxAt(s.inAnalysis), r.ID, s.stageID)
		s.Require().NoError(err)
		s.True(ok)

		afterWindow := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
		ok, err = s.service.CanAppeal(s.ctxAt(afterWindow), r.ID, s.stageID)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("filing outside the window is a validation error", func() {
		late := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
		_, err := s.service.FileAppeal(s.ctxAt(late), r.ID, s.stageID, "documents were uploaded in time")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("files and resolves an accepted appeal", func() {
		appealed, err := s.service.FileAppeal(s.ctxAt(s.inAnalysis), r.ID, s.stageID, "documents were uploaded in time")
		s.Require().NoError(err)
		s.Equal(StatusAppealed, appealed.Status)

		resolved, err := s.service.ResolveAppeal(s.ctxAt(s.inAnalysis), r.ID, s.appID, s.stageID, true, "proof accepted on recheck")
		s.Require().NoError(err)
		s.Equal(StatusAppealResolved, resolved.Status)
		s.True(resolved.FinalValidity())

		s.Require().Len(s.publisher.Appeals, 1)
		s.True(s.publisher.Appeals[0].Accepted)
	})

	s.Run("resolving twice is an invalid state", func() {
		_, err := s.service.ResolveAppeal(s.ctxAt(s.inAnalysis), r.ID, s.appID, s.stageID, false, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ReviewServiceSuite) TestObservation() {
	r := s.invalidReview()

	s.Run("invalid review uses the reviewer note", func() {
		got, err := s.reviews.Get(context.Background(), r.ID)
		s.Require().NoError(err)
		s.Equal("missing income proof", got.Observation())
	})

	s.Run("rejected appeal uses the labelled upper-cased ruling", func() {
		_, err := s.service.FileAppeal(s.ctxAt(s.inAnalysis), r.ID, s.stageID, "please recheck")
		s.Require().NoError(err)
		_, err = s.service.ResolveAppeal(s.ctxAt(s.inAnalysis), r.ID, s.appID, s.stageID, false, "income proof illegible")
		s.Require().NoError(err)

		got, err := s.reviews.Get(context.Background(), r.ID)
		s.Require().NoError(err)
		s.Equal("PARECER DO RECURSO: INCOME PROOF ILLEGIBLE", got.Observation())
		s.False(got.FinalValidity())
	})
}

func (s *ReviewServiceSuite) TestCountUnresolvedAndValidity() {
	ctx := s.ctxAt(s.inAnalysis)

	s.Run("pending confirmation counts as unresolved", func() {
		n, err := s.service.CountUnresolved(ctx, s.stageID)
		s.Require().NoError(err)
		s.Equal(1, n)

		_, observation, decided, err := s.service.Validity(ctx, s.appID, s.stageID)
		s.Require().NoError(err)
		s.False(decided)
		s.Empty(observation)
	})

	s.Run("resolved review clears the gate and decides validity", func() {
		_, err := s.service.Submit(ctx, s.confID, s.appID, s.stageID, true, "")
		s.Require().NoError(err)

		n, err := s.service.CountUnresolved(ctx, s.stageID)
		s.Require().NoError(err)
		s.Equal(0, n)

		valid, _, decided, err := s.service.Validity(ctx, s.appID, s.stageID)
		s.Require().NoError(err)
		s.True(decided)
		s.True(valid)
	})
}
