package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ingresso/internal/call"
	"ingresso/internal/candidate"
	"ingresso/internal/events"
	"ingresso/internal/interest"
	"ingresso/internal/seat"
	"ingresso/internal/stage"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/sentinel"
	"ingresso/pkg/platform/tx"
)

type docVerdict struct {
	valid       bool
	observation string
}

type stubDocuments struct {
	verdicts map[id.ApplicationID]docVerdict
}

func (d *stubDocuments) Validity(_ context.Context, appID id.ApplicationID, _ id.StageID) (bool, string, bool, error) {
	v, ok := d.verdicts[appID]
	if !ok {
		return false, "", false, nil
	}
	return v.valid, v.observation, true, nil
}

type AllocationServiceSuite struct {
	suite.Suite
	store      *MemoryStore
	stages     *stage.MemoryStore
	calls      *call.MemoryStore
	candidates *candidate.MemoryStore
	interests  *interest.MemoryStore
	seats      *seat.MemoryStore
	documents  *stubDocuments
	publisher  *events.MemoryPublisher
	service    *Service

	editionID id.EditionID
	courseID  id.CourseID
	stageID   id.StageID
	appA      *candidate.Application
	appB      *candidate.Application
	appC      *candidate.Application
}

func TestAllocationServiceSuite(t *testing.T) {
	suite.Run(t, new(AllocationServiceSuite))
}

// SetupTest recreates the shape of edition PS2024: one systemic stage
// with multiplier 2, a single declared seat for (course X, track Open)
// and three ranked applications.
func (s *AllocationServiceSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.stages = stage.NewMemoryStore()
	s.calls = call.NewMemoryStore()
	s.candidates = candidate.NewMemoryStore()
	s.interests = interest.NewMemoryStore()
	s.seats = seat.NewMemoryStore()
	s.documents = &stubDocuments{verdicts: make(map[id.ApplicationID]docVerdict)}
	s.publisher = events.NewMemoryPublisher()
	s.service = NewService(s.store, s.stages, s.calls, s.candidates, s.interests, s.seats, s.documents,
		tx.NewMemoryRunner(), WithEventPublisher(s.publisher))

	ctx := context.Background()
	s.editionID = id.EditionID(uuid.New())
	s.courseID = id.CourseID(uuid.New())

	st := &stage.Stage{
		ID:         id.StageID(uuid.New()),
		EditionID:  s.editionID,
		Number:     1,
		Open:       true,
		Multiplier: 2,
	}
	s.Require().NoError(s.stages.Create(ctx, st))
	s.stageID = st.ID

	s.Require().NoError(s.seats.CreateBatch(ctx, []*seat.Seat{{
		ID:        id.SeatID(uuid.New()),
		EditionID: s.editionID,
		CourseID:  s.courseID,
		Track:     "Open",
	}}))

	mk := func(overall float64) *candidate.Application {
		return &candidate.Application{
			ID:        id.ApplicationID(uuid.New()),
			EditionID: s.editionID,
			CourseID:  s.courseID,
			Track:     "Open",
			BirthDate: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			Score:     candidate.Score{Overall: overall},
		}
	}
	s.appA, s.appB, s.appC = mk(900), mk(800), mk(700)
	s.Require().NoError(s.candidates.ImportBatch(ctx, []*candidate.Application{s.appA, s.appB, s.appC}))

	generator := call.NewGenerator(s.stages, s.seats, s.candidates, s.calls)
	_, err := generator.Generate(ctx, s.stageID)
	s.Require().NoError(err)

	for _, app := range []*candidate.Application{s.appA, s.appB} {
		s.Require().NoError(s.interests.Create(ctx, &interest.Confirmation{
			ID:            id.ConfirmationID(uuid.New()),
			ApplicationID: app.ID,
			StageID:       s.stageID,
			ConfirmedAt:   time.Now(),
		}))
	}
}

func (s *AllocationServiceSuite) approveAll() {
	for _, app := range []*candidate.Application{s.appA, s.appB, s.appC} {
		s.documents.verdicts[app.ID] = docVerdict{valid: true}
	}
}

func (s *AllocationServiceSuite) outcomeFor(appID id.ApplicationID) *Outcome {
	o, err := s.store.GetOutcome(context.Background(), appID, s.stageID)
	s.Require().NoError(err)
	return o
}

func (s *AllocationServiceSuite) TestRun() {
	ctx := context.Background()
	s.approveAll()

	s.Run("unknown stage", func() {
		_, err := s.service.Run(ctx, id.StageID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("one seat, multiplier two", func() {
		outcomes, err := s.service.Run(ctx, s.stageID)
		s.Require().NoError(err)
		s.Len(outcomes, 3)

		s.Equal(StatusAccepted, s.outcomeFor(s.appA.ID).Status)
		waitlisted := s.outcomeFor(s.appB.ID)
		s.Equal(StatusWaitlisted, waitlisted.Status)
		s.Equal("candidate on waiting list", waitlisted.Reason)
		s.Equal(StatusRejected, s.outcomeFor(s.appC.ID).Status)

		enrollment, err := s.store.FindEnrollment(ctx, s.appA.ID, s.stageID)
		s.Require().NoError(err)
		s.Equal(s.courseID, enrollment.CourseID)

		free, err := s.seats.CountFree(ctx, s.editionID, s.courseID, "Open")
		s.Require().NoError(err)
		s.Equal(0, free)
	})

	s.Run("publishes one event per outcome", func() {
		s.Len(s.publisher.OutcomeEvents(), 3)
	})

	s.Run("rerun is idempotent", func() {
		_, err := s.service.Run(ctx, s.stageID)
		s.Require().NoError(err)

		outcomes, err := s.store.ListOutcomesByStage(ctx, s.stageID)
		s.Require().NoError(err)
		s.Len(outcomes, 3)
		s.Equal(StatusAccepted, s.outcomeFor(s.appA.ID).Status)

		enrollments, err := s.store.ListEnrollmentsByStage(ctx, s.stageID)
		s.Require().NoError(err)
		s.Len(enrollments, 1)
	})
}

func (s *AllocationServiceSuite) TestRunDocumentGating() {
	ctx := context.Background()

	s.Run("invalid documents reject with the review observation", func() {
		s.documents.verdicts[s.appA.ID] = docVerdict{valid: false, observation: "PARECER DO RECURSO: COMPROVANTE ILEGIVEL"}
		s.documents.verdicts[s.appB.ID] = docVerdict{valid: true}

		_, err := s.service.Run(ctx, s.stageID)
		s.Require().NoError(err)

		rejected := s.outcomeFor(s.appA.ID)
		s.Equal(StatusRejected, rejected.Status)
		s.Equal("PARECER DO RECURSO: COMPROVANTE ILEGIVEL", rejected.Reason)

		// The seat skips the invalid leader.
		s.Equal(StatusAccepted, s.outcomeFor(s.appB.ID).Status)
	})

	s.Run("confirmed but unreviewed applications are rejected", func() {
		delete(s.documents.verdicts, s.appA.ID)
		_, err := s.service.Run(ctx, s.stageID)
		s.Require().NoError(err)

		o := s.outcomeFor(s.appA.ID)
		s.Equal(StatusRejected, o.Status)
		s.Equal("documentation not reviewed", o.Reason)
	})

	s.Run("unconfirmed and unreviewed applications are skipped", func() {
		_, err := s.store.GetOutcome(ctx, s.appC.ID, s.stageID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		outcomes, err := s.store.ListOutcomesByStage(ctx, s.stageID)
		s.Require().NoError(err)
		s.Len(outcomes, 2)
	})
}

func (s *AllocationServiceSuite) TestCancelEnrollment() {
	ctx := context.Background()
	s.approveAll()

	_, err := s.service.Run(ctx, s.stageID)
	s.Require().NoError(err)
	enrollment, err := s.store.FindEnrollment(ctx, s.appA.ID, s.stageID)
	s.Require().NoError(err)

	s.Run("frees the seat without promoting the waitlist", func() {
		s.Require().NoError(s.service.CancelEnrollment(ctx, enrollment.ID))

		free, err := s.seats.CountFree(ctx, s.editionID, s.courseID, "Open")
		s.Require().NoError(err)
		s.Equal(1, free)
		s.Equal(StatusWaitlisted, s.outcomeFor(s.appB.ID).Status)
	})

	s.Run("a fresh pass fills the freed seat", func() {
		s.documents.verdicts[s.appA.ID] = docVerdict{valid: false, observation: "matricula cancelada"}
		_, err := s.service.Run(ctx, s.stageID)
		s.Require().NoError(err)
		s.Equal(StatusAccepted, s.outcomeFor(s.appB.ID).Status)
	})

	s.Run("unknown enrollment", func() {
		err := s.service.CancelEnrollment(ctx, id.EnrollmentID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AllocationServiceSuite) TestPurgeStage() {
	ctx := context.Background()
	s.approveAll()

	_, err := s.service.Run(ctx, s.stageID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.PurgeStage(ctx, s.stageID))

	outcomes, err := s.store.ListOutcomesByStage(ctx, s.stageID)
	s.Require().NoError(err)
	s.Empty(outcomes)

	enrollments, err := s.store.ListEnrollmentsByStage(ctx, s.stageID)
	s.Require().NoError(err)
	s.Empty(enrollments)

	free, err := s.seats.CountFree(ctx, s.editionID, s.courseID, "Open")
	s.Require().NoError(err)
	s.Equal(1, free)
}
