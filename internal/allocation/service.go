package allocation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	allocmetrics "ingresso/internal/allocation/metrics"
	"ingresso/internal/audit"
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
	"ingresso/pkg/requestcontext"
)

// DocumentCheck answers whether an application's documentation passed
// review. Implemented by both document-review workflows.
type DocumentCheck interface {
	Validity(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (valid bool, observation string, decided bool, err error)
}

// Service runs the allocator pass over a stage and manages the
// enrollments it produced.
type Service struct {
	store      Store
	stages     stage.Store
	calls      call.Store
	candidates candidate.Store
	interests  interest.Store
	seats      seat.Store
	documents  DocumentCheck
	publisher  events.Publisher
	runner     tx.Runner
	logger     *zap.Logger
	audit      *audit.Publisher
	metrics    *allocmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher *audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *allocmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEventPublisher(publisher events.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func NewService(store Store, stages stage.Store, calls call.Store, candidates candidate.Store, interests interest.Store, seats seat.Store, documents DocumentCheck, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:      store,
		stages:     stages,
		calls:      calls,
		candidates: candidates,
		interests:  interests,
		seats:      seats,
		documents:  documents,
		publisher:  events.NopPublisher{},
		runner:     runner,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run computes outcomes for every confirmed application of the stage in
// one transaction. Reruns with unchanged inputs update the stored
// outcomes in place.
func (s *Service) Run(ctx context.Context, stageID id.StageID) ([]*Outcome, error) {
	var (
		computed []*Outcome
		edition  id.EditionID
	)
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		st, err := s.stages.Get(txCtx, stageID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "stage not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage")
		}
		edition = st.EditionID

		calls, err := s.calls.ListByStage(txCtx, stageID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list calls")
		}

		now := requestcontext.Now(txCtx)
		for _, c := range calls {
			pool, err := s.candidates.ListByGroup(txCtx, st.EditionID, c.CourseID, c.Track)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list call pool")
			}
			sort.Slice(pool, func(i, j int) bool { return pool[i].Score.Rank < pool[j].Score.Rank })

			for _, app := range pool {
				engaged, err := s.engaged(txCtx, app.ID, stageID)
				if err != nil {
					return err
				}
				if !engaged {
					continue
				}
				outcome, err := s.decide(txCtx, st.EditionID, c, app, now)
				if err != nil {
					return err
				}
				if err := s.store.UpsertOutcome(txCtx, outcome); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store outcome")
				}
				computed = append(computed, outcome)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, o := range computed {
		event := events.OutcomeComputedEvent{
			ApplicationID: o.ApplicationID,
			StageID:       o.StageID,
			Status:        o.Status,
			Reason:        o.Reason,
		}
		if err := s.publisher.OutcomeComputed(ctx, event); err != nil {
			s.logger.Warn("outcome event publish failed",
				zap.String("application_id", o.ApplicationID.String()), zap.Error(err))
		}
		s.metrics.IncrementOutcome(o.Status)
	}
	s.metrics.IncrementRun()
	s.emitAudit(ctx, audit.ActionAllocationRun, stageID.String(), "")
	s.logger.Info("allocation pass complete",
		zap.String("stage_id", stageID.String()),
		zap.String("edition_id", edition.String()),
		zap.Int("outcomes", len(computed)),
	)
	return computed, nil
}

// engaged reports whether an application takes part in the pass: it
// confirmed interest in the stage, or its documents went through review.
func (s *Service) engaged(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (bool, error) {
	if _, err := s.interests.Find(ctx, appID, stageID); err == nil {
		return true, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check confirmation")
	}
	_, _, decided, err := s.documents.Validity(ctx, appID, stageID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check document validity")
	}
	return decided, nil
}

// decide applies the outcome rules to one application. An accepted
// application that already holds an enrollment keeps it.
func (s *Service) decide(ctx context.Context, editionID id.EditionID, c *call.Call, app *candidate.Application, now time.Time) (*Outcome, error) {
	outcome := &Outcome{
		ApplicationID: app.ID,
		StageID:       c.StageID,
		ComputedAt:    now,
	}

	valid, observation, decided, err := s.documents.Validity(ctx, app.ID, c.StageID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check document validity")
	}
	if !decided {
		outcome.Status = StatusRejected
		outcome.Reason = "documentation not reviewed"
		return outcome, nil
	}
	if !valid {
		outcome.Status = StatusRejected
		outcome.Reason = observation
		return outcome, nil
	}

	if _, err := s.store.FindEnrollment(ctx, app.ID, c.StageID); err == nil {
		outcome.Status = StatusAccepted
		return outcome, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check enrollment")
	}

	taken, err := s.seats.Occupy(ctx, editionID, c.CourseID, c.Track, app.ID)
	switch {
	case err == nil:
		enrollment := &Enrollment{
			ID:            id.EnrollmentID(uuid.New()),
			ApplicationID: app.ID,
			StageID:       c.StageID,
			SeatID:        taken.ID,
			CourseID:      c.CourseID,
			Track:         c.Track,
			CreatedAt:     now,
		}
		if err := s.store.CreateEnrollment(ctx, enrollment); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create enrollment")
		}
		outcome.Status = StatusAccepted
		return outcome, nil
	case errors.Is(err, sentinel.ErrInvalidState):
		if app.Score.Rank <= c.Threshold() {
			outcome.Status = StatusWaitlisted
			outcome.Reason = ReasonWaitlisted
		} else {
			outcome.Status = StatusRejected
			outcome.Reason = "classified beyond the waiting list threshold"
		}
		return outcome, nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to occupy seat")
	}
}

// CancelEnrollment removes an enrollment and frees its seat. Waitlisted
// candidates are not promoted automatically; a fresh Run is required.
func (s *Service) CancelEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) error {
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		e, err := s.store.GetEnrollment(txCtx, enrollmentID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "enrollment not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load enrollment")
		}
		if err := s.store.DeleteEnrollment(txCtx, enrollmentID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete enrollment")
		}
		if err := s.seats.Release(txCtx, e.ApplicationID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release seat")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionEnrollmentRemoved, enrollmentID.String(), "")
	s.logger.Info("enrollment cancelled", zap.String("enrollment_id", enrollmentID.String()))
	return nil
}

// Outcomes returns the stored outcomes of a stage.
func (s *Service) Outcomes(ctx context.Context, stageID id.StageID) ([]*Outcome, error) {
	out, err := s.store.ListOutcomesByStage(ctx, stageID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list outcomes")
	}
	return out, nil
}

// Enrollments returns the stored enrollments of a stage.
func (s *Service) Enrollments(ctx context.Context, stageID id.StageID) ([]*Enrollment, error) {
	out, err := s.store.ListEnrollmentsByStage(ctx, stageID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list enrollments")
	}
	return out, nil
}

// PurgeStage erases everything an allocation pass produced for the
// stage: outcomes, enrollments and seat occupations. Runs inside the
// caller's transaction; the stage lifecycle invokes it on reopen.
func (s *Service) PurgeStage(ctx context.Context, stageID id.StageID) error {
	enrollments, err := s.store.ListEnrollmentsByStage(ctx, stageID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list enrollments")
	}
	for _, e := range enrollments {
		if err := s.seats.Release(ctx, e.ApplicationID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release seat")
		}
		if err := s.store.DeleteEnrollment(ctx, e.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete enrollment")
		}
	}
	if err := s.store.DeleteOutcomesByStage(ctx, stageID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete outcomes")
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action, entityID, detail string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Actor:    requestcontext.Actor(ctx),
		Action:   action,
		Entity:   "allocation",
		EntityID: entityID,
		Detail:   detail,
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", zap.String("action", action), zap.Error(err))
	}
}
