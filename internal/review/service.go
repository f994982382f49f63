package review

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ingresso/internal/events"
	"ingresso/internal/interest"
	"ingresso/internal/stage"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/sentinel"
	"ingresso/pkg/requestcontext"
)

// Service runs the variant-A workflow: submit, appeal, resolve.
type Service struct {
	reviews       Store
	confirmations interest.Store
	stages        stage.Store
	publisher     events.Publisher
	logger        *zap.Logger
}

type Option func(s *Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(reviews Store, confirmations interest.Store, stages stage.Store, opts ...Option) *Service {
	s := &Service{
		reviews:       reviews,
		confirmations: confirmations,
		stages:        stages,
		publisher:     events.NopPublisher{},
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit records the reviewer's verdict on a confirmation. The stage must
// still be open and the confirmation must exist.
func (s *Service) Submit(ctx context.Context, confirmationID id.ConfirmationID, appID id.ApplicationID, stageID id.StageID, valid bool, notes string) (*DocumentReview, error) {
	conf, err := s.confirmations.Find(ctx, appID, stageID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "interest confirmation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load confirmation")
	}
	if conf.ID != confirmationID {
		return nil, dErrors.New(dErrors.CodeValidation, "confirmation does not match application and stage")
	}

	st, err := s.stages.Get(ctx, stageID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage")
	}
	if !st.Open {
		return nil, dErrors.New(dErrors.CodeValidation, "stage is closed")
	}

	r := &DocumentReview{
		ID:             id.ReviewID(uuid.New()),
		ConfirmationID: confirmationID,
		Status:         StatusReviewed,
		Valid:          valid,
		Notes:          notes,
		ReviewedAt:     requestcontext.Now(ctx),
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "confirmation already reviewed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save review")
	}

	s.logger.Info("document review submitted",
		zap.String("review_id", r.ID.String()),
		zap.Bool("valid", valid),
	)
	return r, nil
}

// CanAppeal reports whether an appeal may still be filed: only against an
// invalid review, only strictly inside the stage's analysis window, and
// only while no appeal exists.
func (s *Service) CanAppeal(ctx context.Context, reviewID id.ReviewID, stageID id.StageID) (bool, error) {
	r, err := s.reviews.Get(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.New(dErrors.CodeNotFound, "review not found")
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load review")
	}
	if r.Status != StatusReviewed || r.Valid || r.Appeal != nil {
		return false, nil
	}
	st, err := s.stages.Get(ctx, stageID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage")
	}
	return st.Schedule.InAnalysisWindow(requestcontext.Now(ctx)), nil
}

// FileAppeal challenges an invalid review.
func (s *Service) FileAppeal(ctx context.Context, reviewID id.ReviewID, stageID id.StageID, justification string) (*DocumentReview, error) {
	ok, err := s.CanAppeal(ctx, reviewID, stageID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "appeal window is closed or review is not appealable")
	}

	r, err := s.reviews.Get(ctx, reviewID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load review")
	}
	r.Status = StatusAppealed
	r.Appeal = &Appeal{
		Status:        AppealPending,
		Justification: justification,
		FiledAt:       requestcontext.Now(ctx),
	}
	if err := s.reviews.Update(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save appeal")
	}
	return r, nil
}

// ResolveAppeal records the final ruling on a filed appeal.
func (s *Service) ResolveAppeal(ctx context.Context, reviewID id.ReviewID, appID id.ApplicationID, stageID id.StageID, accepted bool, justification string) (*DocumentReview, error) {
	r, err := s.reviews.Get(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "review not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load review")
	}
	if r.Status != StatusAppealed || r.Appeal == nil {
		return nil, dErrors.New(dErrors.CodeInvalidState, "review has no pending appeal")
	}

	now := requestcontext.Now(ctx)
	r.Status = StatusAppealResolved
	if accepted {
		r.Appeal.Status = AppealAccepted
	} else {
		r.Appeal.Status = AppealRejected
	}
	if justification != "" {
		r.Appeal.Justification = justification
	}
	r.Appeal.ResolvedAt = &now
	if err := s.reviews.Update(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save appeal ruling")
	}

	if err := s.publisher.AppealResolved(ctx, events.AppealResolvedEvent{
		ApplicationID: appID,
		StageID:       stageID,
		Accepted:      accepted,
	}); err != nil {
		s.logger.Warn("appeal event publish failed", zap.Error(err))
	}
	return r, nil
}

// CountUnresolved implements the stage close gate: confirmations of the
// stage that still lack a terminal review.
func (s *Service) CountUnresolved(ctx context.Context, stageID id.StageID) (int, error) {
	confs, err := s.confirmations.ListByStage(ctx, stageID)
	if err != nil {
		return 0, err
	}
	unresolved := 0
	for _, conf := range confs {
		r, err := s.reviews.FindByConfirmation(ctx, conf.ID)
		if errors.Is(err, sentinel.ErrNotFound) {
			unresolved++
			continue
		}
		if err != nil {
			return 0, err
		}
		if !r.Resolved() {
			unresolved++
		}
	}
	return unresolved, nil
}

// Validity implements the allocator's document check for variant A.
func (s *Service) Validity(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (valid bool, observation string, decided bool, err error) {
	conf, err := s.confirmations.Find(ctx, appID, stageID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, "", false, nil
	}
	if err != nil {
		return false, "", false, err
	}
	r, err := s.reviews.FindByConfirmation(ctx, conf.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, "", false, nil
	}
	if err != nil {
		return false, "", false, err
	}
	if !r.Resolved() {
		return false, "", false, nil
	}
	return r.FinalValidity(), r.Observation(), true, nil
}
