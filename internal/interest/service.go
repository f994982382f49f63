package interest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ingresso/internal/candidate"
	"ingresso/internal/stage"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/sentinel"
	"ingresso/pkg/requestcontext"
)

// Service accepts interest confirmations inside the interest sub-window of
// an open stage. The stage's calls must already exist: a candidate who was
// never called has nothing to confirm.
type Service struct {
	confirmations Store
	stages        stage.Store
	candidates    candidate.Store
	logger        *zap.Logger
}

type Option func(s *Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(confirmations Store, stages stage.Store, candidates candidate.Store, opts ...Option) *Service {
	s := &Service{
		confirmations: confirmations,
		stages:        stages,
		candidates:    candidates,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Confirm records an application's interest in its current call.
func (s *Service) Confirm(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (*Confirmation, error) {
	st, err := s.stages.Get(ctx, stageID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "stage not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage")
	}
	if !st.Open {
		return nil, dErrors.New(dErrors.CodeValidation, "stage is closed")
	}

	now := requestcontext.Now(ctx)
	if !st.Schedule.InInterestWindow(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "outside the interest confirmation window")
	}

	app, err := s.candidates.Get(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	if !app.InCall() {
		return nil, dErrors.New(dErrors.CodeValidation, "application has not been called")
	}

	c := &Confirmation{
		ID:            id.ConfirmationID(uuid.New()),
		ApplicationID: appID,
		StageID:       stageID,
		ConfirmedAt:   now,
	}
	if err := s.confirmations.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "interest already confirmed for this stage")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save confirmation")
	}

	s.logger.Info("interest confirmed",
		zap.String("application_id", appID.String()),
		zap.String("stage_id", stageID.String()),
	)
	return c, nil
}
