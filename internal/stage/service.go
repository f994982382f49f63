package stage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ingresso/internal/audit"
	stagemetrics "ingresso/internal/stage/metrics"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/sentinel"
	"ingresso/pkg/platform/tx"
	"ingresso/pkg/requestcontext"
)

// ApplicationCounter answers whether candidate data has been imported for
// an edition.
type ApplicationCounter interface {
	CountByEdition(ctx context.Context, editionID id.EditionID) (int, error)
}

// ReviewGate reports how many interest confirmations in a stage still lack
// a final review outcome. Implemented by the document-review services.
type ReviewGate interface {
	CountUnresolved(ctx context.Context, stageID id.StageID) (int, error)
}

// StagePurger removes everything a stage computed: outcomes, enrollments,
// consumed seats. Implemented by the allocation service; used on reopen.
type StagePurger interface {
	PurgeStage(ctx context.Context, stageID id.StageID) error
}

// Service owns stage lifecycle rules: create, close, reopen. Calls,
// confirmations and allocation all gate on the flags it maintains.
type Service struct {
	stages       Store
	applications ApplicationCounter
	reviews      ReviewGate
	purger       StagePurger
	runner       tx.Runner
	logger       *zap.Logger
	audit        *audit.Publisher
	metrics      *stagemetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher *audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *stagemetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(stages Store, applications ApplicationCounter, reviews ReviewGate, purger StagePurger, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		stages:       stages,
		applications: applications,
		reviews:      reviews,
		purger:       purger,
		runner:       runner,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries everything needed to open a new stage.
type CreateParams struct {
	EditionID       id.EditionID
	Number          int
	Campus          string // empty = systemic
	Multiplier      int
	Public          bool
	ManagedAnalysis bool
	Schedule        Schedule
}

// Create validates and persists a new open stage.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Stage, error) {
	if p.Multiplier < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "stage rejected").
			WithField("multiplier", "must be at least 1")
	}
	if p.Number == 0 && p.Multiplier != 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "stage rejected").
			WithField("multiplier", "the pure-result stage requires multiplier 1")
	}

	count, err := s.applications.CountByEdition(ctx, p.EditionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check candidate data")
	}
	if count == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "edition has no imported candidate data")
	}

	if _, err := s.stages.FindOpen(ctx, p.EditionID, p.Campus); err == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "another stage is already open for this scope")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check open stages")
	}

	if p.Campus == "" {
		hasCampus, err := s.stages.HasCampusScoped(ctx, p.EditionID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check campus stages")
		}
		if hasCampus {
			return nil, dErrors.New(dErrors.CodeValidation, "a systemic stage cannot join an edition with campus-scoped stages")
		}
	}

	st := &Stage{
		ID:              id.StageID(uuid.New()),
		EditionID:       p.EditionID,
		Number:          p.Number,
		Campus:          p.Campus,
		Open:            true,
		Public:          p.Public,
		Multiplier:      p.Multiplier,
		ManagedAnalysis: p.ManagedAnalysis,
		Schedule:        p.Schedule,
	}
	if err := s.stages.Create(ctx, st); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "stage already exists for this edition, number and scope")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create stage")
	}

	s.emitAudit(ctx, audit.ActionStageCreated, st.ID.String(), "")
	s.metrics.IncrementTransition("created")
	s.logger.Info("stage created",
		zap.String("stage_id", st.ID.String()),
		zap.String("edition_id", st.EditionID.String()),
		zap.Int("number", st.Number),
		zap.String("campus", st.Campus),
	)
	return st, nil
}

// Close closes an open stage. With managed analysis enabled it refuses to
// close while any interest confirmation lacks a final review outcome.
func (s *Service) Close(ctx context.Context, stageID id.StageID) error {
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		st, err := s.stages.Get(txCtx, stageID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "stage not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage")
		}
		if !st.Open {
			return dErrors.New(dErrors.CodeValidation, "stage is already closed")
		}

		if st.ManagedAnalysis {
			unresolved, err := s.reviews.CountUnresolved(txCtx, stageID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count unresolved reviews")
			}
			if unresolved > 0 {
				return dErrors.Newf(dErrors.CodeValidation, "%d confirmations still lack a final review outcome", unresolved)
			}
		}

		now := requestcontext.Now(txCtx)
		st.Open = false
		st.ClosedAt = &now
		if err := s.stages.Update(txCtx, st); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close stage")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionStageClosed, stageID.String(), "")
	s.metrics.IncrementTransition("closed")
	s.logger.Info("stage closed", zap.String("stage_id", stageID.String()))
	return nil
}

// Reopen reverses the most recent close in an edition. It deletes the
// stage's outcomes, removes enrollments and frees consumed seats in the
// same transaction.
func (s *Service) Reopen(ctx context.Context, stageID id.StageID) error {
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		st, err := s.stages.Get(txCtx, stageID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "stage not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage")
		}
		if st.Open {
			return dErrors.New(dErrors.CodeValidation, "stage is not closed")
		}

		siblings, err := s.stages.ListByEdition(txCtx, st.EditionID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list edition stages")
		}
		for _, other := range siblings {
			if other.ID == st.ID {
				continue
			}
			if other.Number > st.Number {
				return dErrors.New(dErrors.CodeValidation, "a later stage exists; only the most recent stage can reopen")
			}
			if !other.Open && other.ClosedAt != nil && st.ClosedAt != nil && other.ClosedAt.After(*st.ClosedAt) {
				return dErrors.New(dErrors.CodeValidation, "a more recently closed stage exists")
			}
		}

		if err := s.purger.PurgeStage(txCtx, st.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge stage results")
		}

		st.Open = true
		st.ClosedAt = nil
		if err := s.stages.Update(txCtx, st); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reopen stage")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionStageReopened, stageID.String(), "")
	s.metrics.IncrementTransition("reopened")
	s.logger.Info("stage reopened", zap.String("stage_id", stageID.String()))
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action, entityID, detail string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Actor:    requestcontext.Actor(ctx),
		Action:   action,
		Entity:   "stage",
		EntityID: entityID,
		Detail:   detail,
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", zap.String("action", action), zap.Error(err))
	}
}
