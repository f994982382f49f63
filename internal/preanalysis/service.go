package preanalysis

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ingresso/internal/candidate"
	"ingresso/internal/interest"
	premetrics "ingresso/internal/preanalysis/metrics"
	"ingresso/internal/stage"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/sentinel"
	"ingresso/pkg/platform/tx"
	"ingresso/pkg/requestcontext"
)

// ConfirmationSource lists the interest confirmations a phase copies
// applications from.
type ConfirmationSource interface {
	ListByStage(ctx context.Context, stageID id.StageID) ([]*interest.Confirmation, error)
}

// CandidateSource reads and corrects the scores a phase works with.
type CandidateSource interface {
	Get(ctx context.Context, appID id.ApplicationID) (*candidate.Application, error)
	UpdateScore(ctx context.Context, appID id.ApplicationID, score candidate.Score) error
}

// Service owns the pooled consensus review workflow: phase setup,
// reviewer mailboxes, evaluation submission and the adjustment track.
type Service struct {
	store         Store
	stages        stage.Store
	confirmations ConfirmationSource
	candidates    CandidateSource
	runner        tx.Runner
	logger        *zap.Logger
	metrics       *premetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *premetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, stages stage.Store, confirmations ConfirmationSource, candidates CandidateSource, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:         store,
		stages:        stages,
		confirmations: confirmations,
		candidates:    candidates,
		runner:        runner,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenPhaseParams configures a new consensus review phase.
type OpenPhaseParams struct {
	StageID            id.StageID
	Name               string
	RequiredEvaluators int
	RequiresSupervisor bool
}

// OpenPhase creates a phase and copies every confirmed application of
// the stage into it, freezing the scores the evaluators will see.
func (s *Service) OpenPhase(ctx context.Context, p OpenPhaseParams) (*Phase, error) {
	if p.RequiredEvaluators < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "phase rejected").
			WithField("required_evaluators", "must be at least 1")
	}

	st, err := s.stages.Get(ctx, p.StageID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "stage not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage")
	}
	if !st.Open {
		return nil, dErrors.New(dErrors.CodeValidation, "stage is closed")
	}

	phase := &Phase{
		ID:                 id.PhaseID(uuid.New()),
		StageID:            p.StageID,
		Name:               p.Name,
		RequiredEvaluators: p.RequiredEvaluators,
		RequiresSupervisor: p.RequiresSupervisor,
	}

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreatePhase(txCtx, phase); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create phase")
		}
		confirmed, err := s.confirmations.ListByStage(txCtx, p.StageID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list confirmations")
		}
		for _, c := range confirmed {
			app, err := s.candidates.Get(txCtx, c.ApplicationID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
			}
			pre := &PreAnalysisApplication{
				ID:            id.PreAnalysisID(uuid.New()),
				PhaseID:       phase.ID,
				ApplicationID: app.ID,
				StageID:       p.StageID,
				Situation:     SituationUnassigned,
				Scores:        app.Score,
			}
			if err := s.store.Enqueue(txCtx, pre); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to enqueue application")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("phase opened",
		zap.String("phase_id", phase.ID.String()),
		zap.String("stage_id", p.StageID.String()),
		zap.Int("required_evaluators", p.RequiredEvaluators),
	)
	return phase, nil
}

// AssignBatch hands a reviewer up to size unassigned applications. While
// the reviewer still owes evaluations for the current batch the call is
// a no-op returning the mailbox unchanged.
func (s *Service) AssignBatch(ctx context.Context, phaseID id.PhaseID, reviewerID id.ReviewerID, size int) (*Mailbox, error) {
	if size < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "batch rejected").
			WithField("size", "must be at least 1")
	}

	var box *Mailbox
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		phase, err := s.store.GetPhase(txCtx, phaseID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "phase not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load phase")
		}

		box, err = s.store.GetMailbox(txCtx, phase.ID, reviewerID)
		switch {
		case err == nil:
			if box.HasUnresolved() {
				return nil
			}
		case errors.Is(err, sentinel.ErrNotFound):
			box = &Mailbox{
				PhaseID:    phase.ID,
				ReviewerID: reviewerID,
				CreatedAt:  requestcontext.Now(txCtx),
			}
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load mailbox")
		}

		pending, err := s.store.ListBySituation(txCtx, phase.ID, SituationUnassigned)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending applications")
		}
		seen := make(map[id.PreAnalysisID]struct{}, len(box.Assigned))
		for _, preID := range box.Assigned {
			seen[preID] = struct{}{}
		}
		var available []id.PreAnalysisID
		for _, pre := range pending {
			if _, ok := seen[pre.ID]; !ok {
				available = append(available, pre.ID)
			}
		}
		sort.Slice(available, func(i, j int) bool {
			return available[i].String() < available[j].String()
		})
		if len(available) > size {
			available = available[:size]
		}

		box.Assigned = append(box.Assigned, available...)
		box.Total += len(available)
		if err := s.store.SaveMailbox(txCtx, box); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save mailbox")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return box, nil
}

// SubmitParams carries one reviewer verdict.
type SubmitParams struct {
	PreAnalysisID id.PreAnalysisID
	ReviewerID    id.ReviewerID
	Verdict       string
	ReasonCode    string
	Supervisor    bool
}

// SubmitEvaluation records a verdict and recomputes the situation in the
// same transaction as the mailbox progress counters.
func (s *Service) SubmitEvaluation(ctx context.Context, p SubmitParams) (*PreAnalysisApplication, error) {
	if p.Verdict != VerdictAccept && p.Verdict != VerdictReject {
		return nil, dErrors.New(dErrors.CodeValidation, "evaluation rejected").
			WithField("verdict", "must be ACCEPT or REJECT")
	}

	var pre *PreAnalysisApplication
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		pre, err = s.store.Get(txCtx, p.PreAnalysisID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "application not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
		}
		phase, err := s.store.GetPhase(txCtx, pre.PhaseID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load phase")
		}

		if p.Verdict == VerdictReject {
			if _, err := s.store.GetReason(txCtx, p.ReasonCode); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeValidation, "evaluation rejected").
						WithField("reason_code", "unknown rejection reason")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rejection reason")
			}
		}

		evals, err := s.store.ListEvaluations(txCtx, pre.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evaluations")
		}

		if p.Supervisor {
			for _, ev := range evals {
				if ev.Supervisor {
					return dErrors.New(dErrors.CodeInvalidState, "a supervisor evaluation was already submitted")
				}
			}
		} else {
			box, err := s.store.GetMailbox(txCtx, phase.ID, p.ReviewerID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeInvalidState, "application is not in the reviewer's mailbox")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load mailbox")
			}
			assigned := false
			for _, preID := range box.Assigned {
				if preID == pre.ID {
					assigned = true
					break
				}
			}
			if !assigned {
				return dErrors.New(dErrors.CodeInvalidState, "application is not in the reviewer's mailbox")
			}

			eval := &Evaluation{
				PreAnalysisID: pre.ID,
				ReviewerID:    p.ReviewerID,
				Verdict:       p.Verdict,
				ReasonCode:    p.ReasonCode,
				SubmittedAt:   requestcontext.Now(txCtx),
			}
			replaced, err := s.store.UpsertEvaluation(txCtx, eval)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store evaluation")
			}
			if !replaced {
				box.Resolved++
				if err := s.store.SaveMailbox(txCtx, box); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update mailbox")
				}
			}
			return s.recompute(txCtx, pre, phase)
		}

		eval := &Evaluation{
			PreAnalysisID: pre.ID,
			ReviewerID:    p.ReviewerID,
			Verdict:       p.Verdict,
			ReasonCode:    p.ReasonCode,
			Supervisor:    true,
			SubmittedAt:   requestcontext.Now(txCtx),
		}
		if _, err := s.store.UpsertEvaluation(txCtx, eval); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store evaluation")
		}
		return s.recompute(txCtx, pre, phase)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementEvaluation(p.Verdict)
	s.metrics.IncrementSituation(pre.Situation)
	s.logger.Info("evaluation submitted",
		zap.String("pre_analysis_id", pre.ID.String()),
		zap.String("reviewer_id", p.ReviewerID.String()),
		zap.String("verdict", p.Verdict),
		zap.Bool("supervisor", p.Supervisor),
		zap.String("situation", pre.Situation),
	)
	return pre, nil
}

func (s *Service) recompute(ctx context.Context, pre *PreAnalysisApplication, phase *Phase) error {
	evals, err := s.store.ListEvaluations(ctx, pre.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evaluations")
	}
	pre.Situation = Resolve(phase, evals)
	if err := s.store.Update(ctx, pre); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update situation")
	}
	return nil
}

// RequeueForAdjustment puts a rejected application back into the pool
// under corrected scores. Each application can travel the adjustment
// track once.
func (s *Service) RequeueForAdjustment(ctx context.Context, preID id.PreAnalysisID, corrected candidate.Score) error {
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		pre, err := s.store.Get(txCtx, preID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "application not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
		}
		if pre.Situation != SituationRejected {
			return dErrors.New(dErrors.CodeInvalidState, "only rejected applications can enter the adjustment track")
		}
		if err := s.store.MarkAdjusted(txCtx, preID); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "application was already queued for adjustment")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark adjustment")
		}

		if err := s.candidates.UpdateScore(txCtx, pre.ApplicationID, corrected); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to correct scores")
		}
		if err := s.store.DeleteEvaluations(txCtx, preID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to discard evaluations")
		}

		pre.Scores = corrected
		pre.Situation = SituationUnassigned
		if err := s.store.Update(txCtx, pre); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to requeue application")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("application requeued for adjustment", zap.String("pre_analysis_id", preID.String()))
	return nil
}

// CountUnresolved reports how many applications of a stage still lack a
// terminal situation.
func (s *Service) CountUnresolved(ctx context.Context, stageID id.StageID) (int, error) {
	n, err := s.store.CountUnresolvedByStage(ctx, stageID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count unresolved applications")
	}
	return n, nil
}

// Validity reports the document-check result for one application in one
// stage. decided is false while the consensus is still forming.
func (s *Service) Validity(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (valid bool, observation string, decided bool, err error) {
	pre, err := s.store.FindByApplication(ctx, appID, stageID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, "", false, nil
		}
		return false, "", false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	switch pre.Situation {
	case SituationAccepted:
		return true, "", true, nil
	case SituationRejected:
		obs, err := s.rejectionObservation(ctx, pre.ID)
		if err != nil {
			return false, "", false, err
		}
		return false, obs, true, nil
	default:
		return false, "", false, nil
	}
}

// rejectionObservation picks the reason text shown with a rejection: the
// supervisor's if one decided, otherwise the earliest evaluator's.
func (s *Service) rejectionObservation(ctx context.Context, preID id.PreAnalysisID) (string, error) {
	evals, err := s.store.ListEvaluations(ctx, preID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evaluations")
	}
	sort.Slice(evals, func(i, j int) bool { return evals[i].SubmittedAt.Before(evals[j].SubmittedAt) })

	code := ""
	for _, ev := range evals {
		if ev.Verdict != VerdictReject {
			continue
		}
		if ev.Supervisor {
			code = ev.ReasonCode
			break
		}
		if code == "" {
			code = ev.ReasonCode
		}
	}
	if code == "" {
		return "", nil
	}
	reason, err := s.store.GetReason(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return code, nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rejection reason")
	}
	return reason.Description, nil
}
