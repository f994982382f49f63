// Package handler exposes the consensus review workflow over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ingresso/internal/candidate"
	"ingresso/internal/preanalysis"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/httputil"
)

// Service defines the consensus review operations the handler delegates
// to.
type Service interface {
	OpenPhase(ctx context.Context, p preanalysis.OpenPhaseParams) (*preanalysis.Phase, error)
	AssignBatch(ctx context.Context, phaseID id.PhaseID, reviewerID id.ReviewerID, size int) (*preanalysis.Mailbox, error)
	SubmitEvaluation(ctx context.Context, p preanalysis.SubmitParams) (*preanalysis.PreAnalysisApplication, error)
	RequeueForAdjustment(ctx context.Context, preID id.PreAnalysisID, corrected candidate.Score) error
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts consensus review endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/phases", h.HandleOpenPhase)
	r.Post("/phases/{phaseID}/mailbox", h.HandleAssignBatch)
	r.Post("/evaluations", h.HandleSubmitEvaluation)
	r.Post("/pre-analysis/{preID}/adjustment", h.HandleRequeue)
}

type openPhaseRequest struct {
	StageID            string `json:"stage_id"`
	Name               string `json:"name"`
	RequiredEvaluators int    `json:"required_evaluators"`
	RequiresSupervisor bool   `json:"requires_supervisor"`
}

type phaseResponse struct {
	ID                 string `json:"id"`
	StageID            string `json:"stage_id"`
	Name               string `json:"name"`
	RequiredEvaluators int    `json:"required_evaluators"`
	RequiresSupervisor bool   `json:"requires_supervisor"`
}

// HandleOpenPhase handles POST /phases.
func (h *Handler) HandleOpenPhase(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[openPhaseRequest](w, r)
	if !ok {
		return
	}
	stageID, err := id.ParseStageID(req.StageID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid stage id"))
		return
	}

	phase, err := h.service.OpenPhase(r.Context(), preanalysis.OpenPhaseParams{
		StageID:            stageID,
		Name:               req.Name,
		RequiredEvaluators: req.RequiredEvaluators,
		RequiresSupervisor: req.RequiresSupervisor,
	})
	if err != nil {
		h.logger.Warn("phase open failed", zap.String("stage_id", stageID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, phaseResponse{
		ID:                 phase.ID.String(),
		StageID:            phase.StageID.String(),
		Name:               phase.Name,
		RequiredEvaluators: phase.RequiredEvaluators,
		RequiresSupervisor: phase.RequiresSupervisor,
	})
}

type assignRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Size       int    `json:"size"`
}

type mailboxResponse struct {
	Assigned []string `json:"assigned"`
	Total    int      `json:"total"`
	Resolved int      `json:"resolved"`
}

// HandleAssignBatch handles POST /phases/{phaseID}/mailbox.
func (h *Handler) HandleAssignBatch(w http.ResponseWriter, r *http.Request) {
	phaseID, err := id.ParsePhaseID(chi.URLParam(r, "phaseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid phase id"))
		return
	}
	req, ok := httputil.Decode[assignRequest](w, r)
	if !ok {
		return
	}
	reviewerID, err := id.ParseReviewerID(req.ReviewerID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid reviewer id"))
		return
	}

	box, err := h.service.AssignBatch(r.Context(), phaseID, reviewerID, req.Size)
	if err != nil {
		h.logger.Warn("batch assignment failed",
			zap.String("phase_id", phaseID.String()),
			zap.String("reviewer_id", reviewerID.String()),
			zap.Error(err),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := mailboxResponse{Total: box.Total, Resolved: box.Resolved, Assigned: make([]string, 0, len(box.Assigned))}
	for _, preID := range box.Assigned {
		resp.Assigned = append(resp.Assigned, preID.String())
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type evaluationRequest struct {
	PreAnalysisID string `json:"pre_analysis_id"`
	ReviewerID    string `json:"reviewer_id"`
	Verdict       string `json:"verdict"`
	ReasonCode    string `json:"reason_code"`
	Supervisor    bool   `json:"supervisor"`
}

type evaluationResponse struct {
	PreAnalysisID string `json:"pre_analysis_id"`
	Situation     string `json:"situation"`
}

// HandleSubmitEvaluation handles POST /evaluations.
func (h *Handler) HandleSubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[evaluationRequest](w, r)
	if !ok {
		return
	}
	preID, err := id.ParsePreAnalysisID(req.PreAnalysisID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid pre-analysis id"))
		return
	}
	reviewerID, err := id.ParseReviewerID(req.ReviewerID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid reviewer id"))
		return
	}

	pre, err := h.service.SubmitEvaluation(r.Context(), preanalysis.SubmitParams{
		PreAnalysisID: preID,
		ReviewerID:    reviewerID,
		Verdict:       req.Verdict,
		ReasonCode:    req.ReasonCode,
		Supervisor:    req.Supervisor,
	})
	if err != nil {
		h.logger.Warn("evaluation submit failed", zap.String("pre_analysis_id", preID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, evaluationResponse{
		PreAnalysisID: pre.ID.String(),
		Situation:     pre.Situation,
	})
}

type adjustmentRequest struct {
	Overall  float64 `json:"overall"`
	Essay    float64 `json:"essay"`
	SubjectA float64 `json:"subject_a"`
}

// HandleRequeue handles POST /pre-analysis/{preID}/adjustment.
func (h *Handler) HandleRequeue(w http.ResponseWriter, r *http.Request) {
	preID, err := id.ParsePreAnalysisID(chi.URLParam(r, "preID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid pre-analysis id"))
		return
	}
	req, ok := httputil.Decode[adjustmentRequest](w, r)
	if !ok {
		return
	}

	corrected := candidate.Score{Overall: req.Overall, Essay: req.Essay, SubjectA: req.SubjectA}
	if err := h.service.RequeueForAdjustment(r.Context(), preID, corrected); err != nil {
		h.logger.Warn("adjustment requeue failed", zap.String("pre_analysis_id", preID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
