// Package handler exposes the single-reviewer document workflow over
// HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ingresso/internal/review"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/httputil"
)

// Service defines the review operations the handler delegates to.
type Service interface {
	Submit(ctx context.Context, confirmationID id.ConfirmationID, appID id.ApplicationID, stageID id.StageID, valid bool, notes string) (*review.DocumentReview, error)
	FileAppeal(ctx context.Context, reviewID id.ReviewID, stageID id.StageID, justification string) (*review.DocumentReview, error)
	ResolveAppeal(ctx context.Context, reviewID id.ReviewID, appID id.ApplicationID, stageID id.StageID, accepted bool, justification string) (*review.DocumentReview, error)
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts review endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/reviews", h.HandleSubmit)
	r.Post("/reviews/{reviewID}/appeal", h.HandleFileAppeal)
	r.Post("/reviews/{reviewID}/appeal/resolution", h.HandleResolveAppeal)
}

type submitRequest struct {
	ConfirmationID string `json:"confirmation_id"`
	ApplicationID  string `json:"application_id"`
	StageID        string `json:"stage_id"`
	Valid          bool   `json:"valid"`
	Notes          string `json:"notes"`
}

type appealRequest struct {
	StageID       string `json:"stage_id"`
	Justification string `json:"justification"`
}

type resolveRequest struct {
	ApplicationID string `json:"application_id"`
	StageID       string `json:"stage_id"`
	Accepted      bool   `json:"accepted"`
	Justification string `json:"justification"`
}

type reviewResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Valid       bool   `json:"valid"`
	Observation string `json:"observation,omitempty"`
}

func toResponse(rev *review.DocumentReview) reviewResponse {
	return reviewResponse{
		ID:          rev.ID.String(),
		Status:      string(rev.Status),
		Valid:       rev.FinalValidity(),
		Observation: rev.Observation(),
	}
}

// HandleSubmit handles POST /reviews.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[submitRequest](w, r)
	if !ok {
		return
	}
	confirmationID, err := id.ParseConfirmationID(req.ConfirmationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid confirmation id"))
		return
	}
	appID, err := id.ParseApplicationID(req.ApplicationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid application id"))
		return
	}
	stageID, err := id.ParseStageID(req.StageID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid stage id"))
		return
	}

	rev, err := h.service.Submit(r.Context(), confirmationID, appID, stageID, req.Valid, req.Notes)
	if err != nil {
		h.logger.Warn("review submit failed", zap.String("application_id", appID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(rev))
}

// HandleFileAppeal handles POST /reviews/{reviewID}/appeal.
func (h *Handler) HandleFileAppeal(w http.ResponseWriter, r *http.Request) {
	reviewID, err := id.ParseReviewID(chi.URLParam(r, "reviewID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid review id"))
		return
	}
	req, ok := httputil.Decode[appealRequest](w, r)
	if !ok {
		return
	}
	stageID, err := id.ParseStageID(req.StageID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid stage id"))
		return
	}

	rev, err := h.service.FileAppeal(r.Context(), reviewID, stageID, req.Justification)
	if err != nil {
		h.logger.Warn("appeal filing failed", zap.String("review_id", reviewID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(rev))
}

// HandleResolveAppeal handles POST /reviews/{reviewID}/appeal/resolution.
func (h *Handler) HandleResolveAppeal(w http.ResponseWriter, r *http.Request) {
	reviewID, err := id.ParseReviewID(chi.URLParam(r, "reviewID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid review id"))
		return
	}
	req, ok := httputil.Decode[resolveRequest](w, r)
	if !ok {
		return
	}
	appID, err := id.ParseApplicationID(req.ApplicationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid application id"))
		return
	}
	stageID, err := id.ParseStageID(req.StageID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid stage id"))
		return
	}

	rev, err := h.service.ResolveAppeal(r.Context(), reviewID, appID, stageID, req.Accepted, req.Justification)
	if err != nil {
		h.logger.Warn("appeal resolution failed", zap.String("review_id", reviewID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(rev))
}
