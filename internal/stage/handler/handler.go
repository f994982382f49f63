// Package handler exposes the stage lifecycle over HTTP. It stays thin:
// parse, delegate, render.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ingresso/internal/stage"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/httputil"
)

// Service defines the stage operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, p stage.CreateParams) (*stage.Stage, error)
	Close(ctx context.Context, stageID id.StageID) error
	Reopen(ctx context.Context, stageID id.StageID) error
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts stage endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/stages", h.HandleCreate)
	r.Post("/stages/{stageID}/close", h.HandleClose)
	r.Post("/stages/{stageID}/reopen", h.HandleReopen)
}

type createRequest struct {
	EditionID       string    `json:"edition_id"`
	Number          int       `json:"number"`
	Campus          string    `json:"campus"`
	Multiplier      int       `json:"multiplier"`
	Public          bool      `json:"public"`
	ManagedAnalysis bool      `json:"managed_analysis"`
	InterestStart   time.Time `json:"interest_start"`
	InterestEnd     time.Time `json:"interest_end"`
	AnalysisStart   time.Time `json:"analysis_start"`
	AnalysisEnd     time.Time `json:"analysis_end"`
}

type stageResponse struct {
	ID              string     `json:"id"`
	EditionID       string     `json:"edition_id"`
	Number          int        `json:"number"`
	Campus          string     `json:"campus,omitempty"`
	Open            bool       `json:"open"`
	Public          bool       `json:"public"`
	Multiplier      int        `json:"multiplier"`
	ManagedAnalysis bool       `json:"managed_analysis"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

func toResponse(st *stage.Stage) stageResponse {
	return stageResponse{
		ID:              st.ID.String(),
		EditionID:       st.EditionID.String(),
		Number:          st.Number,
		Campus:          st.Campus,
		Open:            st.Open,
		Public:          st.Public,
		Multiplier:      st.Multiplier,
		ManagedAnalysis: st.ManagedAnalysis,
		ClosedAt:        st.ClosedAt,
	}
}

// HandleCreate handles POST /stages.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createRequest](w, r)
	if !ok {
		return
	}
	editionID, err := id.ParseEditionID(req.EditionID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid edition id"))
		return
	}

	st, err := h.service.Create(r.Context(), stage.CreateParams{
		EditionID:       editionID,
		Number:          req.Number,
		Campus:          req.Campus,
		Multiplier:      req.Multiplier,
		Public:          req.Public,
		ManagedAnalysis: req.ManagedAnalysis,
		Schedule: stage.Schedule{
			InterestStart: req.InterestStart,
			InterestEnd:   req.InterestEnd,
			AnalysisStart: req.AnalysisStart,
			AnalysisEnd:   req.AnalysisEnd,
		},
	})
	if err != nil {
		h.logger.Warn("stage create failed", zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(st))
}

// HandleClose handles POST /stages/{stageID}/close.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	stageID, err := id.ParseStageID(chi.URLParam(r, "stageID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid stage id"))
		return
	}
	if err := h.service.Close(r.Context(), stageID); err != nil {
		h.logger.Warn("stage close failed", zap.String("stage_id", stageID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReopen handles POST /stages/{stageID}/reopen.
func (h *Handler) HandleReopen(w http.ResponseWriter, r *http.Request) {
	stageID, err := id.ParseStageID(chi.URLParam(r, "stageID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid stage id"))
		return
	}
	if err := h.service.Reopen(r.Context(), stageID); err != nil {
		h.logger.Warn("stage reopen failed", zap.String("stage_id", stageID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
