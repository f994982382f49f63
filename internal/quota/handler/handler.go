// Package handler exposes quota transition management over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ingresso/internal/quota"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/httputil"
)

// Service defines the quota operations the handler delegates to.
type Service interface {
	ApplyTransitions(ctx context.Context, editionID id.EditionID, courseID id.CourseID, batch []quota.Transition) (int, error)
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts quota endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/editions/{editionID}/courses/{courseID}/transitions", h.HandleApplyTransitions)
}

type transitionsRequest struct {
	Transitions []struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"transitions"`
}

type transitionsResponse struct {
	SeatsMoved int `json:"seats_moved"`
}

// HandleApplyTransitions handles POST /editions/{editionID}/courses/{courseID}/transitions.
func (h *Handler) HandleApplyTransitions(w http.ResponseWriter, r *http.Request) {
	editionID, err := id.ParseEditionID(chi.URLParam(r, "editionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid edition id"))
		return
	}
	courseID, err := id.ParseCourseID(chi.URLParam(r, "courseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid course id"))
		return
	}
	req, ok := httputil.Decode[transitionsRequest](w, r)
	if !ok {
		return
	}

	batch := make([]quota.Transition, 0, len(req.Transitions))
	for _, t := range req.Transitions {
		batch = append(batch, quota.Transition{From: t.From, To: t.To})
	}

	moved, err := h.service.ApplyTransitions(r.Context(), editionID, courseID, batch)
	if err != nil {
		h.logger.Warn("transition batch failed",
			zap.String("edition_id", editionID.String()),
			zap.String("course_id", courseID.String()),
			zap.Error(err),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, transitionsResponse{SeatsMoved: moved})
}
