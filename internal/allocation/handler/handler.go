// Package handler exposes the seat allocator over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ingresso/internal/allocation"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/httputil"
)

// Service defines the allocator operations the handler delegates to.
type Service interface {
	Run(ctx context.Context, stageID id.StageID) ([]*allocation.Outcome, error)
	Outcomes(ctx context.Context, stageID id.StageID) ([]*allocation.Outcome, error)
	Enrollments(ctx context.Context, stageID id.StageID) ([]*allocation.Enrollment, error)
	CancelEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) error
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts allocator endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/stages/{stageID}/allocation", h.HandleRun)
	r.Get("/stages/{stageID}/outcomes", h.HandleOutcomes)
	r.Get("/stages/{stageID}/enrollments", h.HandleEnrollments)
	r.Delete("/enrollments/{enrollmentID}", h.HandleCancelEnrollment)
}

type outcomeResponse struct {
	ApplicationID string    `json:"application_id"`
	StageID       string    `json:"stage_id"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	ComputedAt    time.Time `json:"computed_at"`
}

type enrollmentResponse struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	SeatID        string    `json:"seat_id"`
	CourseID      string    `json:"course_id"`
	Track         string    `json:"track"`
	CreatedAt     time.Time `json:"created_at"`
}

func toOutcomeResponses(outcomes []*allocation.Outcome) []outcomeResponse {
	out := make([]outcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, outcomeResponse{
			ApplicationID: o.ApplicationID.String(),
			StageID:       o.StageID.String(),
			Status:        o.Status,
			Reason:        o.Reason,
			ComputedAt:    o.ComputedAt,
		})
	}
	return out
}

// HandleRun handles POST /stages/{stageID}/allocation.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	stageID, err := id.ParseStageID(chi.URLParam(r, "stageID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid stage id"))
		return
	}
	outcomes, err := h.service.Run(r.Context(), stageID)
	if err != nil {
		h.logger.Warn("allocation run failed", zap.String("stage_id", stageID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOutcomeResponses(outcomes))
}

// HandleOutcomes handles GET /stages/{stageID}/outcomes.
func (h *Handler) HandleOutcomes(w http.ResponseWriter, r *http.Request) {
	stageID, err := id.ParseStageID(chi.URLParam(r, "stageID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid stage id"))
		return
	}
	outcomes, err := h.service.Outcomes(r.Context(), stageID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOutcomeResponses(outcomes))
}

// HandleEnrollments handles GET /stages/{stageID}/enrollments.
func (h *Handler) HandleEnrollments(w http.ResponseWriter, r *http.Request) {
	stageID, err := id.ParseStageID(chi.URLParam(r, "stageID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid stage id"))
		return
	}
	enrollments, err := h.service.Enrollments(r.Context(), stageID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]enrollmentResponse, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, enrollmentResponse{
			ID:            e.ID.String(),
			ApplicationID: e.ApplicationID.String(),
			SeatID:        e.SeatID.String(),
			CourseID:      e.CourseID.String(),
			Track:         e.Track,
			CreatedAt:     e.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleCancelEnrollment handles DELETE /enrollments/{enrollmentID}.
func (h *Handler) HandleCancelEnrollment(w http.ResponseWriter, r *http.Request) {
	enrollmentID, err := id.ParseEnrollmentID(chi.URLParam(r, "enrollmentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid enrollment id"))
		return
	}
	if err := h.service.CancelEnrollment(r.Context(), enrollmentID); err != nil {
		h.logger.Warn("enrollment cancel failed", zap.String("enrollment_id", enrollmentID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
