// Package handler exposes call generation over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ingresso/internal/call"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/httputil"
)

// Generator defines the call generation operation the handler triggers.
type Generator interface {
	Generate(ctx context.Context, stageID id.StageID) ([]*call.Call, error)
}

type Handler struct {
	generator Generator
	logger    *zap.Logger
}

func New(generator Generator, logger *zap.Logger) *Handler {
	return &Handler{generator: generator, logger: logger}
}

// Register mounts call endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/stages/{stageID}/calls", h.HandleGenerate)
}

type callResponse struct {
	ID         string `json:"id"`
	StageID    string `json:"stage_id"`
	CourseID   string `json:"course_id"`
	Track      string `json:"track"`
	SeatCount  int    `json:"seat_count"`
	Multiplier int    `json:"multiplier"`
}

// HandleGenerate handles POST /stages/{stageID}/calls.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	stageID, err := id.ParseStageID(chi.URLParam(r, "stageID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid stage id"))
		return
	}

	calls, err := h.generator.Generate(r.Context(), stageID)
	if err != nil {
		h.logger.Warn("call generation failed", zap.String("stage_id", stageID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}

	out := make([]callResponse, 0, len(calls))
	for _, c := range calls {
		out = append(out, callResponse{
			ID:         c.ID.String(),
			StageID:    c.StageID.String(),
			CourseID:   c.CourseID.String(),
			Track:      c.Track,
			SeatCount:  c.SeatCount,
			Multiplier: c.Multiplier,
		})
	}
	httputil.WriteJSON(w, http.StatusCreated, out)
}
