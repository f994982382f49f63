// Package handler exposes interest confirmation over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ingresso/internal/interest"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/httputil"
)

// Service defines the confirmation operation the handler delegates to.
type Service interface {
	Confirm(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (*interest.Confirmation, error)
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts confirmation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/stages/{stageID}/confirmations", h.HandleConfirm)
}

type confirmRequest struct {
	ApplicationID string `json:"application_id"`
}

type confirmationResponse struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	StageID       string    `json:"stage_id"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// HandleConfirm handles POST /stages/{stageID}/confirmations.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	stageID, err := id.ParseStageID(chi.URLParam(r, "stageID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid stage id"))
		return
	}
	req, ok := httputil.Decode[confirmRequest](w, r)
	if !ok {
		return
	}
	appID, err := id.ParseApplicationID(req.ApplicationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid application id"))
		return
	}

	c, err := h.service.Confirm(r.Context(), appID, stageID)
	if err != nil {
		h.logger.Warn("interest confirmation failed",
			zap.String("application_id", appID.String()),
			zap.String("stage_id", stageID.String()),
			zap.Error(err),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, confirmationResponse{
		ID:            c.ID.String(),
		ApplicationID: c.ApplicationID.String(),
		StageID:       c.StageID.String(),
		ConfirmedAt:   c.ConfirmedAt,
	})
}
