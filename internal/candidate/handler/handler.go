// Package handler exposes edition bootstrap and candidate import over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ingresso/internal/candidate"
	"ingresso/internal/edition"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/httputil"
)

// Service defines the import operations the handler delegates to.
type Service interface {
	CreateEdition(ctx context.Context, p candidate.CreateEditionParams) (*edition.Edition, error)
	ImportApplications(ctx context.Context, editionID id.EditionID, rows []candidate.ImportApplication) ([]*candidate.Application, error)
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts edition and import endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/editions", h.HandleCreateEdition)
	r.Post("/editions/{editionID}/applications", h.HandleImport)
}

type seatGroupRequest struct {
	CourseID string `json:"course_id"`
	Track    string `json:"track"`
	Count    int    `json:"count"`
}

type createEditionRequest struct {
	ProcessName string             `json:"process_name"`
	Year        int                `json:"year"`
	Term        string             `json:"term"`
	Seats       []seatGroupRequest `json:"seats"`
}

type editionResponse struct {
	ID          string `json:"id"`
	ProcessName string `json:"process_name"`
	Year        int    `json:"year"`
	Term        string `json:"term,omitempty"`
}

type importRow struct {
	CourseID  string  `json:"course_id"`
	Track     string  `json:"track"`
	Name      string  `json:"name"`
	BirthDate string  `json:"birth_date"`
	Overall   float64 `json:"overall"`
	Essay     float64 `json:"essay"`
	SubjectA  float64 `json:"subject_a"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

// HandleCreateEdition handles POST /editions.
func (h *Handler) HandleCreateEdition(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createEditionRequest](w, r)
	if !ok {
		return
	}

	params := candidate.CreateEditionParams{
		ProcessName: req.ProcessName,
		Year:        req.Year,
		Term:        req.Term,
	}
	for _, g := range req.Seats {
		courseID, err := id.ParseCourseID(g.CourseID)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid course id"))
			return
		}
		params.Seats = append(params.Seats, candidate.SeatGroupParams{
			CourseID: courseID,
			Track:    g.Track,
			Count:    g.Count,
		})
	}

	e, err := h.service.CreateEdition(r.Context(), params)
	if err != nil {
		h.logger.Warn("edition create failed", zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, editionResponse{
		ID:          e.ID.String(),
		ProcessName: e.ProcessName,
		Year:        e.Year,
		Term:        e.Term,
	})
}

// HandleImport handles POST /editions/{editionID}/applications.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	editionID, err := id.ParseEditionID(chi.URLParam(r, "editionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid edition id"))
		return
	}
	rows, ok := httputil.Decode[[]importRow](w, r)
	if !ok {
		return
	}

	batch := make([]candidate.ImportApplication, 0, len(rows))
	for _, row := range rows {
		courseID, err := id.ParseCourseID(row.CourseID)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid course id"))
			return
		}
		var birthDate time.Time
		if row.BirthDate != "" {
			birthDate, err = time.Parse("2006-01-02", row.BirthDate)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid birth date"))
				return
			}
		}
		batch = append(batch, candidate.ImportApplication{
			CourseID:  courseID,
			Track:     row.Track,
			Name:      row.Name,
			BirthDate: birthDate,
			Score: candidate.Score{
				Overall:  row.Overall,
				Essay:    row.Essay,
				SubjectA: row.SubjectA,
			},
		})
	}

	apps, err := h.service.ImportApplications(r.Context(), editionID, batch)
	if err != nil {
		h.logger.Warn("application import failed",
			zap.String("edition_id", editionID.String()), zap.Error(err))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, importResponse{Imported: len(apps)})
}
