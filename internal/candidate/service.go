package candidate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ingresso/internal/edition"
	"ingresso/internal/seat"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/sentinel"
	"ingresso/pkg/platform/tx"
)

// Service bootstraps an edition with its seat groups and imports the
// application batch the rest of the engine ranks and allocates.
type Service struct {
	applications Store
	editions     edition.Store
	seats        seat.Store
	runner       tx.Runner
	logger       *zap.Logger
}

type Option func(s *Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(applications Store, editions edition.Store, seats seat.Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		applications: applications,
		editions:     editions,
		seats:        seats,
		runner:       runner,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeatGroupParams declares one (course, track) seat pool of an edition.
type SeatGroupParams struct {
	CourseID id.CourseID
	Track    string
	Count    int
}

// CreateEditionParams carries the edition identity plus its seat groups.
// Seats are created up front; quota transitions may re-tag free ones later.
type CreateEditionParams struct {
	ProcessName string
	Year        int
	Term        string
	Seats       []SeatGroupParams
}

// CreateEdition registers an admission cycle and seeds its seats.
func (s *Service) CreateEdition(ctx context.Context, params CreateEditionParams) (*edition.Edition, error) {
	if params.ProcessName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "process name is required")
	}
	if params.Year <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "year must be positive")
	}
	for _, g := range params.Seats {
		if g.CourseID == (id.CourseID{}) || g.Track == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "seat groups need a course and a track")
		}
		if g.Count <= 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "seat groups need a positive count")
		}
	}

	e := &edition.Edition{
		ID:          id.EditionID(uuid.New()),
		ProcessName: params.ProcessName,
		Year:        params.Year,
		Term:        params.Term,
	}

	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.editions.Create(txCtx, e); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "edition already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create edition")
		}

		var seats []*seat.Seat
		for _, g := range params.Seats {
			for i := 0; i < g.Count; i++ {
				seats = append(seats, &seat.Seat{
					ID:        id.SeatID(uuid.New()),
					EditionID: e.ID,
					CourseID:  g.CourseID,
					Track:     g.Track,
				})
			}
		}
		if len(seats) == 0 {
			return nil
		}
		if err := s.seats.CreateBatch(txCtx, seats); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create seats")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("edition created",
		zap.String("edition_id", e.ID.String()),
		zap.String("process_name", e.ProcessName),
		zap.Int("year", e.Year))
	return e, nil
}

// ImportApplication is one row of a candidate data import.
type ImportApplication struct {
	CourseID  id.CourseID
	Track     string
	Name      string
	BirthDate time.Time
	Score     Score
}

// ImportApplications loads a batch of applications into an edition. Ranks
// are left unset until call generation runs.
func (s *Service) ImportApplications(ctx context.Context, editionID id.EditionID, rows []ImportApplication) ([]*Application, error) {
	if len(rows) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "import batch is empty")
	}
	if _, err := s.editions.Get(ctx, editionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "edition not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load edition")
	}

	apps := make([]*Application, 0, len(rows))
	for i, row := range rows {
		if row.CourseID == (id.CourseID{}) || row.Track == "" || row.Name == "" {
			return nil, dErrors.Newf(dErrors.CodeValidation, "row %d is missing course, track or name", i)
		}
		if row.Score.Overall < 0 || row.Score.Essay < 0 || row.Score.SubjectA < 0 {
			return nil, dErrors.Newf(dErrors.CodeValidation, "row %d has a negative score", i)
		}
		apps = append(apps, &Application{
			ID:        id.ApplicationID(uuid.New()),
			EditionID: editionID,
			CourseID:  row.CourseID,
			Track:     row.Track,
			Name:      row.Name,
			BirthDate: row.BirthDate,
			Score:     Score{Overall: row.Score.Overall, Essay: row.Score.Essay, SubjectA: row.Score.SubjectA},
		})
	}

	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.applications.ImportBatch(txCtx, apps); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to import applications")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("applications imported",
		zap.String("edition_id", editionID.String()),
		zap.Int("count", len(apps)))
	return apps, nil
}
