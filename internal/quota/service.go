package quota

import (
	"context"

	"go.uber.org/zap"

	"ingresso/internal/seat"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/tx"
)

// Service validates transition batches and re-tags free seats. Operators
// trigger it between calls to re-route seats left over in a track.
type Service struct {
	catalog Store
	seats   seat.Store
	runner  tx.Runner
	logger  *zap.Logger
}

type Option func(s *Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(catalog Store, seats seat.Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{catalog: catalog, seats: seats, runner: runner, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyTransitions validates the proposed batch and moves all free seats
// along each edge, atomically. Cycle-positive or uncataloged batches are
// refused before any seat changes.
func (s *Service) ApplyTransitions(ctx context.Context, editionID id.EditionID, courseID id.CourseID, batch []Transition) (int, error) {
	if len(batch) == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "transition batch must not be empty")
	}
	if HasCycle(batch) {
		return 0, dErrors.New(dErrors.CodeValidation, "transition batch contains a cycle")
	}

	allowed, err := s.catalog.ListAllowed(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transition catalog")
	}
	allowedSet := make(map[Transition]bool, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = true
	}
	for _, t := range batch {
		if !allowedSet[t] {
			return 0, dErrors.Newf(dErrors.CodeValidation, "transition %s -> %s is not allowed", t.From, t.To)
		}
	}

	moved := 0
	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		for _, t := range batch {
			n, err := s.seats.RetagFree(txCtx, editionID, courseID, t.From, t.To)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to retag seats")
			}
			moved += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("quota transitions applied",
		zap.String("edition_id", editionID.String()),
		zap.String("course_id", courseID.String()),
		zap.Int("edges", len(batch)),
		zap.Int("seats_moved", moved),
	)
	return moved, nil
}
