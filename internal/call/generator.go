package call

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ingresso/internal/audit"
	"ingresso/internal/candidate"
	"ingresso/internal/ranking"
	"ingresso/internal/seat"
	"ingresso/internal/stage"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/sentinel"
	"ingresso/pkg/requestcontext"
)

// Generator derives the calls of a stage: one per (course, track) pool with
// seats, cut at seatCount x multiplier.
type Generator struct {
	stages     stage.Store
	seats      seat.Store
	candidates candidate.Store
	calls      Store
	logger     *zap.Logger
	audit      *audit.Publisher
}

type GeneratorOption func(g *Generator)

func WithLogger(logger *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = logger }
}

func WithAuditPublisher(publisher *audit.Publisher) GeneratorOption {
	return func(g *Generator) { g.audit = publisher }
}

func NewGenerator(stages stage.Store, seats seat.Store, candidates candidate.Store, calls Store, opts ...GeneratorOption) *Generator {
	g := &Generator{
		stages:     stages,
		seats:      seats,
		candidates: candidates,
		calls:      calls,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the calls for an open stage. Pools are processed
// concurrently; a pool whose call already exists is left untouched, so
// re-running is a no-op for existing calls. Applications outside the cut
// stay unassigned and remain eligible for a later stage.
func (g *Generator) Generate(ctx context.Context, stageID id.StageID) ([]*Call, error) {
	st, err := g.stages.Get(ctx, stageID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "stage not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage")
	}
	if !st.Open {
		return nil, dErrors.New(dErrors.CodeValidation, "calls can only be generated for an open stage")
	}

	groups, err := g.seats.ListGroups(ctx, st.EditionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list seat groups")
	}

	results := make([]*Call, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, grp := range groups {
		eg.Go(func() error {
			c, err := g.generatePool(egCtx, st, grp)
			if err != nil {
				return err
			}
			results[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var out []*Call
	for _, c := range results {
		if c != nil {
			out = append(out, c)
		}
	}
	if g.audit != nil {
		event := audit.Event{
			Actor:    requestcontext.Actor(ctx),
			Action:   audit.ActionCallsGenerated,
			Entity:   "stage",
			EntityID: stageID.String(),
			Detail:   strconv.Itoa(len(out)),
		}
		if err := g.audit.Emit(ctx, event); err != nil {
			g.logger.Warn("audit emit failed", zap.Error(err))
		}
	}
	g.logger.Info("calls generated",
		zap.String("stage_id", stageID.String()),
		zap.Int("pools", len(groups)),
		zap.Int("calls", len(out)),
	)
	return out, nil
}

func (g *Generator) generatePool(ctx context.Context, st *stage.Stage, grp seat.Group) (*Call, error) {
	if grp.Total == 0 {
		return nil, nil
	}

	c := &Call{
		ID:         id.CallID(uuid.New()),
		StageID:    st.ID,
		CourseID:   grp.CourseID,
		Track:      grp.Track,
		SeatCount:  grp.Total,
		Multiplier: st.Multiplier,
	}
	stored, created, err := g.calls.CreateIfAbsent(ctx, c)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create call")
	}
	if !created {
		return stored, nil
	}

	apps, err := g.candidates.ListByGroup(ctx, st.EditionID, grp.CourseID, grp.Track)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pool applications")
	}

	ranked := ranking.Rank(apps)
	threshold := stored.Threshold()
	for _, app := range ranked {
		if err := g.candidates.SetRank(ctx, app.ID, app.Score.Rank); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist rank")
		}
		if app.Score.Rank > threshold || app.InCall() {
			continue
		}
		if err := g.candidates.AssignCall(ctx, app.ID, stored.ID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach application to call")
		}
	}
	return stored, nil
}
