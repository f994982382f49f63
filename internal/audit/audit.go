// Package audit records operator actions. The engine uses the acting user
// for these fields only; business rules never consult it.
package audit

import (
	"context"
	"time"

	id "ingresso/pkg/domain"
)

// Event is emitted from domain logic to capture key operator actions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Actor     id.UserID
	Action    string
	Entity    string
	EntityID  string
	Detail    string
}

// Operator actions recorded by the engine.
const (
	ActionStageCreated      = "stage.created"
	ActionStageClosed       = "stage.closed"
	ActionStageReopened     = "stage.reopened"
	ActionCallsGenerated    = "calls.generated"
	ActionAllocationRun     = "allocation.run"
	ActionEnrollmentRemoved = "enrollment.removed"
)

// Store is the append-only persistence contract for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor id.UserID) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses
// the storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	return p.store.Append(ctx, base)
}

func (p *Publisher) List(ctx context.Context, actor id.UserID) ([]Event, error) {
	return p.store.ListByActor(ctx, actor)
}
