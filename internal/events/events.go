// Package events feeds the notification collaborator: outcome and appeal
// facts leave the engine here, delivery is someone else's job.
package events

import (
	"context"

	id "ingresso/pkg/domain"
)

// OutcomeComputedEvent announces the authoritative decision for one
// application in one stage.
type OutcomeComputedEvent struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	StageID       id.StageID       `json:"stage_id"`
	Status        string           `json:"status"`
	Reason        string           `json:"reason"`
}

// AppealResolvedEvent announces the ruling on a document-review appeal.
type AppealResolvedEvent struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	StageID       id.StageID       `json:"stage_id"`
	Accepted      bool             `json:"accepted"`
}

// Publisher is the outbound event contract.
type Publisher interface {
	OutcomeComputed(ctx context.Context, event OutcomeComputedEvent) error
	AppealResolved(ctx context.Context, event AppealResolvedEvent) error
}

// NopPublisher discards events; the default when no sink is wired.
type NopPublisher struct{}

func (NopPublisher) OutcomeComputed(context.Context, OutcomeComputedEvent) error { return nil }
func (NopPublisher) AppealResolved(context.Context, AppealResolvedEvent) error   { return nil }
