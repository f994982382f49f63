package events

import (
	"context"
	"sync"
)

// MemoryPublisher records events for tests and for the default in-process
// wiring.
type MemoryPublisher struct {
	mu       sync.RWMutex
	Outcomes []OutcomeComputedEvent
	Appeals  []AppealResolvedEvent
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) OutcomeComputed(_ context.Context, event OutcomeComputedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Outcomes = append(p.Outcomes, event)
	return nil
}

func (p *MemoryPublisher) AppealResolved(_ context.Context, event AppealResolvedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Appeals = append(p.Appeals, event)
	return nil
}

// OutcomeEvents returns a copy of the recorded outcome events.
func (p *MemoryPublisher) OutcomeEvents() []OutcomeComputedEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]OutcomeComputedEvent, len(p.Outcomes))
	copy(out, p.Outcomes)
	return out
}
