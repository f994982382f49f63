// Package call derives ranked shortlists for each (course, track) pool of a
// stage.
package call

import (
	id "ingresso/pkg/domain"
)

// Call is the ranked shortlist for one (stage, course, track) combination.
// Populated once; membership only grows through allocator re-routing.
type Call struct {
	ID         id.CallID
	StageID    id.StageID
	CourseID   id.CourseID
	Track      string
	SeatCount  int
	Multiplier int
}

// Threshold is the waitlist cut: rank positions up to it enter the call.
func (c *Call) Threshold() int { return c.SeatCount * c.Multiplier }
