// Package seat models admission slots per (edition, course, track).
package seat

import (
	id "ingresso/pkg/domain"
)

// Seat is one admission slot. OccupiedBy is set when an enrollment consumes
// it; an unoccupied seat may be re-tagged to another track by a sanctioned
// quota transition.
type Seat struct {
	ID         id.SeatID
	EditionID  id.EditionID
	CourseID   id.CourseID
	Track      string
	OccupiedBy *id.ApplicationID
}

// Free reports whether the seat has no occupant.
func (s *Seat) Free() bool { return s.OccupiedBy == nil }

// Group identifies a (course, track) seat pool and its size.
type Group struct {
	CourseID id.CourseID
	Track    string
	Total    int
}
