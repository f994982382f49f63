// Package allocation turns document-checked applications into final
// outcomes and enrollments, bounded by the declared seats.
package allocation

import (
	"time"

	id "ingresso/pkg/domain"
)

const (
	StatusAccepted   = "ACCEPTED"
	StatusRejected   = "REJECTED"
	StatusWaitlisted = "WAITLISTED"
)

// ReasonWaitlisted is the label carried by every waitlisted outcome.
const ReasonWaitlisted = "candidate on waiting list"

// Outcome is the final allocator verdict for one application in one
// stage. There is exactly one per (application, stage); reruns update it
// in place.
type Outcome struct {
	ApplicationID id.ApplicationID
	StageID       id.StageID
	Status        string
	Reason        string
	ComputedAt    time.Time
}

// Enrollment binds an accepted application to the seat it consumed.
type Enrollment struct {
	ID            id.EnrollmentID
	ApplicationID id.ApplicationID
	StageID       id.StageID
	SeatID        id.SeatID
	CourseID      id.CourseID
	Track         string
	CreatedAt     time.Time
}
