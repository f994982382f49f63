// Package candidate holds applications and their evaluation scores, the raw
// material every other admission component consumes.
package candidate

import (
	"time"

	id "ingresso/pkg/domain"
)

// Score carries the numeric ranking attributes of one application. Rank is
// 1-based and dense, assigned by the ranking engine; callers never guess it.
type Score struct {
	Overall  float64
	Essay    float64
	SubjectA float64
	Rank     int
}

// Application is a candidate's bid for one course under one quota track
// within one edition. CallID is set once the application enters a call.
type Application struct {
	ID        id.ApplicationID
	EditionID id.EditionID
	CourseID  id.CourseID
	Track     string
	Name      string
	BirthDate time.Time
	CallID    *id.CallID
	Score     Score
}

// InCall reports whether the application has been shortlisted.
func (a *Application) InCall() bool { return a.CallID != nil }
