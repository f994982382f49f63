// Package stage models the numbered phases of an edition and their
// lifecycle rules.
package stage

import (
	"time"

	id "ingresso/pkg/domain"
)

// Schedule holds the sub-windows of a stage. Interest confirmations are
// accepted only inside the interest window; appeals and managed analysis
// are bounded by the analysis window.
type Schedule struct {
	InterestStart time.Time
	InterestEnd   time.Time
	AnalysisStart time.Time
	AnalysisEnd   time.Time
}

// InInterestWindow reports whether t falls inside the interest sub-window.
func (s Schedule) InInterestWindow(t time.Time) bool {
	return t.After(s.InterestStart) && t.Before(s.InterestEnd)
}

// InAnalysisWindow reports whether t falls strictly inside the analysis
// window.
func (s Schedule) InAnalysisWindow(t time.Time) bool {
	return t.After(s.AnalysisStart) && t.Before(s.AnalysisEnd)
}

// Stage is one numbered phase of an edition. An empty Campus means the
// stage is systemic and covers all campuses. Stage number 0 is the pure
// result stage and must keep multiplier 1.
type Stage struct {
	ID              id.StageID
	EditionID       id.EditionID
	Number          int
	Campus          string // empty = systemic
	Open            bool
	Public          bool
	Multiplier      int
	ManagedAnalysis bool
	Schedule        Schedule
	ClosedAt        *time.Time
}

// Systemic reports whether the stage covers all campuses.
func (s *Stage) Systemic() bool { return s.Campus == "" }

// SameScope reports whether two scopes collide for the single-open rule.
func SameScope(a, b string) bool { return a == b }
