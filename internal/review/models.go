// Package review implements the single-reviewer document workflow: one
// verdict per confirmation, with an appeal path for invalid verdicts.
package review

import (
	"strings"
	"time"

	id "ingresso/pkg/domain"
)

// Status is the review lifecycle state.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusReviewed       Status = "REVIEWED"
	StatusAppealed       Status = "APPEALED"
	StatusAppealResolved Status = "APPEAL_RESOLVED"
)

// AppealStatus is the terminal state of a filed appeal.
type AppealStatus string

const (
	AppealPending  AppealStatus = "PENDING"
	AppealAccepted AppealStatus = "ACCEPTED"
	AppealRejected AppealStatus = "REJECTED"
)

// appealLabel prefixes observation text built from an appeal ruling.
const appealLabel = "PARECER DO RECURSO: "

// Appeal challenges an invalid review. One per review at most.
type Appeal struct {
	Status        AppealStatus
	Justification string
	FiledAt       time.Time
	ResolvedAt    *time.Time
}

// DocumentReview is the reviewer's verdict on one interest confirmation.
type DocumentReview struct {
	ID             id.ReviewID
	ConfirmationID id.ConfirmationID
	Status         Status
	Valid          bool
	Notes          string
	ReviewedAt     time.Time
	Appeal         *Appeal
}

// FinalValidity reports whether the documentation counts as valid for
// allocation: a valid review, or an invalid one overturned on appeal.
func (r *DocumentReview) FinalValidity() bool {
	if r.Status == StatusReviewed && r.Valid {
		return true
	}
	return r.Status == StatusAppealResolved && r.Appeal != nil && r.Appeal.Status == AppealAccepted
}

// Resolved reports whether the review reached a terminal state.
func (r *DocumentReview) Resolved() bool {
	switch r.Status {
	case StatusReviewed, StatusAppealResolved:
		return true
	}
	return false
}

// Observation builds the rejection text shown on the outcome: the review
// note, or for resolved appeals the ruling justification upper-cased under
// a fixed label.
func (r *DocumentReview) Observation() string {
	if r.Status == StatusAppealResolved && r.Appeal != nil {
		return appealLabel + strings.ToUpper(r.Appeal.Justification)
	}
	return r.Notes
}
