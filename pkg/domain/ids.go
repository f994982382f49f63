// Package domain holds typed identifiers shared across the engine. Wrapping
// uuid.UUID in distinct types makes cross-entity mixups a compile error.
package domain

import (
	"github.com/google/uuid"

	dErrors "ingresso/pkg/domain-errors"
)

type (
	// EditionID identifies one run of an admission process.
	EditionID uuid.UUID
	// StageID identifies a numbered phase inside an edition.
	StageID uuid.UUID
	// CallID identifies the ranked shortlist for one (stage, course, track).
	CallID uuid.UUID
	// ApplicationID identifies a candidate's bid for one course/track.
	ApplicationID uuid.UUID
	// SeatID identifies one admission slot.
	SeatID uuid.UUID
	// CourseID identifies a course offering.
	CourseID uuid.UUID
	// ConfirmationID identifies an interest confirmation.
	ConfirmationID uuid.UUID
	// ReviewID identifies a variant-A document review.
	ReviewID uuid.UUID
	// PhaseID identifies a variant-B analysis phase.
	PhaseID uuid.UUID
	// PreAnalysisID identifies a review-scoped copy of an application.
	PreAnalysisID uuid.UUID
	// ReviewerID identifies a reviewer or supervisor.
	ReviewerID uuid.UUID
	// EnrollmentID identifies a consumed-seat record.
	EnrollmentID uuid.UUID
	// UserID identifies the acting operator, used for audit fields only.
	UserID uuid.UUID
)

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be empty", what)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid uuid", what)
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil uuid", what)
	}
	return id, nil
}

func ParseEditionID(raw string) (EditionID, error) {
	id, err := parseUUID(raw, "edition id")
	return EditionID(id), err
}

func ParseStageID(raw string) (StageID, error) {
	id, err := parseUUID(raw, "stage id")
	return StageID(id), err
}

func ParseCallID(raw string) (CallID, error) {
	id, err := parseUUID(raw, "call id")
	return CallID(id), err
}

func ParseApplicationID(raw string) (ApplicationID, error) {
	id, err := parseUUID(raw, "application id")
	return ApplicationID(id), err
}

func ParseSeatID(raw string) (SeatID, error) {
	id, err := parseUUID(raw, "seat id")
	return SeatID(id), err
}

func ParseCourseID(raw string) (CourseID, error) {
	id, err := parseUUID(raw, "course id")
	return CourseID(id), err
}

func ParseConfirmationID(raw string) (ConfirmationID, error) {
	id, err := parseUUID(raw, "confirmation id")
	return ConfirmationID(id), err
}

func ParseReviewID(raw string) (ReviewID, error) {
	id, err := parseUUID(raw, "review id")
	return ReviewID(id), err
}

func ParsePhaseID(raw string) (PhaseID, error) {
	id, err := parseUUID(raw, "phase id")
	return PhaseID(id), err
}

func ParsePreAnalysisID(raw string) (PreAnalysisID, error) {
	id, err := parseUUID(raw, "pre-analysis id")
	return PreAnalysisID(id), err
}

func ParseReviewerID(raw string) (ReviewerID, error) {
	id, err := parseUUID(raw, "reviewer id")
	return ReviewerID(id), err
}

func ParseEnrollmentID(raw string) (EnrollmentID, error) {
	id, err := parseUUID(raw, "enrollment id")
	return EnrollmentID(id), err
}

func ParseUserID(raw string) (UserID, error) {
	id, err := parseUUID(raw, "user id")
	return UserID(id), err
}

func (id EditionID) String() string     { return uuid.UUID(id).String() }
func (id StageID) String() string       { return uuid.UUID(id).String() }
func (id CallID) String() string        { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id SeatID) String() string        { return uuid.UUID(id).String() }
func (id CourseID) String() string      { return uuid.UUID(id).String() }
func (id ConfirmationID) String() string { return uuid.UUID(id).String() }
func (id ReviewID) String() string      { return uuid.UUID(id).String() }
func (id PhaseID) String() string       { return uuid.UUID(id).String() }
func (id PreAnalysisID) String() string { return uuid.UUID(id).String() }
func (id ReviewerID) String() string    { return uuid.UUID(id).String() }
func (id EnrollmentID) String() string  { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }

func (id EditionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id StageID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
