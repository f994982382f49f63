package preanalysis

import (
	"time"

	"ingresso/internal/candidate"
	id "ingresso/pkg/domain"
)

// Situation values are kept in the original Portuguese used by the
// upstream review offices; they appear verbatim in exports and screens.
const (
	SituationUnassigned         = "SEM_AVALIADORES"
	SituationAwaitingSupervisor = "AGUARDANDO_HOMOLOGADOR"
	SituationAccepted           = "DEFERIDA"
	SituationRejected           = "INDEFERIDA"
)

const (
	VerdictAccept = "ACCEPT"
	VerdictReject = "REJECT"
)

// Phase configures one consensus review round: how many independent
// evaluators must agree, and whether a split escalates to a supervisor.
type Phase struct {
	ID                 id.PhaseID
	StageID            id.StageID
	Name               string
	RequiredEvaluators int
	RequiresSupervisor bool
}

// PreAnalysisApplication is a review-scoped copy of an application.
// Scores are frozen at copy time so that a later ranking pass cannot
// change what the evaluators saw.
type PreAnalysisApplication struct {
	ID            id.PreAnalysisID
	PhaseID       id.PhaseID
	ApplicationID id.ApplicationID
	StageID       id.StageID
	Situation     string
	Scores        candidate.Score
}

// Resolved reports whether the application reached a terminal situation.
func (p *PreAnalysisApplication) Resolved() bool {
	return p.Situation == SituationAccepted || p.Situation == SituationRejected
}

// Evaluation is one reviewer's verdict on one PreAnalysisApplication.
// A reviewer holds at most one evaluation per application; resubmitting
// replaces the earlier verdict.
type Evaluation struct {
	PreAnalysisID id.PreAnalysisID
	ReviewerID    id.ReviewerID
	Verdict       string
	ReasonCode    string
	Supervisor    bool
	SubmittedAt   time.Time
}

// RejectionReason is a catalog entry; rejecting verdicts must cite one.
type RejectionReason struct {
	Code        string
	Description string
}

// Mailbox is one reviewer's assigned batch for one phase. Total and
// Resolved move together with evaluation writes so progress reads never
// see a half-applied submission.
type Mailbox struct {
	PhaseID    id.PhaseID
	ReviewerID id.ReviewerID
	Assigned   []id.PreAnalysisID
	Total      int
	Resolved   int
	CreatedAt  time.Time
}

// HasUnresolved reports whether the reviewer still owes evaluations for
// the current batch.
func (m *Mailbox) HasUnresolved() bool { return m.Resolved < m.Total }
