// Package permission answers which operations a group of acting users
// may trigger. The engine itself never authorizes; the trigger layer
// consults this package before invoking an operation.
package permission

// Permission names mirror the operations they guard.
const (
	PermStageManage      = "stage.manage"
	PermCallGenerate     = "call.generate"
	PermInterestConfirm  = "interest.confirm"
	PermReviewSubmit     = "review.submit"
	PermAppealFile       = "appeal.file"
	PermAppealResolve    = "appeal.resolve"
	PermEvaluationSubmit = "evaluation.submit"
	PermSupervisorRule   = "evaluation.supervise"
	PermAllocationRun    = "allocation.run"
	PermEnrollmentCancel = "enrollment.cancel"
)

// Registry maps group names to their granted permissions. The mapping is
// built once from the hand-written list below; nothing is discovered at
// runtime.
type Registry struct {
	groups map[string][]string
}

// NewRegistry builds the static group catalog.
func NewRegistry() *Registry {
	return &Registry{groups: map[string][]string{
		"admissions.admin": {
			PermStageManage, PermCallGenerate, PermAllocationRun, PermEnrollmentCancel,
		},
		"admissions.reviewer": {
			PermReviewSubmit, PermEvaluationSubmit,
		},
		"admissions.supervisor": {
			PermReviewSubmit, PermEvaluationSubmit, PermSupervisorRule, PermAppealResolve,
		},
		"admissions.candidate": {
			PermInterestConfirm, PermAppealFile,
		},
	}}
}

// Permissions returns the grants of a group; unknown groups have none.
func (r *Registry) Permissions(group string) []string {
	perms := r.groups[group]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Groups lists the cataloged group names.
func (r *Registry) Groups() []string {
	out := make([]string, 0, len(r.groups))
	for name := range r.groups {
		out = append(out, name)
	}
	return out
}
