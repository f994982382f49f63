// Package ranking orders applications with the admission comparator and
// assigns dense ranks. Pure domain logic - no I/O, no side effects.
package ranking

import (
	"sort"

	"ingresso/internal/candidate"
)

// Less is the total comparator, in strict priority order: overall score
// desc, essay score desc, subject tie-break A desc, birth date asc (the
// older candidate wins remaining ties).
func Less(a, b *candidate.Application) bool {
	if a.Score.Overall != b.Score.Overall {
		return a.Score.Overall > b.Score.Overall
	}
	if a.Score.Essay != b.Score.Essay {
		return a.Score.Essay > b.Score.Essay
	}
	if a.Score.SubjectA != b.Score.SubjectA {
		return a.Score.SubjectA > b.Score.SubjectA
	}
	return a.BirthDate.Before(b.BirthDate)
}

// sameKey reports a full tie on all four comparator keys.
func sameKey(a, b *candidate.Application) bool {
	return !Less(a, b) && !Less(b, a)
}

// Rank sorts the applications and assigns dense 1-based ranks in place:
// full-key ties share a rank and the next distinct key gets rank+1. The
// result does not depend on the input order; re-ranking an unchanged set
// yields identical ranks.
func Rank(apps []*candidate.Application) []*candidate.Application {
	sort.SliceStable(apps, func(i, j int) bool { return Less(apps[i], apps[j]) })
	rank := 0
	for i, a := range apps {
		if i == 0 || !sameKey(a, apps[i-1]) {
			rank++
		}
		a.Score.Rank = rank
	}
	return apps
}
