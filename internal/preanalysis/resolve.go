package preanalysis

// Resolve recomputes the situation of a pre-analysis application from
// the full set of evaluations received so far. A supervisor verdict is
// authoritative regardless of how many evaluator verdicts exist.
func Resolve(phase *Phase, evals []Evaluation) string {
	for i := len(evals) - 1; i >= 0; i-- {
		if evals[i].Supervisor {
			if evals[i].Verdict == VerdictAccept {
				return SituationAccepted
			}
			return SituationRejected
		}
	}

	var peers []Evaluation
	for _, ev := range evals {
		if !ev.Supervisor {
			peers = append(peers, ev)
		}
	}
	if len(peers) < phase.RequiredEvaluators {
		return SituationUnassigned
	}

	accepts, rejects := 0, 0
	reasons := make(map[string]struct{})
	for _, ev := range peers {
		if ev.Verdict == VerdictAccept {
			accepts++
		} else {
			rejects++
			reasons[ev.ReasonCode] = struct{}{}
		}
	}

	switch {
	case rejects == 0:
		return SituationAccepted
	case accepts == 0 && len(reasons) == 1:
		return SituationRejected
	case accepts == 0 && !phase.RequiresSupervisor:
		// Differing reasons still agree on the outcome when no
		// supervisor round exists.
		return SituationRejected
	case phase.RequiresSupervisor:
		return SituationAwaitingSupervisor
	default:
		// Split verdict with no supervisor round configured: the
		// application stays pending until a reviewer revises their
		// verdict.
		return SituationUnassigned
	}
}
