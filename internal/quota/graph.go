package quota

// HasCycle reports whether the proposed batch of transitions, viewed as a
// directed graph over track codes, contains a cycle. The check is
// batch-scoped: only the edges passed in participate.
//
// Self-loops count as cycles. So does the same directed edge appearing
// twice in the batch: the upstream system treats a duplicate identical edge
// as cycle-positive, and that behavior is kept as-is.
func HasCycle(batch []Transition) bool {
	seen := make(map[Transition]bool, len(batch))
	adj := make(map[string][]string)
	for _, e := range batch {
		if e.From == e.To {
			return true
		}
		if seen[e] {
			return true
		}
		seen[e] = true
		adj[e.From] = append(adj[e.From], e.To)
	}

	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(adj))

	var visit func(node string) bool
	visit = func(node string) bool {
		color[node] = gray
		for _, next := range adj[node] {
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[node] = black
		return false
	}

	for node := range adj {
		if color[node] == white && visit(node) {
			return true
		}
	}
	return false
}
