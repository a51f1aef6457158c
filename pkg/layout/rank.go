package layout

// AssignRanks places every node on a rank using a visit-once depth-first
// walk from the roots.
//
// Roots are the nodes without incoming edges, in declaration order. When
// there are none, the first declared node is used and recorded in
// Stats.FallbackRoot. The first visit of a node fixes its rank; its
// outgoing edges, in edge order, then propose rank+1 to targets that have
// not been visited yet. A visited node is never re-entered, so a longer
// path found later does not push it or its descendants further down.
//
// Nodes no root reaches (members of a cycle without a source, for example)
// are used as extra starting points at rank 0, in declaration order, and
// listed in Stats.Unreached.
//
// Ranks is rebuilt from scratch with nodes grouped in first-visit order.
// The walk uses an explicit stack, so graph depth is not limited by the
// goroutine stack.
func AssignRanks(l *Layout) {
	l.Ranks = make(map[int][]string)
	if len(l.order) == 0 {
		return
	}

	out := make(map[string][]string, len(l.order))
	hasIncoming := make(map[string]bool, len(l.order))
	for _, e := range l.Original {
		out[e.From] = append(out[e.From], e.To)
		hasIncoming[e.To] = true
	}

	var roots []string
	for _, id := range l.order {
		if !hasIncoming[id] {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 {
		roots = []string{l.order[0]}
		l.Stats.FallbackRoot = l.order[0]
	}

	w := &rankWalker{
		l:       l,
		out:     out,
		visited: make(map[string]bool, len(l.order)),
	}
	for _, id := range roots {
		w.walk(id)
	}
	for _, id := range l.order {
		if !w.visited[id] {
			l.Stats.Unreached = append(l.Stats.Unreached, id)
			w.walk(id)
		}
	}

	for _, id := range w.seen {
		r := l.Nodes[id].Rank
		l.Ranks[r] = append(l.Ranks[r], id)
	}
	l.syncOrder()
}

type rankWalker struct {
	l       *Layout
	out     map[string][]string
	visited map[string]bool
	seen    []string // first-visit order
}

type rankFrame struct {
	id   string
	next int // index of the next outgoing edge to follow
}

func (w *rankWalker) visit(id string, rank int) {
	w.l.Nodes[id].Rank = rank
	w.visited[id] = true
	w.seen = append(w.seen, id)
}

func (w *rankWalker) walk(start string) {
	w.visit(start, 0)
	stack := []rankFrame{{id: start}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		targets := w.out[top.id]
		if top.next >= len(targets) {
			stack = stack[:len(stack)-1]
			continue
		}
		child := targets[top.next]
		top.next++
		if w.visited[child] {
			continue
		}
		w.visit(child, w.l.Nodes[top.id].Rank+1)
		stack = append(stack, rankFrame{id: child})
	}
}
