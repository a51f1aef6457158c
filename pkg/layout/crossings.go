package layout

import "slices"

// PosMap returns a map from node ID to its index in ids.
func PosMap(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

// neighbors indexes the working edges in both directions. Crossings are
// counted between adjacent ranks regardless of which way an edge points.
type neighbors map[string][]string

func newNeighbors(edges []*Edge) neighbors {
	nb := make(neighbors, len(edges))
	for _, e := range edges {
		if e.From == e.To {
			continue
		}
		nb[e.From] = append(nb[e.From], e.To)
		nb[e.To] = append(nb[e.To], e.From)
	}
	return nb
}

// CountRankCrossings counts edge crossings between two adjacent ranks.
// Every working edge with one endpoint in upper and the other in lower
// takes part, whichever way it points.
//
// Two edges (u1,v1) and (u2,v2) cross if and only if:
//
//	(pos(u1) - pos(u2)) * (pos(v1) - pos(v2)) < 0
//
// This is equivalent to counting inversions in the sequence of lower
// positions when edges are sorted by upper position, which a Fenwick tree
// does in O(E log V).
func CountRankCrossings(l *Layout, upper, lower []string) int {
	return countCrossings(newNeighbors(l.Edges), upper, lower)
}

// TotalCrossings sums [CountRankCrossings] over every pair of consecutive
// ranks.
func TotalCrossings(l *Layout) int {
	nb := newNeighbors(l.Edges)
	total := 0
	for r := range l.Ranks {
		if next, ok := l.Ranks[r+1]; ok {
			total += countCrossings(nb, l.Ranks[r], next)
		}
	}
	return total
}

func countCrossings(nb neighbors, upper, lower []string) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}

	lowerPos := PosMap(lower)

	type edge struct{ upper, lower int }
	edges := make([]edge, 0, len(upper)*2)
	for i, id := range upper {
		for _, other := range nb[id] {
			if pos, ok := lowerPos[other]; ok {
				edges = append(edges, edge{i, pos})
			}
		}
	}
	if len(edges) < 2 {
		return 0
	}

	// Sort by upper position, then by lower position so that edges sharing
	// an endpoint are never counted as crossing.
	slices.SortFunc(edges, func(a, b edge) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	fenwick := make([]int, len(lower)+1)
	crossings, total := 0, 0
	for _, e := range edges {
		lessOrEqual := 0
		for q := e.lower + 1; q > 0; q -= q & (-q) {
			lessOrEqual += fenwick[q]
		}
		crossings += total - lessOrEqual

		total++
		for idx := e.lower + 1; idx < len(fenwick); idx += idx & (-idx) {
			fenwick[idx]++
		}
	}
	return crossings
}
