package layout

// MinimizeCrossings reorders nodes within ranks to reduce edge crossings
// with a bounded pairwise-swap search.
//
// Each pass sweeps the ranks in ascending order. For a rank, every pair of
// positions (i, j) with i ascending and j > i ascending is swapped
// tentatively and the crossings against the previous and next rank are
// recounted. The swap is kept only if that count drops strictly below the
// best seen so far for the rank; otherwise it is undone. The search stops
// after maxPasses passes or after a pass that keeps no swap, since the
// next pass would see the same orders and keep nothing either.
//
// Total crossings never increase. Order is resynced when the search ends,
// and Stats records crossings before and after and the passes run.
func MinimizeCrossings(l *Layout, maxPasses int) {
	nb := newNeighbors(l.Edges)
	ranks := l.RankIDs()

	l.Stats.CrossingsBefore = TotalCrossings(l)
	for pass := 0; pass < maxPasses; pass++ {
		l.Stats.Passes++
		improved := false
		for _, r := range ranks {
			if sweepRank(l, nb, r) {
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	l.Stats.CrossingsAfter = TotalCrossings(l)
	l.syncOrder()
}

// sweepRank runs one round of pairwise swaps on rank r and reports whether
// any swap was kept.
func sweepRank(l *Layout, nb neighbors, r int) bool {
	ids := l.Ranks[r]
	if len(ids) < 2 {
		return false
	}
	prev, next := l.Ranks[r-1], l.Ranks[r+1]
	local := func() int {
		return countCrossings(nb, prev, ids) + countCrossings(nb, ids, next)
	}

	best := local()
	kept := false
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if best == 0 {
				return kept
			}
			ids[i], ids[j] = ids[j], ids[i]
			if c := local(); c < best {
				best = c
				kept = true
				continue
			}
			ids[i], ids[j] = ids[j], ids[i]
		}
	}
	return kept
}
