package layout

import (
	"fmt"

	"github.com/matzehuels/stackflow/pkg/flowchart"
)

// Normalize replaces every working edge that spans more than one rank with
// a chain of single-rank segments through dummy nodes.
//
// The chain walks from the source rank toward the target rank, so back
// edges (target above source) are split just like forward ones:
//
//	Before: c (rank 0) → d (rank 3)
//	After:  c → dummy_0 (1) → dummy_1 (2) → d
//
// Dummies are zero-sized with an empty label and are appended to their
// rank. Their IDs ("dummy_<n>") never collide with real node IDs. The
// original edge records the dummy IDs in order; segments carry no label.
//
// Edges spanning exactly one rank stay in the working set as the same
// value. Edges whose endpoints share a rank are kept too and counted in
// Stats.Degenerate.
func Normalize(l *Layout) {
	gen := newIDGen(l.Nodes)
	edges := make([]*Edge, 0, len(l.Edges))

	for _, e := range l.Edges {
		src, dst := l.Nodes[e.From], l.Nodes[e.To]
		span := dst.Rank - src.Rank
		switch {
		case span == 0:
			l.Stats.Degenerate++
			edges = append(edges, e)
			continue
		case span == 1 || span == -1:
			edges = append(edges, e)
			continue
		}

		step := 1
		if span < 0 {
			step = -1
		}
		prev := src.ID
		for r := src.Rank + step; r != dst.Rank; r += step {
			id := addDummy(l, gen, r)
			edges = append(edges, &Edge{From: prev, To: id})
			e.DummyNodes = append(e.DummyNodes, id)
			prev = id
		}
		edges = append(edges, &Edge{From: prev, To: dst.ID})
	}

	l.Edges = edges
	l.syncOrder()
}

func addDummy(l *Layout, gen *idGen, rank int) string {
	id := gen.next()
	l.Nodes[id] = &Node{
		ID:    id,
		Shape: flowchart.ShapeDefault,
		Rank:  rank,
		Dummy: true,
	}
	l.Ranks[rank] = append(l.Ranks[rank], id)
	l.Stats.Dummies++
	return id
}

type idGen struct {
	used map[string]struct{}
	n    int
}

func newIDGen(nodes map[string]*Node) *idGen {
	m := make(map[string]struct{}, len(nodes)*2)
	for id := range nodes {
		m[id] = struct{}{}
	}
	return &idGen{used: m}
}

func (gen *idGen) next() string {
	for {
		id := fmt.Sprintf("dummy_%d", gen.n)
		gen.n++
		if _, exists := gen.used[id]; !exists {
			gen.used[id] = struct{}{}
			return id
		}
	}
}
