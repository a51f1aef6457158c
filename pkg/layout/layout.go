package layout

import (
	"maps"
	"slices"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/flowchart"
)

// Point is a position on the canvas in pixels.
type Point struct {
	X float64
	Y float64
}

// Node is a positioned vertex. X and Y are the center of its bounding box.
// Dummy nodes are zero-sized waypoints inserted for edges that span several
// ranks; they carry no label and are never part of the input graph.
type Node struct {
	ID     string
	Label  string
	Shape  flowchart.Shape
	X      float64
	Y      float64
	Width  float64
	Height float64
	Rank   int
	Order  int
	Dummy  bool
}

// Edge is a routed connection. Points is the polyline from the source
// center to the target center. DummyNodes is set only on original edges
// that were split during normalization.
type Edge struct {
	From       string
	To         string
	Label      string
	Points     []Point
	DummyNodes []string
}

// Span returns rank(To) - rank(From) in l.
func (e *Edge) Span(l *Layout) int {
	return l.Nodes[e.To].Rank - l.Nodes[e.From].Rank
}

// Stats records the recoveries and measurements of a layout run.
type Stats struct {
	FallbackRoot    string   `json:"fallback_root,omitempty"` // Set when no node lacked incoming edges
	Unreached       []string `json:"unreached,omitempty"`     // Nodes seeded at rank 0 because no root reached them
	Degenerate      int      `json:"degenerate"`              // Edges whose endpoints share a rank
	Dummies         int      `json:"dummies"`                 // Dummy nodes inserted
	CrossingsBefore int      `json:"crossings_before"`        // Total crossings entering minimization
	CrossingsAfter  int      `json:"crossings_after"`         // Total crossings leaving minimization
	Passes          int      `json:"passes"`                  // Minimization passes run
}

// Layout is the result of laying out one graph. It owns all of its nodes
// and edges.
//
// Invariants after [Build]:
//   - every node appears exactly once in Ranks, under its own Rank
//   - Order is the node's index in Ranks[Rank]
//   - every edge in Edges spans at most one rank
type Layout struct {
	Nodes     map[string]*Node
	Edges     []*Edge // working set, every edge spans at most one rank
	Original  []*Edge // input edges in declaration order
	Width     float64
	Height    float64
	Direction flowchart.Direction
	Ranks     map[int][]string
	Stats     Stats

	order []string // real node IDs in declaration order
}

// Build lays out g and returns the positioned result. It runs rank
// assignment, edge normalization, crossing minimization and coordinate
// assignment in that order on a fresh Layout.
//
// Build fails only when g is invalid or the options are out of range.
// Degenerate inputs (no root, cycles, isolated nodes, empty graphs) are
// recovered from and reported in [Layout.Stats].
func Build(g *flowchart.Graph, opts ...Option) (*Layout, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperr.New(apperr.ErrCodeInvalidGraph, "graph is nil")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	l := New(g, o)
	AssignRanks(l)
	Normalize(l)
	MinimizeCrossings(l, o.MaxPasses)
	AssignCoordinates(l, o)
	return l, nil
}

// New creates an unranked Layout for g sized to the canvas in o. Every
// node starts at rank 0 with no coordinates. The working edge set starts
// out as the original edges.
func New(g *flowchart.Graph, o Options) *Layout {
	l := &Layout{
		Nodes:     make(map[string]*Node, g.NodeCount()),
		Width:     o.Width,
		Height:    o.Height,
		Direction: g.Direction,
		Ranks:     make(map[int][]string),
	}
	if l.Direction == "" {
		l.Direction = flowchart.DefaultDirection
	}
	for _, n := range g.Nodes() {
		l.Nodes[n.ID] = &Node{ID: n.ID, Label: n.Label, Shape: n.Shape}
		l.order = append(l.order, n.ID)
	}
	for _, e := range g.Edges() {
		l.Original = append(l.Original, &Edge{From: e.From, To: e.To, Label: e.Label})
	}
	l.Edges = slices.Clone(l.Original)
	return l
}

// RankIDs returns the ranks present in the layout in ascending order.
func (l *Layout) RankIDs() []int {
	return slices.Sorted(maps.Keys(l.Ranks))
}

// MaxRank returns the highest rank, or -1 for an empty layout.
func (l *Layout) MaxRank() int {
	maxRank := -1
	for r := range l.Ranks {
		maxRank = max(maxRank, r)
	}
	return maxRank
}

// MaxRankSize returns the number of nodes in the widest rank.
func (l *Layout) MaxRankSize() int {
	n := 0
	for _, ids := range l.Ranks {
		n = max(n, len(ids))
	}
	return n
}

// RealNodes returns the non-dummy nodes in declaration order. Layouts read
// back from JSON have no declaration order and return nodes sorted by rank
// then order.
func (l *Layout) RealNodes() []*Node {
	var nodes []*Node
	if len(l.order) > 0 {
		for _, id := range l.order {
			nodes = append(nodes, l.Nodes[id])
		}
		return nodes
	}
	for _, r := range l.RankIDs() {
		for _, id := range l.Ranks[r] {
			if n := l.Nodes[id]; !n.Dummy {
				nodes = append(nodes, n)
			}
		}
	}
	return nodes
}

// syncOrder sets every node's Order to its index within its rank.
func (l *Layout) syncOrder() {
	for _, ids := range l.Ranks {
		for i, id := range ids {
			l.Nodes[id].Order = i
		}
	}
}
