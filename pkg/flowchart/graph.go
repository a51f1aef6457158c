package flowchart

import (
	"errors"
	"slices"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty or contains characters the text syntax cannot express.
	ErrInvalidNodeID = errors.New("invalid node ID")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] and [Graph.Validate]
	// when the From node does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] and [Graph.Validate]
	// when the To node does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")
)

// Node is a declared vertex of a flowchart.
type Node struct {
	ID    string // Unique identifier
	Label string // Display text, may be empty
	Shape Shape  // Outline tag, never empty after AddNode
}

// Edge is a directed connection between two declared nodes. Multiple edges
// between the same pair are allowed and preserved.
type Edge struct {
	From  string
	To    string
	Label string
}

// Graph is a parsed flowchart: a direction, nodes in declaration order and
// edges in declaration order.
//
// The zero value is not usable - use [New] to create a Graph.
// Graph is not safe for concurrent modification.
type Graph struct {
	Direction Direction

	nodes    map[string]*Node
	order    []string
	edges    []Edge
	incoming map[string]int
}

// New creates an empty graph with the given direction. An empty direction
// is replaced by [DefaultDirection].
func New(dir Direction) *Graph {
	if dir == "" {
		dir = DefaultDirection
	}
	return &Graph{
		Direction: dir,
		nodes:     make(map[string]*Node),
		incoming:  make(map[string]int),
	}
}

// AddNode adds a node to the graph. Returns an error wrapping
// ErrInvalidNodeID if the ID is not acceptable, or ErrDuplicateNodeID if a
// node with the same ID already exists. An empty Shape becomes
// [ShapeDefault].
func (g *Graph) AddNode(n Node) error {
	if err := apperr.ValidateNodeID(n.ID); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidGraph, ErrInvalidNodeID, "%s", apperr.UserMessage(err))
	}
	if _, exists := g.nodes[n.ID]; exists {
		return apperr.Wrap(apperr.ErrCodeInvalidGraph, ErrDuplicateNodeID, "node %q", n.ID)
	}
	if n.Shape == "" {
		n.Shape = ShapeDefault
	}
	node := n
	g.nodes[n.ID] = &node
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Returns an error wrapping ErrUnknownSourceNode or ErrUnknownTargetNode if
// either endpoint has not been declared.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return apperr.Wrap(apperr.ErrCodeInvalidGraph, ErrUnknownSourceNode, "edge %s->%s", e.From, e.To)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return apperr.Wrap(apperr.ErrCodeInvalidGraph, ErrUnknownTargetNode, "edge %s->%s", e.From, e.To)
	}
	g.edges = append(g.edges, e)
	g.incoming[e.To]++
	return nil
}

// Node returns the node with the given ID and true, or nil and false if it
// does not exist. The returned pointer refers to the graph's own node.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in declaration order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, len(g.order))
	for i, id := range g.order {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// NodeIDs returns all node IDs in declaration order.
func (g *Graph) NodeIDs() []string { return slices.Clone(g.order) }

// Edges returns a copy of all edges in declaration order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// InDegree returns the number of edges pointing at the node.
func (g *Graph) InDegree(id string) int { return g.incoming[id] }

// Validate checks graph integrity and returns nil if valid: the direction
// is known and every edge references declared nodes.
func (g *Graph) Validate() error {
	if !g.Direction.Valid() {
		return apperr.New(apperr.ErrCodeInvalidDirection, "unknown direction %q", g.Direction)
	}
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return apperr.Wrap(apperr.ErrCodeInvalidGraph, ErrUnknownSourceNode, "edge %s->%s", e.From, e.To)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return apperr.Wrap(apperr.ErrCodeInvalidGraph, ErrUnknownTargetNode, "edge %s->%s", e.From, e.To)
		}
	}
	return nil
}
