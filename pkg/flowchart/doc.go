// Package flowchart models the directed graphs fed to the layout engine and
// reads them from Mermaid-style text or JSON.
//
// # Overview
//
// A [Graph] holds a [Direction], nodes in declaration order and edges in
// declaration order. Declaration order matters: the layout engine uses it
// to pick roots and to break ties, so the same input always produces the
// same layout.
//
//	g := flowchart.New(flowchart.LeftRight)
//	g.AddNode(flowchart.Node{ID: "a", Label: "Start"})
//	g.AddNode(flowchart.Node{ID: "b", Label: "End", Shape: flowchart.ShapeRound})
//	g.AddEdge(flowchart.Edge{From: "a", To: "b"})
//
// # Text input
//
// [Parse] accepts the common subset of Mermaid flowchart syntax:
//
//	graph TD
//	    A[Start] --> B{Is it?}
//	    B -->|Yes| C((OK))
//	    B -- No --> D([Retry])
//	    D --> B
//
// Syntax errors carry the INVALID_SYNTAX code from pkg/errors and the
// offending line number.
//
// # JSON input
//
// [ReadJSON] and [WriteJSON] use a node array and an edge array whose field
// names (id, label, type, from_id, to_id) match the layout output.
package flowchart
