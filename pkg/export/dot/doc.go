// Package dot exports computed layouts as Graphviz DOT.
//
// # Overview
//
// Every node is written with a pinned position, so Graphviz draws the graph
// exactly where the layout engine placed it instead of computing its own
// layout. Render the output with neato's no-layout mode:
//
//	neato -n2 -Tsvg layout.dot > layout.svg
//
// # Coordinates
//
// DOT measures positions in points with the y axis pointing up, while
// layouts use pixels with y pointing down. [ToDOT] flips y against the
// canvas height and writes node sizes in inches (72 points per inch).
//
// # Dummy Nodes
//
// When the layout still carries its dummy nodes, they are written as
// zero-size point nodes and each long edge is drawn through them segment
// by segment. The original edge label goes on the first segment. Layouts
// decoded without dummies are written with straight edges.
//
// # Validation
//
// [Validate] parses DOT source with the embedded Graphviz library. It does
// not render anything.
package dot
