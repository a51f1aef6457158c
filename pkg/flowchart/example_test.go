package flowchart_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/stackflow/pkg/flowchart"
)

func ExampleParse() {
	src := `graph LR
    A[Start] --> B{Ready?}
    B -->|yes| C((Go))
    B -- no --> A`

	g, err := flowchart.Parse(strings.NewReader(src))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("Direction:", g.Direction)
	for _, n := range g.Nodes() {
		fmt.Printf("%s %s %q\n", n.ID, n.Shape, n.Label)
	}
	for _, e := range g.Edges() {
		fmt.Printf("%s -> %s %q\n", e.From, e.To, e.Label)
	}
	// Output:
	// Direction: LR
	// A square "Start"
	// B diamond "Ready?"
	// C circle "Go"
	// A -> B ""
	// B -> C "yes"
	// B -> A "no"
}

func ExampleGraph_AddEdge() {
	g := flowchart.New(flowchart.TopDown)
	_ = g.AddNode(flowchart.Node{ID: "a"})

	err := g.AddEdge(flowchart.Edge{From: "a", To: "b"})
	fmt.Println(err)
	// Output:
	// INVALID_GRAPH: edge a->b: unknown target node
}
