// Package pkg provides the core libraries for Stackflow flowchart layout.
//
// # Overview
//
// Stackflow turns Mermaid-style flowcharts into layered (Sugiyama) layouts:
// every node gets a rank, edges that span several ranks are split with
// dummy nodes, nodes are reordered within their ranks to reduce crossings
// and finally placed on a fixed canvas. The pkg directory is organized into
// three areas:
//
//  1. Domain logic: [flowchart] and [layout]
//  2. Outputs: [export/dot] and the JSON encoding in [layout]
//  3. Infrastructure: [pipeline], [cache], [store], [server], [observability]
//
// # Architecture
//
// The typical data flow:
//
//	Flowchart text / graph JSON
//	         ↓
//	    [flowchart] package (parse + validate)
//	         ↓
//	    [layout] package (rank → normalize → order → coordinates)
//	         ↓
//	    layout JSON / Graphviz DOT
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/stackflow/pkg/flowchart"
//	    "github.com/matzehuels/stackflow/pkg/layout"
//	    "github.com/matzehuels/stackflow/pkg/export/dot"
//	)
//
//	g, _ := flowchart.ParseString("graph TD\nA --> B\nB --> C")
//	l, _ := layout.Build(g, layout.WithCanvas(1280, 720))
//	data, _ := layout.Marshal(l)
//	src := dot.ToDOT(l)
//
// # Main Packages
//
// [flowchart] - The input graph: nodes with labels and shapes, labeled
// edges, a direction, and a parser for the Mermaid flowchart subset.
//
// [layout] - The layered layout engine and its JSON form.
//
// [export/dot] - Graphviz DOT output with pinned positions, checked with the
// Graphviz parser.
//
// [pipeline] - Parse → layout → export with caching, used by both the CLI and
// the HTTP service so that they behave the same.
//
// [cache] - File, Redis and no-op caches plus cache key derivation.
//
// [store] - Persistence for saved layouts: memory, files or MongoDB.
//
// [server] - The HTTP API.
//
// [observability] - Hooks for pipeline, cache and request events.
//
// [errors] - Coded errors shared by every package.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/layout/...             # Specific package
//	go test -run Example ./pkg/...       # Examples only
//
// [flowchart]: https://pkg.go.dev/github.com/matzehuels/stackflow/pkg/flowchart
// [layout]: https://pkg.go.dev/github.com/matzehuels/stackflow/pkg/layout
// [export/dot]: https://pkg.go.dev/github.com/matzehuels/stackflow/pkg/export/dot
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/stackflow/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/stackflow/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/stackflow/pkg/store
// [server]: https://pkg.go.dev/github.com/matzehuels/stackflow/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/stackflow/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/stackflow/pkg/errors
package pkg
