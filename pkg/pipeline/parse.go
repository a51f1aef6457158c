package pipeline

import (
	"strings"

	"github.com/matzehuels/stackflow/pkg/flowchart"
)

// Parse reads the graph named by opts: opts.Graph when set, otherwise
// opts.Source as graph JSON or flowchart text. A non-empty opts.Direction
// replaces the graph's direction; the caller's graph is left unchanged.
func Parse(opts Options) (*flowchart.Graph, error) {
	g := opts.Graph
	if g == nil {
		var err error
		if g, err = flowchart.Load([]byte(opts.Source)); err != nil {
			return nil, err
		}
	}
	if opts.Direction == "" {
		return g, nil
	}

	dir, err := flowchart.ParseDirection(strings.TrimSpace(opts.Direction))
	if err != nil {
		return nil, err
	}
	if dir == g.Direction {
		return g, nil
	}
	doc := flowchart.ToDocument(g)
	doc.Direction = dir
	return flowchart.FromDocument(doc)
}
