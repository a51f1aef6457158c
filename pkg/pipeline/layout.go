package pipeline

import (
	"encoding/json"

	"github.com/matzehuels/stackflow/pkg/flowchart"
	"github.com/matzehuels/stackflow/pkg/layout"
)

// =============================================================================
// Layout Generation
// =============================================================================

// GenerateLayout lays out g and logs the engine's diagnostics as warnings.
func GenerateLayout(g *flowchart.Graph, opts Options) (*layout.Layout, error) {
	opts.SetLayoutDefaults()
	l, err := layout.Build(g, layout.WithOptions(opts.LayoutOptions()))
	if err != nil {
		return nil, err
	}

	st := l.Stats
	if st.FallbackRoot != "" {
		opts.Logger.Warn("every node has an incoming edge; starting from the first node", "node", st.FallbackRoot)
	}
	if len(st.Unreached) > 0 {
		opts.Logger.Warn("nodes not reachable from any root were placed at rank 0", "nodes", st.Unreached)
	}
	if st.Degenerate > 0 {
		opts.Logger.Warn("edges join nodes of the same rank", "count", st.Degenerate)
	}
	opts.Logger.Debug("minimized crossings",
		"before", st.CrossingsBefore,
		"after", st.CrossingsAfter,
		"passes", st.Passes,
		"dummies", st.Dummies)
	return l, nil
}

// cachedLayout is the cache entry for one layout. The document keeps its
// dummies so a cache hit restores the layout exactly.
type cachedLayout struct {
	Layout layout.Document `json:"layout"`
	Stats  layout.Stats    `json:"stats"`
}

func encodeLayout(l *layout.Layout) ([]byte, error) {
	return json.Marshal(cachedLayout{
		Layout: layout.ToDocument(l, layout.WithDummies()),
		Stats:  l.Stats,
	})
}

func decodeLayout(data []byte) (*layout.Layout, error) {
	var entry cachedLayout
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	l, err := layout.FromDocument(entry.Layout)
	if err != nil {
		return nil, err
	}
	l.Stats = entry.Stats
	return l, nil
}
