package layout

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/flowchart"
)

// MarshalJSON encodes p as a two-element array [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a two-element array [x, y].
func (p *Point) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}
	if len(xy) != 2 {
		return fmt.Errorf("point: want [x, y], got %d values", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// JSONOption configures [Marshal] and [Write].
type JSONOption func(*jsonWriter)

type jsonWriter struct {
	dummies bool
	indent  bool
}

// WithDummies includes dummy nodes, lists each split edge's dummies and
// adds the working edge set (one entry per single-rank segment) under
// "segments". The result decodes back into an identical Layout.
func WithDummies() JSONOption { return func(w *jsonWriter) { w.dummies = true } }

// WithCompact disables indentation.
func WithCompact() JSONOption { return func(w *jsonWriter) { w.indent = false } }

// Document is the persisted form of a Layout.
//
// By default dummy nodes are left out and Edges lists the original edges
// with their full polylines, so a renderer needs nothing else to draw the
// graph.
type Document struct {
	Nodes     map[string]NodeJSON `json:"nodes"`
	Edges     []EdgeJSON          `json:"edges"`
	Segments  []EdgeJSON          `json:"segments,omitempty"`
	Width     float64             `json:"width"`
	Height    float64             `json:"height"`
	Direction flowchart.Direction `json:"direction"`
}

// NodeJSON is a persisted node.
type NodeJSON struct {
	ID     string          `json:"id"`
	Label  string          `json:"label"`
	Type   flowchart.Shape `json:"type"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Width  float64         `json:"width"`
	Height float64         `json:"height"`
	Rank   int             `json:"rank"`
	Order  int             `json:"order"`
	Dummy  bool            `json:"dummy"`
}

// EdgeJSON is a persisted edge.
type EdgeJSON struct {
	From       string   `json:"from_id"`
	To         string   `json:"to_id"`
	Label      string   `json:"label"`
	Points     []Point  `json:"points"`
	DummyNodes []string `json:"dummy_nodes,omitempty"`
}

func toEdgeJSON(e *Edge, withDummies bool) EdgeJSON {
	pts := e.Points
	if pts == nil {
		pts = []Point{}
	}
	out := EdgeJSON{From: e.From, To: e.To, Label: e.Label, Points: pts}
	if withDummies {
		out.DummyNodes = e.DummyNodes
	}
	return out
}

// ToDocument converts l into its persisted form.
func ToDocument(l *Layout, opts ...JSONOption) Document {
	w := jsonWriter{indent: true}
	for _, opt := range opts {
		opt(&w)
	}

	doc := Document{
		Nodes:     make(map[string]NodeJSON, len(l.Nodes)),
		Width:     l.Width,
		Height:    l.Height,
		Direction: l.Direction,
	}
	for id, n := range l.Nodes {
		if n.Dummy && !w.dummies {
			continue
		}
		doc.Nodes[id] = NodeJSON{
			ID: n.ID, Label: n.Label, Type: n.Shape,
			X: n.X, Y: n.Y, Width: n.Width, Height: n.Height,
			Rank: n.Rank, Order: n.Order, Dummy: n.Dummy,
		}
	}

	doc.Edges = make([]EdgeJSON, 0, len(l.Original))
	for _, e := range l.Original {
		doc.Edges = append(doc.Edges, toEdgeJSON(e, w.dummies))
	}
	if w.dummies {
		doc.Segments = make([]EdgeJSON, 0, len(l.Edges))
		for _, e := range l.Edges {
			doc.Segments = append(doc.Segments, toEdgeJSON(e, false))
		}
	}
	return doc
}

// FromDocument rebuilds a Layout from its persisted form. Ranks is rebuilt
// from each node's rank and order. Without segments, Edges holds the same
// edges as Original. Order values are kept as stored, so a layout saved
// without dummies may have gaps in a rank's orders.
func FromDocument(doc Document) (*Layout, error) {
	dir, err := flowchart.ParseDirection(string(doc.Direction))
	if err != nil {
		return nil, err
	}
	l := &Layout{
		Nodes:     make(map[string]*Node, len(doc.Nodes)),
		Width:     doc.Width,
		Height:    doc.Height,
		Direction: dir,
		Ranks:     make(map[int][]string),
	}
	for key, n := range doc.Nodes {
		if n.ID == "" {
			n.ID = key
		}
		if n.ID != key {
			return nil, apperr.New(apperr.ErrCodeInvalidInput, "node key %q does not match id %q", key, n.ID)
		}
		shape := n.Type
		if shape == "" {
			shape = flowchart.ShapeDefault
		}
		l.Nodes[key] = &Node{
			ID: n.ID, Label: n.Label, Shape: shape,
			X: n.X, Y: n.Y, Width: n.Width, Height: n.Height,
			Rank: n.Rank, Order: n.Order, Dummy: n.Dummy,
		}
	}

	nodes := make([]*Node, 0, len(l.Nodes))
	for _, n := range l.Nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *Node) int {
		return cmp.Or(cmp.Compare(a.Rank, b.Rank), cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
	})
	for _, n := range nodes {
		l.Ranks[n.Rank] = append(l.Ranks[n.Rank], n.ID)
	}

	if l.Original, err = l.decodeEdges(doc.Edges); err != nil {
		return nil, err
	}
	if len(doc.Segments) == 0 {
		l.Edges = slices.Clone(l.Original)
		return l, nil
	}
	if l.Edges, err = l.decodeEdges(doc.Segments); err != nil {
		return nil, err
	}
	for _, e := range l.Original {
		l.Stats.Dummies += len(e.DummyNodes)
	}
	return l, nil
}

func (l *Layout) decodeEdges(in []EdgeJSON) ([]*Edge, error) {
	edges := make([]*Edge, 0, len(in))
	for _, e := range in {
		if _, ok := l.Nodes[e.From]; !ok {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidGraph, flowchart.ErrUnknownSourceNode, "edge %s->%s", e.From, e.To)
		}
		if _, ok := l.Nodes[e.To]; !ok {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidGraph, flowchart.ErrUnknownTargetNode, "edge %s->%s", e.From, e.To)
		}
		for _, id := range e.DummyNodes {
			if n, ok := l.Nodes[id]; !ok || !n.Dummy {
				return nil, apperr.New(apperr.ErrCodeInvalidInput, "edge %s->%s lists %q, which is not a dummy node", e.From, e.To, id)
			}
		}
		edges = append(edges, &Edge{From: e.From, To: e.To, Label: e.Label, Points: e.Points, DummyNodes: e.DummyNodes})
	}
	return edges, nil
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// Marshal encodes l as JSON.
func Marshal(l *Layout, opts ...JSONOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(l, &buf, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a Layout from JSON.
func Unmarshal(data []byte) (*Layout, error) {
	return Read(bytes.NewReader(data))
}

// Write encodes l as JSON to an io.Writer.
func Write(l *Layout, w io.Writer, opts ...JSONOption) error {
	jw := jsonWriter{indent: true}
	for _, opt := range opts {
		opt(&jw)
	}
	enc := json.NewEncoder(w)
	if jw.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(ToDocument(l, opts...)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Read decodes a Layout from an io.Reader.
func Read(r io.Reader) (*Layout, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "decode layout")
	}
	return FromDocument(doc)
}

// WriteFile writes l to a JSON file.
func WriteFile(l *Layout, path string, opts ...JSONOption) error {
	if err := apperr.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(l, f, opts...)
}

// ReadFile reads a Layout from a JSON file.
func ReadFile(path string) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
