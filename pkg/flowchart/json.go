package flowchart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
)

// =============================================================================
// Serialized form
// =============================================================================

// Document is the JSON shape of a Graph. Field names line up with the
// layout output so tools can read both.
type Document struct {
	Direction Direction  `json:"direction,omitempty"`
	Nodes     []NodeJSON `json:"nodes"`
	Edges     []EdgeJSON `json:"edges"`
}

// NodeJSON is a serialized node.
type NodeJSON struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Type  Shape  `json:"type,omitempty"`
}

// EdgeJSON is a serialized edge.
type EdgeJSON struct {
	From  string `json:"from_id"`
	To    string `json:"to_id"`
	Label string `json:"label,omitempty"`
}

// ToDocument converts g into its serialized form, preserving declaration
// order of nodes and edges.
func ToDocument(g *Graph) Document {
	doc := Document{
		Direction: g.Direction,
		Nodes:     make([]NodeJSON, 0, g.NodeCount()),
		Edges:     make([]EdgeJSON, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeJSON{ID: n.ID, Label: n.Label, Type: n.Shape})
	}
	for _, e := range g.edges {
		doc.Edges = append(doc.Edges, EdgeJSON{From: e.From, To: e.To, Label: e.Label})
	}
	return doc
}

// FromDocument builds a Graph from its serialized form. Unknown directions,
// unknown shapes, duplicate IDs and dangling edges are rejected.
func FromDocument(doc Document) (*Graph, error) {
	dir, err := ParseDirection(string(doc.Direction))
	if err != nil {
		return nil, err
	}
	g := New(dir)
	for _, n := range doc.Nodes {
		shape, err := ParseShape(string(n.Type))
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(Node{ID: n.ID, Label: n.Label, Shape: shape}); err != nil {
			return nil, err
		}
	}
	for _, e := range doc.Edges {
		if err := g.AddEdge(Edge{From: e.From, To: e.To, Label: e.Label}); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalJSON encodes the graph as indented JSON.
func (g *Graph) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes g as JSON to an io.Writer.
func WriteJSON(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDocument(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadJSON decodes a JSON graph from an io.Reader.
func ReadJSON(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "decode graph")
	}
	return FromDocument(doc)
}

// WriteFile writes g to a JSON file.
func WriteFile(g *Graph, path string) error {
	if err := apperr.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}

// ReadFile reads a graph from path. Files ending in ".json" are decoded as
// JSON, everything else is parsed as flowchart text.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if IsJSONPath(path) {
		return ReadJSON(f)
	}
	return Parse(f)
}

// IsJSONPath reports whether path names a JSON graph file.
func IsJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Sniff reports whether data looks like a JSON document rather than
// flowchart text.
func Sniff(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Load decodes data as JSON or flowchart text, whichever [Sniff] reports.
func Load(data []byte) (*Graph, error) {
	if Sniff(data) {
		return ReadJSON(bytes.NewReader(data))
	}
	return Parse(bytes.NewReader(data))
}
