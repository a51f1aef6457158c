package dot

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/flowchart"
	"github.com/matzehuels/stackflow/pkg/layout"
)

const pointsPerInch = 72

// ToDOT converts a layout to Graphviz DOT with pinned node positions.
func ToDOT(l *layout.Layout) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir(l.Direction))
	fmt.Fprintf(&buf, "  bb=\"0,0,%s,%s\";\n", num(l.Width), num(l.Height))
	buf.WriteString("  node [fixedsize=true];\n")
	buf.WriteString("\n")

	for _, id := range orderedIDs(l) {
		n := l.Nodes[id]
		fmt.Fprintf(&buf, "  %s [%s];\n", quote(n.ID), nodeAttrs(l, n))
	}

	// The first segment of a split edge carries its label.
	firstSegment := make(map[string]string)
	for _, e := range l.Original {
		if len(e.DummyNodes) > 0 {
			firstSegment[e.DummyNodes[0]] = e.Label
		}
	}

	buf.WriteString("\n")
	for _, e := range l.Edges {
		var attrs []string
		label := e.Label
		if to := l.Nodes[e.To]; to != nil && to.Dummy {
			attrs = append(attrs, "arrowhead=none")
			label = firstSegment[e.To]
		}
		if label != "" {
			attrs = append(attrs, "label="+quote(label))
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %s -> %s;\n", quote(e.From), quote(e.To))
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", quote(e.From), quote(e.To), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// orderedIDs lists node ids rank by rank, in order within each rank.
func orderedIDs(l *layout.Layout) []string {
	ids := make([]string, 0, len(l.Nodes))
	for r := 0; r <= l.MaxRank(); r++ {
		ids = append(ids, l.Ranks[r]...)
	}
	return ids
}

func nodeAttrs(l *layout.Layout, n *layout.Node) string {
	pos := fmt.Sprintf("pos=\"%s,%s!\"", num(n.X), num(l.Height-n.Y))
	if n.Dummy {
		return "shape=point, width=0, height=0, label=\"\", " + pos
	}
	shape, style := shapeAttrs(n.Shape)
	attrs := fmt.Sprintf("label=%s, shape=%s, width=%s, height=%s, %s",
		quote(n.Label), shape, num(n.Width/pointsPerInch), num(n.Height/pointsPerInch), pos)
	if style != "" {
		attrs += ", style=" + quote(style)
	}
	return attrs
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote makes a DOT quoted string. DOT only understands escaped quotes and
// backslashes, so every other character is written as is.
func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

func shapeAttrs(s flowchart.Shape) (shape, style string) {
	switch s {
	case flowchart.ShapeRound, flowchart.ShapeStadium:
		return "box", "rounded"
	case flowchart.ShapeCircle:
		return "circle", ""
	case flowchart.ShapeDiamond:
		return "diamond", ""
	case flowchart.ShapeHexagon:
		return "hexagon", ""
	default:
		return "box", ""
	}
}

func rankdir(d flowchart.Direction) string {
	if d == flowchart.TopDown || d == "" {
		return "TB"
	}
	return string(d)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Validate parses DOT source with Graphviz and reports syntax errors.
func Validate(ctx context.Context, src string) error {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(src))
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidSyntax, err, "parse DOT")
	}
	defer g.Close()
	return nil
}
