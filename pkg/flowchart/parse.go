package flowchart

import (
	"bufio"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
)

// Parse reads a Mermaid-style flowchart description and builds a Graph.
//
// Supported syntax:
//
//	graph TD                 header; "flowchart" works too, direction optional
//	%% comment               ignored
//	A[Start] --> B{Check}    nodes with shapes, joined by an edge
//	B -->|yes| C((Done))     labeled edge
//	B -- no --> D            labeled edge, alternative form
//	A --> B --> C            chains
//	X([Standalone])          bare declaration
//
// Shapes: id (default), id[..] and id[[..]] (square), id(..) (round),
// id((..)) (circle), id([..]) (stadium), id{..} (diamond), id{{..}}
// (hexagon). Text may be wrapped in double quotes. "==>" and "-.->" are
// accepted as edges; their line style is not kept.
//
// A node first referenced without a shape takes its ID as label. A later
// explicit shape on the same ID replaces label and shape.
// Statements may be separated by newlines or semicolons.
func Parse(r io.Reader) (*Graph, error) {
	p := &parser{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		p.line++
		if err := p.parseLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "read flowchart")
	}
	if p.g == nil {
		p.g = New(DefaultDirection)
	}
	return p.g, nil
}

// ParseString is a convenience wrapper around [Parse].
func ParseString(s string) (*Graph, error) {
	return Parse(strings.NewReader(s))
}

type parser struct {
	g    *Graph
	line int

	// current statement cursor
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	args = append([]any{p.line}, args...)
	return apperr.New(apperr.ErrCodeInvalidSyntax, "line %d: "+format, args...)
}

func (p *parser) parseLine(raw string) error {
	text := strings.TrimSpace(raw)
	if text == "" || strings.HasPrefix(text, "%%") {
		return nil
	}
	if p.g == nil {
		if dir, ok, err := parseHeader(text); ok {
			if err != nil {
				return p.errorf("%s", apperr.UserMessage(err))
			}
			p.g = New(dir)
			return nil
		}
		p.g = New(DefaultDirection)
	}
	for _, stmt := range splitStatements(text) {
		if err := p.parseStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// parseHeader recognizes "graph [DIR]" and "flowchart [DIR]".
func parseHeader(text string) (Direction, bool, error) {
	fields := strings.Fields(strings.TrimSuffix(text, ";"))
	if len(fields) == 0 || len(fields) > 2 {
		return "", false, nil
	}
	switch strings.ToLower(fields[0]) {
	case "graph", "flowchart":
	default:
		return "", false, nil
	}
	if len(fields) == 1 {
		return DefaultDirection, true, nil
	}
	dir, err := ParseDirection(fields[1])
	return dir, true, err
}

// splitStatements splits on semicolons that are not inside shape text,
// edge labels or quotes.
func splitStatements(text string) []string {
	var (
		out   []string
		depth int
		quote bool
		pipe  bool
		start int
	)
	for i, r := range text {
		switch {
		case r == '"':
			quote = !quote
		case quote:
		case r == '|':
			pipe = !pipe
		case pipe:
		case strings.ContainsRune("[({", r):
			depth++
		case strings.ContainsRune("])}", r):
			depth--
		case r == ';' && depth <= 0:
			out = append(out, text[start:i])
			start = i + 1
		}
	}
	out = append(out, text[start:])
	return out
}

func (p *parser) parseStatement(stmt string) error {
	p.src, p.pos = stmt, 0
	p.skipSpace()
	if p.eof() {
		return nil
	}

	prev, err := p.nodeRef()
	if err != nil {
		return err
	}
	for {
		p.skipSpace()
		if p.eof() {
			return nil
		}
		label, err := p.link()
		if err != nil {
			return err
		}
		p.skipSpace()
		next, err := p.nodeRef()
		if err != nil {
			return err
		}
		if err := p.g.AddEdge(Edge{From: prev, To: next, Label: label}); err != nil {
			return p.errorf("%s", apperr.UserMessage(err))
		}
		prev = next
	}
}

// nodeRef parses an identifier with an optional shape and declares or
// updates the node. It returns the node ID.
func (p *parser) nodeRef() (string, error) {
	id := p.ident()
	if id == "" {
		if p.eof() {
			return "", p.errorf("expected node, found end of line")
		}
		return "", p.errorf("expected node, found %q", p.rest())
	}

	shape, label, explicit, err := p.shape()
	if err != nil {
		return "", err
	}

	if n, ok := p.g.Node(id); ok {
		if explicit {
			n.Shape, n.Label = shape, label
		}
		return id, nil
	}
	if !explicit {
		shape, label = ShapeDefault, id
	}
	if err := p.g.AddNode(Node{ID: id, Label: label, Shape: shape}); err != nil {
		return "", p.errorf("%s", apperr.UserMessage(err))
	}
	return id, nil
}

var shapeDelims = []struct {
	open, close string
	shape       Shape
}{
	// longer openers first
	{"[[", "]]", ShapeSquare},
	{"((", "))", ShapeCircle},
	{"([", "])", ShapeStadium},
	{"{{", "}}", ShapeHexagon},
	{"[", "]", ShapeSquare},
	{"(", ")", ShapeRound},
	{"{", "}", ShapeDiamond},
}

func (p *parser) shape() (Shape, string, bool, error) {
	for _, d := range shapeDelims {
		if !strings.HasPrefix(p.src[p.pos:], d.open) {
			continue
		}
		p.pos += len(d.open)
		text, err := p.until(d.close)
		if err != nil {
			return "", "", false, err
		}
		return d.shape, text, true, nil
	}
	return "", "", false, nil
}

// until reads shape or label text up to the closing delimiter, honoring a
// quoted body.
func (p *parser) until(closer string) (string, error) {
	rest := p.src[p.pos:]
	trimmed := strings.TrimLeft(rest, " \t")
	if strings.HasPrefix(trimmed, `"`) {
		body := trimmed[1:]
		end := strings.IndexByte(body, '"')
		if end < 0 {
			return "", p.errorf("unterminated quoted text")
		}
		after := strings.TrimLeft(body[end+1:], " \t")
		if !strings.HasPrefix(after, closer) {
			return "", p.errorf("expected %q after quoted text", closer)
		}
		p.pos = len(p.src) - len(after) + len(closer)
		return body[:end], nil
	}
	end := strings.Index(rest, closer)
	if end < 0 {
		return "", p.errorf("missing %q", closer)
	}
	p.pos += end + len(closer)
	return strings.TrimSpace(rest[:end]), nil
}

// link parses an edge operator with its optional label and returns the label.
func (p *parser) link() (string, error) {
	rest := p.src[p.pos:]
	var label string
	switch {
	case strings.HasPrefix(rest, "-->"):
		p.pos += 3
	case strings.HasPrefix(rest, "==>"):
		p.pos += 3
	case strings.HasPrefix(rest, "-.->"):
		p.pos += 4
	case strings.HasPrefix(rest, "--"):
		p.pos += 2
		text, err := p.until("-->")
		if err != nil {
			return "", p.errorf("expected \"-->\" to close edge label")
		}
		label = text
	default:
		return "", p.errorf("expected \"-->\", found %q", rest)
	}

	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "|") {
		p.pos++
		text, err := p.until("|")
		if err != nil {
			return "", err
		}
		label = text
	}
	return label, nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if r == '-' {
			// "-" may appear inside an ID but never starts a link.
			next := p.src[p.pos+size:]
			if p.pos == start || strings.HasPrefix(next, "-") || strings.HasPrefix(next, ".") || strings.HasPrefix(next, ">") {
				break
			}
		} else if !isIdentRune(r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == ':' || r == '/'
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) rest() string { return p.src[p.pos:] }
