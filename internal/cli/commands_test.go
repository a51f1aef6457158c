package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/flowchart"
	"github.com/matzehuels/stackflow/pkg/layout"
)

const scenario = "A --> B\nB --> C\nB --> D\nC --> E\nE --> B\n"

// isolate points the XDG directories at fresh temp dirs so that tests never
// read a real config file or share a cache.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "chart.mmd", scenario)

	if _, _, err := runCLI(t, "", "parse", input); err != nil {
		t.Fatalf("parse: %v", err)
	}

	g, err := flowchart.ReadFile(filepath.Join(dir, "chart.graph.json"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if g.NodeCount() != 5 || g.EdgeCount() != 5 {
		t.Errorf("graph has %d nodes, %d edges; want 5, 5", g.NodeCount(), g.EdgeCount())
	}
}

func TestParseCommand_Stdin(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLI(t, "graph LR\n"+scenario, "parse", "-")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var doc flowchart.Document
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("stdout is not graph JSON: %v\n%s", err, stdout)
	}
	if doc.Direction != flowchart.LeftRight {
		t.Errorf("direction = %q, want LR", doc.Direction)
	}
	if len(doc.Nodes) != 5 {
		t.Errorf("got %d nodes, want 5", len(doc.Nodes))
	}
}

func TestParseCommand_DirectionOverride(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLI(t, scenario, "parse", "-", "-d", "RL")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(stdout, `"direction": "RL"`) {
		t.Errorf("direction not overridden:\n%s", stdout)
	}
}

func TestParseCommand_Errors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	tests := []struct {
		name  string
		stdin string
		args  []string
		code  apperr.Code
	}{
		{"syntax", "a -->", []string{"parse", "-"}, apperr.ErrCodeInvalidSyntax},
		{"direction", scenario, []string{"parse", "-", "-d", "XX"}, apperr.ErrCodeInvalidDirection},
		{"missing file", "", []string{"parse", filepath.Join(dir, "nope.mmd")}, apperr.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.stdin, tt.args...)
			if !apperr.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLayoutCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "chart.mmd", scenario)

	_, stderr, err := runCLI(t, "", "layout", input, "-f", "json,dot")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if !strings.Contains(stderr, "fresh") {
		t.Errorf("first run should be computed:\n%s", stderr)
	}

	l, err := layout.ReadFile(filepath.Join(dir, "chart.layout.json"))
	if err != nil {
		t.Fatalf("read layout: %v", err)
	}
	a := l.Nodes["A"]
	if a == nil || a.X != 960 || a.Y != 210 {
		t.Errorf("A = %+v, want center (960, 210)", a)
	}
	if got := l.MaxRank(); got != 3 {
		t.Errorf("MaxRank() = %d, want 3", got)
	}

	dotSrc, err := os.ReadFile(filepath.Join(dir, "chart.dot"))
	if err != nil {
		t.Fatalf("read dot: %v", err)
	}
	if !strings.HasPrefix(string(dotSrc), "digraph G {") {
		t.Errorf("unexpected DOT output:\n%s", dotSrc)
	}

	_, stderr, err = runCLI(t, "", "layout", input, "-f", "json,dot")
	if err != nil {
		t.Fatalf("second layout: %v", err)
	}
	if !strings.Contains(stderr, "cached") {
		t.Errorf("second run should hit the cache:\n%s", stderr)
	}
}

func TestLayoutCommand_NoCache(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "chart.mmd", scenario)

	for i := 0; i < 2; i++ {
		_, stderr, err := runCLI(t, "", "layout", input, "--no-cache")
		if err != nil {
			t.Fatalf("layout: %v", err)
		}
		if strings.Contains(stderr, "cached") {
			t.Errorf("run %d hit the cache with --no-cache", i)
		}
	}
}

func TestLayoutCommand_Stdout(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLI(t, scenario, "layout", "-", "--dummies", "--width", "800", "--height", "600")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}

	var doc layout.Document
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("stdout is not layout JSON: %v", err)
	}
	if doc.Width != 800 || doc.Height != 600 {
		t.Errorf("canvas = %vx%v, want 800x600", doc.Width, doc.Height)
	}
	if _, ok := doc.Nodes["dummy_0"]; !ok {
		t.Error("--dummies output has no dummy_0")
	}
	if len(doc.Segments) == 0 {
		t.Error("--dummies output has no segments")
	}
}

func TestLayoutCommand_Errors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		code apperr.Code
	}{
		{"bad format", []string{"layout", "-", "-f", "svg"}, apperr.ErrCodeUnsupported},
		{"formats from stdin", []string{"layout", "-", "-f", "json,dot"}, apperr.ErrCodeInvalidInput},
		{"formats to stdout", []string{"layout", "-", "-f", "json,dot", "-o", "-"}, apperr.ErrCodeInvalidInput},
		{"bad width", []string{"layout", "-", "--width=-5"}, apperr.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, scenario, tt.args...)
			if !apperr.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		output  string
		formats []string
		want    map[string]string
	}{
		{"default json", "c.mmd", "", []string{"json"}, map[string]string{"json": "c.layout.json"}},
		{"default dot", "c.mmd", "", []string{"dot"}, map[string]string{"dot": "c.dot"}},
		{"explicit", "c.mmd", "out.json", []string{"json"}, map[string]string{"json": "out.json"}},
		{"stdin", "-", "", []string{"json"}, map[string]string{"json": "-"}},
		{"several", "c.mmd", "", []string{"json", "dot"}, map[string]string{"json": "c.layout.json", "dot": "c.dot"}},
		{"several with base", "c.mmd", "out/x.txt", []string{"json", "dot"}, map[string]string{"json": "out/x.layout.json", "dot": "out/x.dot"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := outputPaths(tt.input, tt.output, tt.formats)
			if err != nil {
				t.Fatalf("outputPaths() error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("outputPaths() = %v, want %v", got, tt.want)
			}
			for f, p := range tt.want {
				if got[f] != p {
					t.Errorf("outputPaths()[%s] = %q, want %q", f, got[f], p)
				}
			}
		})
	}
}

func TestDOTCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "chart.mmd", "graph LR\n"+scenario)

	if _, _, err := runCLI(t, "", "layout", input, "--dummies"); err != nil {
		t.Fatalf("layout: %v", err)
	}

	stdout, _, err := runCLI(t, "", "dot", filepath.Join(dir, "chart.layout.json"), "-o", "-")
	if err != nil {
		t.Fatalf("dot: %v", err)
	}
	for _, want := range []string{"digraph G {", "rankdir=LR;", "shape=point", `"A" -> "B"`} {
		if !strings.Contains(stdout, want) {
			t.Errorf("DOT output missing %q:\n%s", want, stdout)
		}
	}
}

func TestDOTCommand_File(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "chart.mmd", scenario)

	if _, _, err := runCLI(t, "", "layout", input); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if _, _, err := runCLI(t, "", "dot", filepath.Join(dir, "chart.layout.json")); err != nil {
		t.Fatalf("dot: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "chart.layout.dot")); err != nil {
		t.Errorf("dot output not written: %v", err)
	}
}

func TestDOTCommand_BadInput(t *testing.T) {
	isolate(t)

	_, _, err := runCLI(t, "not json", "dot", "-")
	if !apperr.Is(err, apperr.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestCacheCommands(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "chart.mmd", scenario)

	stdout, _, err := runCLI(t, "", "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	want := filepath.Join(os.Getenv("XDG_CACHE_HOME"), appName)
	if strings.TrimSpace(stdout) != want {
		t.Errorf("cache path = %q, want %q", strings.TrimSpace(stdout), want)
	}

	_, stderr, err := runCLI(t, "", "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(stderr, "Cache is empty") {
		t.Errorf("clear on a missing cache: %q", stderr)
	}

	if _, _, err := runCLI(t, "", "layout", input); err != nil {
		t.Fatalf("layout: %v", err)
	}
	_, stderr, err = runCLI(t, "", "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	// One layout entry and one JSON export entry.
	if !strings.Contains(stderr, "Cleared 2 cached entries") {
		t.Errorf("clear output: %q", stderr)
	}
}

func TestCompletionCommand(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLI(t, "", "completion", "bash")
	if err != nil {
		t.Fatalf("completion: %v", err)
	}
	if !strings.Contains(stdout, appName) {
		t.Error("bash completion does not mention the command")
	}

	if _, _, err := runCLI(t, "", "completion", "tcsh"); err == nil {
		t.Error("completion accepted an unknown shell")
	}
}

func TestExampleFlowcharts(t *testing.T) {
	isolate(t)
	files, err := filepath.Glob(filepath.Join("..", "..", "examples", "*.mmd"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no example flowcharts found")
	}

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			g, err := flowchart.ReadFile(path)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}

			stdout, _, err := runCLI(t, "", "layout", path, "--no-cache", "-o", "-")
			if err != nil {
				t.Fatalf("layout: %v", err)
			}
			l, err := layout.Unmarshal([]byte(stdout))
			if err != nil {
				t.Fatalf("decode layout: %v", err)
			}
			if len(l.Nodes) != g.NodeCount() {
				t.Errorf("layout has %d nodes, graph has %d", len(l.Nodes), g.NodeCount())
			}
			for _, n := range l.Nodes {
				if n.X < 0 || n.X > l.Width || n.Y < 0 || n.Y > l.Height {
					t.Errorf("node %s at (%g, %g) is off the canvas", n.ID, n.X, n.Y)
				}
			}

			if _, _, err := runCLI(t, stdout, "dot", "-", "-o", "-"); err != nil {
				t.Errorf("dot: %v", err)
			}
		})
	}
}
