package layout

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/flowchart"
)

const scenario = `graph TD
    A[Start] --> B{Is it?}
    B -->|Yes| C[OK]
    B -->|No| D[End]
    C --> D
    C --> E[Rethink]
    E --> B`

func mustParse(t *testing.T, src string) *flowchart.Graph {
	t.Helper()
	g, err := flowchart.ParseString(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return g
}

func mustBuild(t *testing.T, g *flowchart.Graph, opts ...Option) *Layout {
	t.Helper()
	l, err := Build(g, opts...)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	checkInvariants(t, l)
	return l
}

// checkInvariants verifies the structural guarantees every built layout
// must satisfy.
func checkInvariants(t *testing.T, l *Layout) {
	t.Helper()

	seen := make(map[string]int)
	for r, ids := range l.Ranks {
		for i, id := range ids {
			seen[id]++
			n, ok := l.Nodes[id]
			if !ok {
				t.Errorf("rank %d lists unknown node %q", r, id)
				continue
			}
			if n.Rank != r {
				t.Errorf("node %q: Rank = %d but listed in rank %d", id, n.Rank, r)
			}
			if n.Order != i {
				t.Errorf("node %q: Order = %d, want %d", id, n.Order, i)
			}
		}
	}
	for id := range l.Nodes {
		if seen[id] != 1 {
			t.Errorf("node %q appears %d times in Ranks, want 1", id, seen[id])
		}
	}
	for _, e := range l.Edges {
		if span := e.Span(l); span > 1 || span < -1 {
			t.Errorf("working edge %s->%s spans %d ranks", e.From, e.To, span)
		}
	}
}

func TestBuild_Scenario(t *testing.T) {
	l := mustBuild(t, mustParse(t, scenario))

	wantRanks := map[string]int{"A": 0, "B": 1, "C": 2, "D": 3, "E": 3}
	for id, want := range wantRanks {
		if got := l.Nodes[id].Rank; got != want {
			t.Errorf("rank(%s) = %d, want %d", id, got, want)
		}
	}

	var back *Edge
	for _, e := range l.Original {
		if e.From == "E" && e.To == "B" {
			back = e
		}
	}
	if back == nil {
		t.Fatal("edge E->B missing from Original")
	}
	if len(back.DummyNodes) != 1 {
		t.Fatalf("E->B DummyNodes = %v, want exactly one", back.DummyNodes)
	}
	d := l.Nodes[back.DummyNodes[0]]
	if !d.Dummy || d.Rank != 2 || d.Width != 0 || d.Height != 0 || d.Label != "" {
		t.Errorf("E->B dummy = %+v, want zero-sized dummy at rank 2", d)
	}
	if len(back.Points) != 3 {
		t.Errorf("E->B has %d route points, want 3", len(back.Points))
	}

	if l.Stats.Dummies != 2 {
		t.Errorf("Stats.Dummies = %d, want 2 (B->D and E->B)", l.Stats.Dummies)
	}
	if l.Stats.CrossingsBefore != 1 || l.Stats.CrossingsAfter != 0 {
		t.Errorf("crossings %d -> %d, want 1 -> 0", l.Stats.CrossingsBefore, l.Stats.CrossingsAfter)
	}
	if l.Stats.FallbackRoot != "" || len(l.Stats.Unreached) != 0 {
		t.Errorf("unexpected recoveries: %+v", l.Stats)
	}
}

func TestBuild_ScenarioCoordinates(t *testing.T) {
	l := mustBuild(t, mustParse(t, scenario))

	tests := []struct {
		id   string
		x, y float64
	}{
		{"A", 960, 210},
		{"B", 960, 430},
		{"C", 960, 650},
		{"D", 885, 870},
		{"E", 1035, 870},
	}
	for _, tt := range tests {
		n := l.Nodes[tt.id]
		if n.X != tt.x || n.Y != tt.y {
			t.Errorf("%s at (%g, %g), want (%g, %g)", tt.id, n.X, n.Y, tt.x, tt.y)
		}
	}
	if w := l.Nodes["A"].Width; w != 90 {
		t.Errorf("A width = %g, want 90", w)
	}
	if h := l.Nodes["A"].Height; h != NodeHeight {
		t.Errorf("A height = %g, want %d", h, NodeHeight)
	}
}

func TestBuild_Empty(t *testing.T) {
	l := mustBuild(t, flowchart.New(flowchart.LeftRight))
	if len(l.Nodes) != 0 || len(l.Ranks) != 0 || len(l.Edges) != 0 {
		t.Errorf("got %d nodes, %d ranks, %d edges; want all zero", len(l.Nodes), len(l.Ranks), len(l.Edges))
	}
	if l.MaxRank() != -1 {
		t.Errorf("MaxRank() = %d, want -1", l.MaxRank())
	}
}

func TestBuild_SingleNodeCentered(t *testing.T) {
	g := flowchart.New(flowchart.TopDown)
	_ = g.AddNode(flowchart.Node{ID: "solo", Label: "solo"})
	l := mustBuild(t, g)

	n := l.Nodes["solo"]
	if n.X != DefaultWidth/2 || n.Y != DefaultHeight/2 {
		t.Errorf("solo at (%g, %g), want canvas center", n.X, n.Y)
	}
}

func TestBuild_InvalidOptions(t *testing.T) {
	g := mustParse(t, "A --> B")
	tests := []struct {
		name string
		opt  Option
	}{
		{"canvas inside margin", WithCanvas(150, 600)},
		{"negative margin", WithMargin(-1)},
		{"zero node spacing", WithNodeSpacing(0)},
		{"zero rank spacing", WithRankSpacing(0)},
		{"negative passes", WithMaxPasses(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(g, tt.opt)
			if !apperr.Is(err, apperr.ErrCodeInvalidConfig) {
				t.Errorf("Build() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestBuild_NilGraph(t *testing.T) {
	if _, err := Build(nil); !apperr.Is(err, apperr.ErrCodeInvalidGraph) {
		t.Errorf("Build(nil) error = %v, want INVALID_GRAPH", err)
	}
}

func TestBuild_RankMonotonicity(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		g := randomForest(seed, 24)
		l := mustBuild(t, g)
		for _, e := range l.Original {
			if l.Nodes[e.To].Rank != l.Nodes[e.From].Rank+1 {
				t.Errorf("seed %d: edge %s->%s goes from rank %d to %d",
					seed, e.From, e.To, l.Nodes[e.From].Rank, l.Nodes[e.To].Rank)
			}
		}
	}

	// Diamond: D is reached first through B, C adds an equal-length path.
	l := mustBuild(t, mustParse(t, "A --> B\nA --> C\nB --> D\nC --> D"))
	for _, e := range l.Original {
		if l.Nodes[e.To].Rank <= l.Nodes[e.From].Rank {
			t.Errorf("diamond edge %s->%s not descending", e.From, e.To)
		}
	}
}

func TestAssignRanks_VisitOnce(t *testing.T) {
	// B is fixed at rank 1 by A->B. The longer path A->D->E->B found later
	// does not move it, so E->B points up one rank.
	l := mustBuild(t, mustParse(t, "A --> B --> C\nA --> D --> E --> B"))

	want := map[string]int{"A": 0, "B": 1, "C": 2, "D": 1, "E": 2}
	for id, r := range want {
		if got := l.Nodes[id].Rank; got != r {
			t.Errorf("rank(%s) = %d, want %d", id, got, r)
		}
	}
}

func TestBuild_CrossingsNonIncreasing(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		g := randomGraph(seed, 16, 30)
		l := mustBuild(t, g)
		if l.Stats.CrossingsAfter > l.Stats.CrossingsBefore {
			t.Errorf("seed %d: crossings rose from %d to %d", seed, l.Stats.CrossingsBefore, l.Stats.CrossingsAfter)
		}
		if got := TotalCrossings(l); got != l.Stats.CrossingsAfter {
			t.Errorf("seed %d: TotalCrossings() = %d, Stats.CrossingsAfter = %d", seed, got, l.Stats.CrossingsAfter)
		}
	}
}

func TestBuild_CanvasContainment(t *testing.T) {
	wide := flowchart.New(flowchart.TopDown)
	_ = wide.AddNode(flowchart.Node{ID: "root", Label: "root"})
	for i := range 25 {
		id := fmt.Sprintf("leaf%d", i)
		_ = wide.AddNode(flowchart.Node{ID: id, Label: strings.Repeat("w", i*4)})
		_ = wide.AddEdge(flowchart.Edge{From: "root", To: id})
	}

	graphs := map[string]*flowchart.Graph{
		"scenario": mustParse(t, scenario),
		"wide":     wide,
		"random":   randomGraph(7, 20, 35),
	}
	canvases := [][2]float64{{1920, 1080}, {640, 360}, {300, 300}}

	for name, g := range graphs {
		for _, dir := range []flowchart.Direction{flowchart.TopDown, flowchart.BottomUp, flowchart.LeftRight, flowchart.RightLeft} {
			for _, c := range canvases {
				g.Direction = dir
				l := mustBuild(t, g, WithCanvas(c[0], c[1]))
				for _, n := range l.Nodes {
					if n.X-n.Width/2 < DefaultMargin-1e-9 || n.X+n.Width/2 > c[0]-DefaultMargin+1e-9 ||
						n.Y-n.Height/2 < DefaultMargin-1e-9 || n.Y+n.Height/2 > c[1]-DefaultMargin+1e-9 {
						t.Errorf("%s %s %gx%g: node %s box (%g,%g %gx%g) leaves the canvas",
							name, dir, c[0], c[1], n.ID, n.X, n.Y, n.Width, n.Height)
					}
				}
			}
		}
	}
}

func TestBuild_DirectionSymmetry(t *testing.T) {
	tests := []struct {
		a, b     flowchart.Direction
		vertical bool
	}{
		{flowchart.TopDown, flowchart.BottomUp, true},
		{flowchart.LeftRight, flowchart.RightLeft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.a)+"/"+string(tt.b), func(t *testing.T) {
			g := mustParse(t, scenario)
			g.Direction = tt.a
			la := mustBuild(t, g)
			g.Direction = tt.b
			lb := mustBuild(t, g)

			for id, na := range la.Nodes {
				nb := lb.Nodes[id]
				if tt.vertical {
					if na.X != nb.X || !near(na.Y, DefaultHeight-nb.Y) {
						t.Errorf("%s: %s (%g,%g) vs %s (%g,%g)", id, tt.a, na.X, na.Y, tt.b, nb.X, nb.Y)
					}
				} else if na.Y != nb.Y || !near(na.X, DefaultWidth-nb.X) {
					t.Errorf("%s: %s (%g,%g) vs %s (%g,%g)", id, tt.a, na.X, na.Y, tt.b, nb.X, nb.Y)
				}
			}
		})
	}
}

func TestBuild_LeftRightAxes(t *testing.T) {
	g := mustParse(t, "graph LR\nA --> B --> C")
	l := mustBuild(t, g)

	a, b, c := l.Nodes["A"], l.Nodes["B"], l.Nodes["C"]
	if !(a.X < b.X && b.X < c.X) {
		t.Errorf("x = %g, %g, %g; want increasing", a.X, b.X, c.X)
	}
	if a.Y != b.Y || b.Y != c.Y {
		t.Errorf("y = %g, %g, %g; want equal", a.Y, b.Y, c.Y)
	}
	if b.X-a.X != DefaultRankSpacing {
		t.Errorf("rank gap = %g, want %d", b.X-a.X, DefaultRankSpacing)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	g := randomGraph(42, 18, 30)
	first, err := Marshal(mustBuild(t, g), WithDummies())
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		again, _ := Marshal(mustBuild(t, g), WithDummies())
		if string(again) != string(first) {
			t.Fatal("Build() produced different layouts for the same input")
		}
	}
}

func TestLabelWidth(t *testing.T) {
	tests := []struct {
		label string
		want  float64
	}{
		{"", MinNodeWidth},
		{"OK", MinNodeWidth},
		{"Start", 90},
		{"Rethink", 110},
		{"日本語", 100}, // three double-width runes
	}
	for _, tt := range tests {
		if got := LabelWidth(tt.label); got != tt.want {
			t.Errorf("LabelWidth(%q) = %g, want %g", tt.label, got, tt.want)
		}
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// randomForest returns a forest: every node but the roots has exactly one
// parent declared before it.
func randomForest(seed int64, nodes int) *flowchart.Graph {
	rng := rand.New(rand.NewSource(seed))
	g := flowchart.New(flowchart.TopDown)
	for i := range nodes {
		_ = g.AddNode(flowchart.Node{ID: fmt.Sprintf("n%d", i), Label: fmt.Sprintf("node %d", i)})
		if i > 0 && rng.Intn(5) > 0 {
			_ = g.AddEdge(flowchart.Edge{From: fmt.Sprintf("n%d", rng.Intn(i)), To: fmt.Sprintf("n%d", i)})
		}
	}
	return g
}

// randomGraph returns a graph that may contain cycles and self loops.
func randomGraph(seed int64, nodes, edges int) *flowchart.Graph {
	rng := rand.New(rand.NewSource(seed))
	g := flowchart.New(flowchart.TopDown)
	for i := range nodes {
		_ = g.AddNode(flowchart.Node{ID: fmt.Sprintf("n%d", i)})
	}
	for range edges {
		a, b := rng.Intn(nodes), rng.Intn(nodes)
		_ = g.AddEdge(flowchart.Edge{From: fmt.Sprintf("n%d", a), To: fmt.Sprintf("n%d", b)})
	}
	return g
}
