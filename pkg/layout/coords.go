package layout

import "github.com/mattn/go-runewidth"

// Node sizing, in pixels.
const (
	MinNodeWidth = 80
	NodeHeight   = 80
	CharWidth    = 10 // per display column of the label
	TextPadding  = 20 // on each side of the label
)

// AssignCoordinates converts rank and order into canvas positions and
// routes every edge.
//
// Ranks advance along the primary axis: downward for TD, upward for BT,
// rightward for LR and leftward for RL. The gap between ranks is
// o.RankSpacing, shrunk if the ranks would not fit, and the ranks are
// centered on the usable extent. Along the secondary axis each rank is
// centered as a group with a gap of o.NodeSpacing, shrunk so the widest
// rank fits. A rank holding one node sits on the midline.
//
// Real nodes are sized from their label's display width; dummies stay
// zero-sized. Centers are clamped so every bounding box stays inside the
// margin.
//
// Each working edge is routed straight from source to target. Original
// edges that were split get the full polyline through their dummies.
func AssignCoordinates(l *Layout, o Options) {
	if len(l.Ranks) == 0 {
		return
	}

	usableW := l.Width - 2*o.Margin
	usableH := l.Height - 2*o.Margin

	primaryExtent, secondaryExtent := usableH, usableW
	if !l.Direction.Vertical() {
		primaryExtent, secondaryExtent = usableW, usableH
	}

	maxRank := l.MaxRank()
	rankGap := min(o.RankSpacing, primaryExtent/float64(maxRank+1))
	rankStart := o.Margin + (primaryExtent-float64(maxRank)*rankGap)/2

	nodeGap := min(o.NodeSpacing, secondaryExtent/float64(l.MaxRankSize()))

	for r, ids := range l.Ranks {
		p := rankStart + float64(r)*rankGap
		if l.Direction.Reversed() {
			if l.Direction.Vertical() {
				p = l.Height - p
			} else {
				p = l.Width - p
			}
		}

		span := float64(len(ids)-1) * nodeGap
		s0 := o.Margin + (secondaryExtent-span)/2
		for i, id := range ids {
			n := l.Nodes[id]
			s := s0 + float64(i)*nodeGap
			if l.Direction.Vertical() {
				n.X, n.Y = s, p
			} else {
				n.X, n.Y = p, s
			}
			sizeNode(n, usableW, usableH)
			n.X = clamp(n.X, o.Margin+n.Width/2, l.Width-o.Margin-n.Width/2)
			n.Y = clamp(n.Y, o.Margin+n.Height/2, l.Height-o.Margin-n.Height/2)
		}
	}

	routeEdges(l)
}

// LabelWidth returns the width of a node showing label, before capping to
// the canvas.
func LabelWidth(label string) float64 {
	return max(MinNodeWidth, float64(runewidth.StringWidth(label)*CharWidth+2*TextPadding))
}

func sizeNode(n *Node, maxW, maxH float64) {
	if n.Dummy {
		n.Width, n.Height = 0, 0
		return
	}
	n.Width = min(LabelWidth(n.Label), maxW)
	n.Height = min(NodeHeight, maxH)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

func routeEdges(l *Layout) {
	center := func(id string) Point {
		n := l.Nodes[id]
		return Point{X: n.X, Y: n.Y}
	}
	for _, e := range l.Edges {
		e.Points = []Point{center(e.From), center(e.To)}
	}
	for _, e := range l.Original {
		if len(e.DummyNodes) == 0 {
			continue
		}
		pts := make([]Point, 0, len(e.DummyNodes)+2)
		pts = append(pts, center(e.From))
		for _, id := range e.DummyNodes {
			pts = append(pts, center(id))
		}
		e.Points = append(pts, center(e.To))
	}
}
