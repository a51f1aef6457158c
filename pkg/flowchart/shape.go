package flowchart

import (
	"strings"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
)

// Direction is the overall flow orientation of a diagram. It decides which
// canvas axis ranks advance along.
type Direction string

const (
	// TopDown places rank 0 at the top; ranks advance downward.
	TopDown Direction = "TD"
	// BottomUp places rank 0 at the bottom; ranks advance upward.
	BottomUp Direction = "BT"
	// LeftRight places rank 0 on the left; ranks advance rightward.
	LeftRight Direction = "LR"
	// RightLeft places rank 0 on the right; ranks advance leftward.
	RightLeft Direction = "RL"
)

// DefaultDirection is used when a diagram does not declare one.
const DefaultDirection = TopDown

// ParseDirection converts a direction token into a Direction.
// Tokens are case-insensitive. "TB" is accepted as an alias of "TD" and the
// empty string yields [DefaultDirection].
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return DefaultDirection, nil
	case "TD", "TB":
		return TopDown, nil
	case "BT":
		return BottomUp, nil
	case "LR":
		return LeftRight, nil
	case "RL":
		return RightLeft, nil
	}
	return "", apperr.New(apperr.ErrCodeInvalidDirection, "unknown direction %q (must be one of: TD, BT, LR, RL)", s)
}

// Vertical reports whether ranks advance along the vertical axis.
func (d Direction) Vertical() bool { return d != LeftRight && d != RightLeft }

// Reversed reports whether rank 0 sits at the far end of its axis
// (bottom for BT, right for RL).
func (d Direction) Reversed() bool { return d == BottomUp || d == RightLeft }

// Valid reports whether d is one of the four known directions.
func (d Direction) Valid() bool {
	switch d {
	case TopDown, BottomUp, LeftRight, RightLeft:
		return true
	}
	return false
}

// Shape is the node outline requested by the diagram. The layout engine
// treats it as an opaque tag and never looks at shape geometry.
type Shape string

const (
	ShapeDefault Shape = "default"
	ShapeSquare  Shape = "square"
	ShapeRound   Shape = "round"
	ShapeCircle  Shape = "circle"
	ShapeDiamond Shape = "diamond"
	ShapeHexagon Shape = "hexagon"
	ShapeStadium Shape = "stadium"
)

// Shapes lists every supported shape in declaration order.
var Shapes = []Shape{
	ShapeDefault, ShapeSquare, ShapeRound, ShapeCircle,
	ShapeDiamond, ShapeHexagon, ShapeStadium,
}

// ParseShape converts a shape name into a Shape. The empty string yields
// [ShapeDefault].
func ParseShape(s string) (Shape, error) {
	if s == "" {
		return ShapeDefault, nil
	}
	sh := Shape(strings.ToLower(s))
	if !sh.Valid() {
		return "", apperr.New(apperr.ErrCodeInvalidGraph, "unknown shape %q", s)
	}
	return sh, nil
}

// Valid reports whether s is one of the supported shapes.
func (s Shape) Valid() bool {
	for _, known := range Shapes {
		if s == known {
			return true
		}
	}
	return false
}
