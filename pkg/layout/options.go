package layout

import apperr "github.com/matzehuels/stackflow/pkg/errors"

// Default canvas and spacing values, in pixels.
const (
	DefaultWidth       = 1920
	DefaultHeight      = 1080
	DefaultNodeSpacing = 150
	DefaultRankSpacing = 250
	DefaultMargin      = 100
	DefaultMaxPasses   = 24
)

// Options controls canvas size, spacing and the crossing search budget.
type Options struct {
	Width       float64 // Canvas width
	Height      float64 // Canvas height
	NodeSpacing float64 // Preferred gap between nodes of one rank
	RankSpacing float64 // Preferred gap between adjacent ranks
	Margin      float64 // Blank border on every canvas side
	MaxPasses   int     // Upper bound on crossing minimization passes
}

// Option configures [Build].
type Option func(*Options)

// DefaultOptions returns the options used when [Build] is called without
// any.
func DefaultOptions() Options {
	return Options{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		NodeSpacing: DefaultNodeSpacing,
		RankSpacing: DefaultRankSpacing,
		Margin:      DefaultMargin,
		MaxPasses:   DefaultMaxPasses,
	}
}

// WithCanvas sets the canvas size.
func WithCanvas(width, height float64) Option {
	return func(o *Options) { o.Width, o.Height = width, height }
}

// WithNodeSpacing sets the preferred gap between nodes within a rank.
func WithNodeSpacing(px float64) Option { return func(o *Options) { o.NodeSpacing = px } }

// WithRankSpacing sets the preferred gap between ranks.
func WithRankSpacing(px float64) Option { return func(o *Options) { o.RankSpacing = px } }

// WithMargin sets the blank border kept on every side of the canvas.
func WithMargin(px float64) Option { return func(o *Options) { o.Margin = px } }

// WithMaxPasses bounds the crossing minimization passes. Zero disables the
// stage.
func WithMaxPasses(n int) Option { return func(o *Options) { o.MaxPasses = n } }

// WithOptions replaces all options at once.
func WithOptions(src Options) Option { return func(o *Options) { *o = src } }

// Validate checks that the options describe a usable canvas.
func (o Options) Validate() error {
	switch {
	case o.Margin < 0:
		return apperr.New(apperr.ErrCodeInvalidConfig, "margin must not be negative (got %g)", o.Margin)
	case o.Width <= 2*o.Margin:
		return apperr.New(apperr.ErrCodeInvalidConfig, "canvas width %g leaves no room inside margin %g", o.Width, o.Margin)
	case o.Height <= 2*o.Margin:
		return apperr.New(apperr.ErrCodeInvalidConfig, "canvas height %g leaves no room inside margin %g", o.Height, o.Margin)
	case o.NodeSpacing <= 0:
		return apperr.New(apperr.ErrCodeInvalidConfig, "node spacing must be positive (got %g)", o.NodeSpacing)
	case o.RankSpacing <= 0:
		return apperr.New(apperr.ErrCodeInvalidConfig, "rank spacing must be positive (got %g)", o.RankSpacing)
	case o.MaxPasses < 0:
		return apperr.New(apperr.ErrCodeInvalidConfig, "max passes must not be negative (got %d)", o.MaxPasses)
	}
	return nil
}
