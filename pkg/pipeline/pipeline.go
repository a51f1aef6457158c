// Package pipeline provides the parse → layout → export pipeline shared by
// the CLI and the HTTP service.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Parse: Read flowchart text or graph JSON into a flowchart.Graph
//  2. Layout: Rank, normalize, order and place the graph
//  3. Export: Encode the layout in the requested formats (json, dot)
//
// Layouts and exports are cached through a [cache.Cache]. Each stage can
// also be run on its own.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Source:  "A --> B\nB --> C",
//	    Formats: []string{"json", "dot"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dot := result.Artifacts["dot"]
//
// Run individual stages:
//
//	g, err := pipeline.Parse(opts)
//	l, hit, err := runner.GenerateLayoutWithCacheInfo(ctx, g, opts)
//	artifacts, hit, err := runner.ExportWithCacheInfo(ctx, l, opts)
package pipeline

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackflow/pkg/cache"
	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/flowchart"
	"github.com/matzehuels/stackflow/pkg/layout"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	DefaultWidth       = float64(layout.DefaultWidth)
	DefaultHeight      = float64(layout.DefaultHeight)
	DefaultNodeSpacing = float64(layout.DefaultNodeSpacing)
	DefaultRankSpacing = float64(layout.DefaultRankSpacing)
	DefaultMargin      = float64(layout.DefaultMargin)
	DefaultMaxPasses   = layout.DefaultMaxPasses
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
//
// Zero values select the defaults above. MaxPasses below zero disables
// crossing minimization.
type Options struct {
	// Parse options
	Source    string `json:"source,omitempty"`    // Flowchart text or graph JSON
	Direction string `json:"direction,omitempty"` // Overrides the source's direction
	Refresh   bool   `json:"refresh,omitempty"`   // Ignore cached entries

	// Layout options
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	NodeSpacing float64 `json:"node_spacing,omitempty"`
	RankSpacing float64 `json:"rank_spacing,omitempty"`
	Margin      float64 `json:"margin,omitempty"`
	MaxPasses   int     `json:"max_passes,omitempty"`

	// Export options
	Formats []string `json:"formats,omitempty"`
	Dummies bool     `json:"dummies,omitempty"` // Keep dummy nodes in JSON output

	// Runtime options (not serialized)
	Logger *log.Logger      `json:"-"`
	Graph  *flowchart.Graph `json:"-"` // Pre-parsed graph, used instead of Source

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the parsed flowchart.
	Graph *flowchart.Graph

	// GraphHash is the content hash of the graph's JSON form.
	GraphHash string

	// Layout is the computed layout.
	Layout *layout.Layout

	// Artifacts contains exported outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	RankCount  int
	ParseTime  time.Duration
	LayoutTime time.Duration
	ExportTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	ExportHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return apperr.New(apperr.ErrCodeUnsupported, "invalid format: %q (must be one of: %s, %s)", format, FormatJSON, FormatDOT)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated format list, dropping blanks.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(strings.ToLower(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForParse(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForExport(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForParse checks required fields for parsing.
func (o *Options) ValidateForParse() error {
	if o.Graph == nil && strings.TrimSpace(o.Source) == "" {
		return apperr.New(apperr.ErrCodeInvalidInput, "source is required")
	}
	if o.Direction != "" {
		if _, err := flowchart.ParseDirection(o.Direction); err != nil {
			return err
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.NodeSpacing == 0 {
		o.NodeSpacing = DefaultNodeSpacing
	}
	if o.RankSpacing == 0 {
		o.RankSpacing = DefaultRankSpacing
	}
	if o.Margin == 0 {
		o.Margin = DefaultMargin
	}
	if o.MaxPasses == 0 {
		o.MaxPasses = DefaultMaxPasses
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	return o.LayoutOptions().Validate()
}

// SetExportDefaults sets default values for export.
func (o *Options) SetExportDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForExport validates and sets defaults for export.
func (o *Options) ValidateForExport() error {
	o.SetExportDefaults()
	return ValidateFormats(o.Formats)
}

// LayoutOptions converts the layout fields to engine options.
func (o *Options) LayoutOptions() layout.Options {
	return layout.Options{
		Width:       o.Width,
		Height:      o.Height,
		NodeSpacing: o.NodeSpacing,
		RankSpacing: o.RankSpacing,
		Margin:      o.Margin,
		MaxPasses:   max(o.MaxPasses, 0),
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	lo := o.LayoutOptions()
	return cache.LayoutKeyOpts{
		Width:       lo.Width,
		Height:      lo.Height,
		NodeSpacing: lo.NodeSpacing,
		RankSpacing: lo.RankSpacing,
		Margin:      lo.Margin,
		MaxPasses:   lo.MaxPasses,
	}
}

// ExportKeyOpts returns cache key options for one export format.
func (o *Options) ExportKeyOpts(format string) cache.ExportKeyOpts {
	return cache.ExportKeyOpts{
		Format:  format,
		Dummies: o.Dummies && format == FormatJSON,
	}
}

// JSONOptions returns the encoder options for JSON exports.
func (o *Options) JSONOptions() []layout.JSONOption {
	if o.Dummies {
		return []layout.JSONOption{layout.WithDummies()}
	}
	return nil
}
