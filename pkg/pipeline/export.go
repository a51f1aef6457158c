package pipeline

import (
	"context"

	"github.com/matzehuels/stackflow/pkg/export/dot"
	"github.com/matzehuels/stackflow/pkg/layout"
)

// =============================================================================
// Export
// =============================================================================

// Export encodes l in every format listed in opts.Formats.
func Export(ctx context.Context, l *layout.Layout, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForExport(); err != nil {
		return nil, err
	}
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := ExportFormat(ctx, l, format, opts)
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// ExportFormat encodes l in a single format. DOT output is parsed back
// with Graphviz before it is returned.
func ExportFormat(ctx context.Context, l *layout.Layout, format string, opts Options) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	switch format {
	case FormatDOT:
		src := dot.ToDOT(l)
		if err := dot.Validate(ctx, src); err != nil {
			return nil, err
		}
		return []byte(src), nil
	default:
		return layout.Marshal(l, opts.JSONOptions()...)
	}
}
