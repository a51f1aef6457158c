package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/pipeline"
)

// formatExt maps an export format to the extension of its output file.
var formatExt = map[string]string{
	pipeline.FormatJSON: ".layout.json",
	pipeline.FormatDOT:  ".dot",
}

// layoutFlags holds the command-line flags of the layout command.
type layoutFlags struct {
	output  string
	formats string
	noCache bool
}

// layoutCommand creates the layout command for computing flowchart layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var flags layoutFlags
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "layout <flowchart|->",
		Short: "Compute a layered layout for a flowchart",
		Long: `Compute a layered layout for a flowchart.

The input is flowchart text or graph JSON (as written by 'parse'), read from
a file or from stdin for "-". The layout is written as JSON and, with
-f dot, as a Graphviz file with pinned node positions.

With several formats, -o names the base path and each format gets its own
extension.

Results are cached locally for faster subsequent runs.

Examples:
  stackflow layout chart.mmd                   # Write chart.layout.json
  stackflow layout chart.mmd -f json,dot       # Also write chart.dot
  stackflow layout - -o - < chart.mmd          # Layout JSON on stdout
  stackflow layout chart.mmd --width 800 --height 600 -d LR`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyLayoutConfig(cmd, c.Config.Layout, &opts)
			return c.runLayout(cmd, args[0], opts, flags)
		},
	}

	// Output flags
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", `output file, "-" for stdout (default: <input>.layout.json)`)
	cmd.Flags().StringVarP(&flags.formats, "format", "f", pipeline.FormatJSON, "output formats: json, dot (comma-separated)")
	cmd.Flags().BoolVar(&opts.Dummies, "dummies", false, "keep dummy nodes and edge segments in JSON output")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even when a cached layout exists")

	// Layout flags
	cmd.Flags().Float64Var(&opts.Width, "width", pipeline.DefaultWidth, "canvas width")
	cmd.Flags().Float64Var(&opts.Height, "height", pipeline.DefaultHeight, "canvas height")
	cmd.Flags().Float64Var(&opts.NodeSpacing, "node-spacing", pipeline.DefaultNodeSpacing, "horizontal gap between nodes of a rank")
	cmd.Flags().Float64Var(&opts.RankSpacing, "rank-spacing", pipeline.DefaultRankSpacing, "vertical gap between ranks")
	cmd.Flags().Float64Var(&opts.Margin, "margin", pipeline.DefaultMargin, "canvas margin")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", pipeline.DefaultMaxPasses, "crossing minimization passes (0 disables)")
	cmd.Flags().StringVarP(&opts.Direction, "direction", "d", "", "override the flowchart direction (TD, TB, BT, LR, RL)")

	return cmd
}

// runLayout reads the input, runs the pipeline and writes every artifact.
func (c *CLI) runLayout(cmd *cobra.Command, input string, opts pipeline.Options, flags layoutFlags) error {
	opts.Formats = pipeline.ParseFormats(flags.formats)
	if err := pipeline.ValidateFormats(opts.Formats); err != nil {
		return err
	}
	outputs, err := outputPaths(input, flags.output, opts.Formats)
	if err != nil {
		return err
	}

	src, err := readSource(cmd, input)
	if err != nil {
		return err
	}
	opts.Source = string(src)
	opts.Logger = c.Logger

	runner, err := c.newRunner(flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	ctx := cmd.Context()
	w := cmd.ErrOrStderr()

	spinner := newSpinner(ctx, w, "Computing layout...")
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	for _, format := range opts.Formats {
		if err := writeOutput(cmd, outputs[format], result.Artifacts[format]); err != nil {
			return fmt.Errorf("write %s output: %w", format, err)
		}
	}

	printSuccess(w, "Layout complete")
	for _, format := range opts.Formats {
		if path := outputs[format]; path != "-" {
			printFile(w, path)
		}
	}
	printStats(w, result.Stats.NodeCount, result.Stats.EdgeCount, result.Stats.RankCount, result.CacheInfo.LayoutHit)

	return nil
}

// outputPaths assigns an output path to each format. A single format
// writes to output as given; several formats share a base path.
func outputPaths(input, output string, formats []string) (map[string]string, error) {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 {
		paths[formats[0]] = defaultOutput(input, output, formatExt[formats[0]])
		return paths, nil
	}

	base := output
	if base == "" {
		if input == "-" {
			return nil, apperr.New(apperr.ErrCodeInvalidInput, "--output is required for several formats read from stdin")
		}
		base = input
	}
	if base == "-" {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "cannot write several formats to stdout")
	}
	base = trimExt(base)
	for _, f := range formats {
		paths[f] = base + formatExt[f]
	}
	return paths, nil
}
