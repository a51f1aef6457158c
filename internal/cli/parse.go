package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/flowchart"
	"github.com/matzehuels/stackflow/pkg/pipeline"
)

// parseCommand creates the parse command, which converts flowchart text
// into graph JSON.
func (c *CLI) parseCommand() *cobra.Command {
	var (
		output    string
		direction string
	)

	cmd := &cobra.Command{
		Use:   "parse <flowchart|->",
		Short: "Parse a flowchart into graph JSON",
		Long: `Parse a Mermaid-style flowchart and write the graph as JSON.

The input is read from a file, or from stdin when the argument is "-".
Graph JSON input is accepted too and re-encoded.

Examples:
  stackflow parse chart.mmd                  # Write chart.graph.json
  stackflow parse chart.mmd -o -             # Write to stdout
  cat chart.mmd | stackflow parse - -d LR    # Override the direction`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runParse(cmd, args[0], output, direction)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: <input>.graph.json)`)
	cmd.Flags().StringVarP(&direction, "direction", "d", "", "override the flowchart direction (TD, TB, BT, LR, RL)")

	return cmd
}

func (c *CLI) runParse(cmd *cobra.Command, input, output, direction string) error {
	src, err := readSource(cmd, input)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	g, err := pipeline.Parse(pipeline.Options{Source: string(src), Direction: direction})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Parsed %d nodes and %d edges", g.NodeCount(), g.EdgeCount()))

	path := defaultOutput(input, output, ".graph.json")
	if path == "-" {
		return flowchart.WriteJSON(g, cmd.OutOrStdout())
	}
	if err := flowchart.WriteFile(g, path); err != nil {
		return err
	}

	w := cmd.ErrOrStderr()
	printSuccess(w, "Graph written")
	printFile(w, path)
	return nil
}

// defaultOutput returns the output path for input. An explicit output wins;
// stdin input defaults to stdout, any other input to its base name plus ext.
func defaultOutput(input, output, ext string) string {
	if output != "" {
		return output
	}
	if input == "-" {
		return "-"
	}
	return trimExt(input) + ext
}

// writeOutput writes data to path, or to stdout for "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := apperr.ValidatePath(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
