package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackflow/pkg/export/dot"
	"github.com/matzehuels/stackflow/pkg/layout"
)

// dotCommand creates the dot command, which converts a saved layout into
// Graphviz DOT.
func (c *CLI) dotCommand() *cobra.Command {
	var (
		output   string
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "dot <layout.json|->",
		Short: "Convert a layout JSON file to Graphviz DOT",
		Long: `Convert a layout JSON file (as written by 'layout') to Graphviz DOT.

Node positions are pinned, so the result renders as laid out with:

  neato -n2 -Tsvg chart.dot -o chart.svg

Layouts saved with --dummies draw their dummy nodes as points.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDOT(cmd, args[0], output, validate)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: <input>.dot)`)
	cmd.Flags().BoolVar(&validate, "validate", true, "check the output with the Graphviz parser")

	return cmd
}

func (c *CLI) runDOT(cmd *cobra.Command, input, output string, validate bool) error {
	data, err := readSource(cmd, input)
	if err != nil {
		return err
	}
	l, err := layout.Read(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("read layout %s: %w", input, err)
	}

	src := dot.ToDOT(l)
	if validate {
		if err := dot.Validate(cmd.Context(), src); err != nil {
			return err
		}
		c.Logger.Debug("validated DOT output", "bytes", len(src))
	}

	path := defaultOutput(input, output, ".dot")
	if err := writeOutput(cmd, path, []byte(src)); err != nil {
		return err
	}
	if path != "-" {
		w := cmd.ErrOrStderr()
		printSuccess(w, "DOT written")
		printFile(w, path)
	}
	return nil
}
