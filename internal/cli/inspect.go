package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackflow/pkg/layout"
	"github.com/matzehuels/stackflow/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	tableHeaderStyle  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// inspectCommand creates the inspect command, an interactive rank browser.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		summary bool
		noCache bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "inspect <flowchart|->",
		Short: "Browse the ranks of a flowchart layout",
		Long: `Lay out a flowchart and browse it rank by rank.

Use the arrow keys to move between ranks and "d" to show or hide dummy
nodes. With --summary a static table is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyLayoutConfig(cmd, c.Config.Layout, &opts)
			l, err := c.inspectLayout(cmd, args[0], opts, noCache)
			if err != nil {
				return err
			}
			if summary {
				printSummary(cmd.OutOrStdout(), l)
				return nil
			}
			p := tea.NewProgram(NewRankBrowserModel(l), tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "print a rank table instead of the interactive browser")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().Float64Var(&opts.Width, "width", pipeline.DefaultWidth, "canvas width")
	cmd.Flags().Float64Var(&opts.Height, "height", pipeline.DefaultHeight, "canvas height")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", pipeline.DefaultMaxPasses, "crossing minimization passes (0 disables)")
	cmd.Flags().StringVarP(&opts.Direction, "direction", "d", "", "override the flowchart direction")

	return cmd
}

func (c *CLI) inspectLayout(cmd *cobra.Command, input string, opts pipeline.Options, noCache bool) (*layout.Layout, error) {
	src, err := readSource(cmd, input)
	if err != nil {
		return nil, err
	}
	opts.Source = string(src)
	opts.Logger = c.Logger

	runner, err := c.newRunner(noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	ctx := cmd.Context()
	if err := opts.ValidateForParse(); err != nil {
		return nil, err
	}
	g, err := pipeline.Parse(opts)
	if err != nil {
		return nil, err
	}
	return runner.GenerateLayout(ctx, g, opts)
}

// =============================================================================
// Summary
// =============================================================================

// printSummary writes layout statistics and a table of ranks to w.
func printSummary(w io.Writer, l *layout.Layout) {
	fmt.Fprintln(w, StyleTitle.Render("Layout"))
	printKeyValue(w, "Canvas", fmt.Sprintf("%s × %s", num(l.Width), num(l.Height)))
	printKeyValue(w, "Direction", string(l.Direction))
	printKeyValue(w, "Ranks", strconv.Itoa(len(l.Ranks)))
	printKeyValue(w, "Dummies", strconv.Itoa(l.Stats.Dummies))
	printKeyValue(w, "Crossings", fmt.Sprintf("%d → %d (%d passes)", l.Stats.CrossingsBefore, l.Stats.CrossingsAfter, l.Stats.Passes))
	if l.Stats.FallbackRoot != "" {
		printWarning(w, "no root node; ranked from %s", l.Stats.FallbackRoot)
	}
	if len(l.Stats.Unreached) > 0 {
		printWarning(w, "unreached nodes at rank 0: %s", strings.Join(l.Stats.Unreached, ", "))
	}
	fmt.Fprintln(w)

	rows := [][]string{}
	for _, r := range l.RankIDs() {
		var real, dummies int
		var members []string
		for _, id := range l.Ranks[r] {
			if l.Nodes[id].Dummy {
				dummies++
				continue
			}
			real++
			members = append(members, id)
		}
		rows = append(rows, []string{strconv.Itoa(r), strconv.Itoa(real), strconv.Itoa(dummies), strings.Join(members, " ")})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Rank", "Nodes", "Dummies", "Members").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tableHeaderStyle
			}
			if col == 2 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		})
	fmt.Fprintln(w, t.Render())
}

// =============================================================================
// RankBrowserModel - Interactive rank browser
// =============================================================================

// RankBrowserModel is the bubbletea model for browsing a layout by rank.
type RankBrowserModel struct {
	Layout      *layout.Layout
	Ranks       []int
	Cursor      int
	ShowDummies bool
}

// NewRankBrowserModel creates a browser positioned on the first rank.
func NewRankBrowserModel(l *layout.Layout) RankBrowserModel {
	return RankBrowserModel{Layout: l, Ranks: l.RankIDs()}
}

func (m RankBrowserModel) Init() tea.Cmd {
	return nil
}

func (m RankBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Ranks)-1 {
				m.Cursor++
			}
		case "home", "g":
			m.Cursor = 0
		case "end", "G":
			m.Cursor = max(len(m.Ranks)-1, 0)
		case "d":
			m.ShowDummies = !m.ShowDummies
		}
	}
	return m, nil
}

func (m RankBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Ranks"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  d dummies  q quit"))
	b.WriteString("\n\n")

	if len(m.Ranks) == 0 {
		b.WriteString(listDimStyle.Render("  (empty layout)"))
		b.WriteString("\n")
		return b.String()
	}

	for i, r := range m.Ranks {
		cursor := "  "
		style := listNormalStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		line := fmt.Sprintf("%s%3d  %s", cursor, r, strings.Join(m.members(r), " "))
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	rank := m.Ranks[m.Cursor]
	rows := [][]string{}
	for _, id := range m.Layout.Ranks[rank] {
		n := m.Layout.Nodes[id]
		if n.Dummy && !m.ShowDummies {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(n.Order), n.ID, n.Label, string(n.Shape),
			num(n.X), num(n.Y), num(n.Width),
		})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Order", "ID", "Label", "Shape", "X", "Y", "Width").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tableHeaderStyle
			}
			return lipgloss.NewStyle()
		})
	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [rank %d/%d]", m.Cursor+1, len(m.Ranks))))

	return b.String()
}

// members returns the IDs of rank r in order, dummies included only when
// the browser shows them.
func (m RankBrowserModel) members(r int) []string {
	var ids []string
	for _, id := range m.Layout.Ranks[r] {
		if m.Layout.Nodes[id].Dummy && !m.ShowDummies {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// num formats a coordinate in its shortest form.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
