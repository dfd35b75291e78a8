package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"rulemerge/internal/app"
	"rulemerge/internal/pipeline"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = cellStyle.Foreground(lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"})
	failStyle   = cellStyle.Foreground(lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"})
	warnStyle   = cellStyle.Foreground(lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"})
)

const statusColumn = 5

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var categories []string

	cmd := &cobra.Command{
		Use:   "build",
		Short: MsgBuildShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			out, err := app.Build(cmd.Context(), cfg, categories)
			if err != nil {
				return err
			}

			renderSummary(cmd.OutOrStdout(), out.Results)

			if failed := out.Failed(); len(failed) > 0 {
				return fmt.Errorf(MsgCategoriesError, len(failed), len(out.Results), strings.Join(failed, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, MsgFlagCategory)
	return cmd
}

func renderSummary(w io.Writer, results []pipeline.Result) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Category,
			strconv.Itoa(r.Count()),
			fmt.Sprintf("%d/%d", len(r.Sources)-r.FailedSources(), len(r.Sources)),
			strconv.Itoa(r.Stats.Normalized),
			strconv.Itoa(r.Stats.Excluded),
			status(r),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("CATEGORY", "ENTRIES", "SOURCES", "RULES", "EXCLUDED", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col != statusColumn || row < 0 || row >= len(results) {
				return cellStyle
			}
			r := results[row]
			switch {
			case r.Err != nil:
				return failStyle
			case r.FailedSources() > 0:
				return warnStyle
			default:
				return okStyle
			}
		})

	fmt.Fprintln(w, t)
}

func status(r pipeline.Result) string {
	switch {
	case r.Err != nil:
		return "failed: " + r.Err.Error()
	case r.FailedSources() > 0:
		return "partial"
	default:
		return "ok"
	}
}
