package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ppiankov/legalyze/internal/export"
	"github.com/ppiankov/legalyze/internal/history"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent analyses",
	Long: `History lists analyses recorded in the local database, newest first.

Example:
  legalyze history
  legalyze history --limit 50
  legalyze history show 5f0c2a9e-...`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of analyses to list (0 for all)")
}

func openHistory() (*history.Store, error) {
	cfg, err := setup()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.History.Dir)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No analyses recorded yet.")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), historyTable(entries))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	report, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return (&export.TextExporter{}).Write(cmd.OutOrStdout(), report)
}

// historyTable renders entries as a bordered table
func historyTable(entries []history.Entry) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("241"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("ID", "DATE", "DOCUMENT", "RISK", "CLAUSES", "FLAGGED")

	for _, e := range entries {
		t.Row(
			e.ID,
			e.AnalyzedAt.Local().Format(export.DateLayout),
			e.Document,
			fmt.Sprintf("%d (%s)", e.RiskScore, e.Level()),
			strconv.Itoa(e.Clauses),
			strconv.Itoa(e.Records),
		)
	}
	return t.String()
}
