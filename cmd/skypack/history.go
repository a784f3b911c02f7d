package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kerbaras/skypack/pkg/app/components"
	"github.com/kerbaras/skypack/pkg/data"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous builds",
	Long:  "Display recorded builds in a formatted table, or the items of one build with --run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !cfg.History.Enabled {
			fmt.Fprintln(cmd.OutOrStdout(), "Run history is disabled (history.enabled=false).")
			return nil
		}

		if _, err := os.Stat(cfg.History.Path); errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(cmd.OutOrStdout(), "No builds recorded yet (%s).\n", cfg.History.Path)
			return nil
		}

		repo, err := data.NewDuckDBRepository(cfg.History.Path)
		if err != nil {
			return err
		}
		defer repo.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runID, _ := cmd.Flags().GetString("run")
		if runID != "" {
			return showRun(cmd, repo, runID)
		}

		runs, err := repo.ListRuns(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "📦 No builds recorded yet. Use 'skypack build' to make one.")
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n📦 Builds (%d)\n\n", len(runs))
		fmt.Fprintln(cmd.OutOrStdout(), runsTable(runs).View())
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of builds to show (0 for all)")
	historyCmd.Flags().String("run", "", "show the items of one build")
}

func runsTable(runs []*data.RunSummary) table.Model {
	columns := []table.Column{
		{Title: "ID", Width: 8},
		{Title: "Name", Width: 24},
		{Title: "Started", Width: 19},
		{Title: "State", Width: 18},
		{Title: "Items", Width: 6},
		{Title: "Failed", Width: 6},
		{Title: "Verified", Width: 8},
	}

	rows := []table.Row{}
	for _, run := range runs {
		verified := "no"
		if run.Success {
			verified = "yes"
		}
		rows = append(rows, table.Row{
			shortID(run.ID),
			truncateString(run.Name, 22),
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.State,
			fmt.Sprintf("%d", run.Images),
			fmt.Sprintf("%d", run.Failures),
			verified,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func showRun(cmd *cobra.Command, repo *data.Repository, runID string) error {
	runs, err := repo.ListRuns(0)
	if err != nil {
		return err
	}

	var run *data.RunSummary
	for _, r := range runs {
		if r.ID == runID || shortID(r.ID) == runID {
			run = r
			break
		}
	}
	if run == nil {
		return fmt.Errorf("no build with id %s", runID)
	}

	items, err := repo.GetRunItems(run.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n📦 %s (%s)\n%s\n\n", run.Name, run.ID, run.BaseDir)
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No items recorded for this build.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), components.ItemsTable(run.BaseDir, items))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
