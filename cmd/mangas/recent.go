package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently viewed manga",
	Long:  "Display the recently viewed manga, most recent first, with the chapter you stopped at",
	RunE: func(cmd *cobra.Command, args []string) error {
		records := controller.Recent(cmd.Context())
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing read yet. Use 'mangaread read' to start.")
			return nil
		}

		columns := []table.Column{
			{Title: "Title", Width: 40},
			{Title: "Chapter", Width: 10},
			{Title: "Chapter ID", Width: 38},
		}

		rows := make([]table.Row, 0, len(records))
		for _, r := range records {
			position := "-"
			if r.ChapterID != "" {
				position = fmt.Sprintf("%d/%d", r.ChapterIndex+1, len(r.Chapters))
			}
			rows = append(rows, table.Row{truncateString(r.Title, 38), position, r.ChapterID})
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

		fmt.Fprintf(cmd.OutOrStdout(), "\nRecently viewed (%d)\n\n", len(records))
		fmt.Fprintln(cmd.OutOrStdout(), t.View())
		return nil
	},
}

var recentClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget all recently viewed manga",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			fmt.Fprint(cmd.OutOrStdout(), "Clear the recently viewed list? This cannot be undone [y/N]: ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}
		if err := controller.ClearRecent(cmd.Context()); err != nil {
			return fmt.Errorf("unable to clear recently viewed list: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Recently viewed list cleared.")
		return nil
	},
}

func init() {
	recentClearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	recentCmd.AddCommand(recentClearCmd)
	rootCmd.AddCommand(recentCmd)
}
