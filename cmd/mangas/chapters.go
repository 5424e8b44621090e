package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters [manga-id]",
	Short: "List the chapters of a manga",
	Long:  "Fetch the chapter feed of a manga and print it in reading order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chapters, err := controller.Chapters(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("unable to list chapters: %w", err)
		}
		if len(chapters) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No chapters available in %s.\n", cfg.Catalog.Language)
			return nil
		}

		t := newTable("#", "Chapter", "Volume", "Title", "ID")
		for i, ch := range chapters {
			t.Row(fmt.Sprintf("%d", i+1), ch.Number, ch.Volume, truncateString(ch.Title, 40), ch.ID)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chaptersCmd)
}
