package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/reader"
)

var readCmd = &cobra.Command{
	Use:   "read [title]",
	Short: "Read a manga, resuming where you left off",
	Long: `Print the pages of a manga chapter by chapter.

A title found in the recently viewed list resumes at the saved chapter.
Anything else is searched on MangaDex and the best match is opened.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")
		chapter, _ := cmd.Flags().GetString("chapter")
		count, _ := cmd.Flags().GetInt("count")
		out := cmd.OutOrStdout()

		s, err := openSession(ctx, out, query, chapter)
		if err != nil {
			return err
		}
		defer s.Close()

		for i := 0; i < count; i++ {
			pages, err := s.WaitPages(ctx)
			if err != nil {
				return fmt.Errorf("unable to load pages: %w", err)
			}
			printChapter(out, s, pages)

			// Reaching the last page moves the session on.
			if !s.PageSelected(ctx, len(pages)-1) {
				break
			}
		}

		s.Wait()
		fmt.Fprintln(out, styles.StatusResolvedStyle.Render("Progress saved."))
		return nil
	},
}

func openSession(ctx context.Context, out io.Writer, query, chapter string) (*reader.Session, error) {
	if record, ok := controller.FindRecent(ctx, query); ok && chapter == "" {
		fmt.Fprintf(out, "Resuming %s\n", record.Title)
		return controller.Resume(ctx, record)
	}

	results, err := controller.SearchManga(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no manga matches %q", query)
	}
	manga := bestMatch(results, query)

	chapters, err := controller.OpenTitle(ctx, manga)
	if err != nil {
		return nil, fmt.Errorf("unable to list chapters: %w", err)
	}

	start := 0
	if chapter != "" {
		start = -1
		for i, ch := range chapters {
			if ch.Number == chapter {
				start = i
				break
			}
		}
		if start < 0 {
			return nil, fmt.Errorf("%s has no chapter %s", manga.Name, chapter)
		}
	}
	return controller.StartSession(ctx, manga, chapters, start)
}

func bestMatch(results []data.Manga, query string) data.Manga {
	for _, m := range results {
		if strings.EqualFold(m.Name, query) {
			return m
		}
	}
	return results[0]
}

func printChapter(out io.Writer, s *reader.Session, pages []string) {
	ch, _ := s.Chapter()
	header := fmt.Sprintf("%s - Chapter %s (%d/%d)", s.Manga().Name, ch.Number, s.Index()+1, s.Len())
	fmt.Fprintln(out, styles.TitleStyle.Render(header))

	if len(pages) < 2 {
		fmt.Fprintln(out, styles.MutedStyle.Render("This chapter has no pages."))
	}
	for i, page := range pages[1:] {
		fmt.Fprintf(out, "%4d  %s\n", i+1, page)
	}

	var window []string
	for _, c := range s.Window() {
		state := s.State(c.ID)
		window = append(window, styles.StateStyle(state.String()).Render(fmt.Sprintf("%s:%s", c.Number, state)))
	}
	fmt.Fprintln(out, lipgloss.JoinHorizontal(lipgloss.Top, styles.MutedStyle.Render("window "), strings.Join(window, " ")))
	fmt.Fprintln(out)
}

func init() {
	readCmd.Flags().StringP("chapter", "n", "", "start at this chapter number instead of the saved position")
	readCmd.Flags().Int("count", 1, "number of chapters to read")
	rootCmd.AddCommand(readCmd)
}
