package screens

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/reader"
)

// ChaptersScreen shows the chapter sequence of one title. Opening it puts
// the title at the front of the recent list.
type ChaptersScreen struct {
	ctx             context.Context
	controller      Controller
	manga           data.Manga
	chapters        []data.Chapter
	selectedChapter int
	saved           int
	loading         bool
	opening         bool
	spinner         spinner.Model
	width           int
	height          int
	err             error
}

func NewChaptersScreen(ctx context.Context, controller Controller, manga data.Manga) *ChaptersScreen {
	return &ChaptersScreen{
		ctx:        ctx,
		controller: controller,
		manga:      manga,
		saved:      -1,
		loading:    true,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.StatusResolvingStyle)),
	}
}

func (s *ChaptersScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, s.loadChapters)
}

func (s *ChaptersScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height

	case tea.KeyMsg:
		if s.loading || s.opening {
			return s, nil
		}
		switch msg.String() {
		case "up", "k":
			if s.selectedChapter > 0 {
				s.selectedChapter--
			}
		case "down", "j":
			if s.selectedChapter < len(s.chapters)-1 {
				s.selectedChapter++
			}
		case "r":
			s.loading = true
			return s, tea.Batch(s.spinner.Tick, s.loadChapters)
		case "enter":
			if len(s.chapters) > 0 {
				s.opening = true
				s.err = nil
				return s, s.startSession(s.selectedChapter)
			}
		case "esc", "backspace":
			return s, switchTo("recent", nil)
		}

	case spinner.TickMsg:
		if !s.loading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case chaptersLoadedMsg:
		s.loading = false
		s.chapters = msg.chapters
		s.err = msg.err
		s.saved = msg.saved
		if msg.saved >= 0 && msg.saved < len(msg.chapters) {
			s.selectedChapter = msg.saved
		}

	case sessionStartedMsg:
		s.opening = false
		if msg.err != nil {
			s.err = msg.err
			return s, nil
		}
		return s, switchTo("reader", msg.session)
	}

	return s, nil
}

func (s *ChaptersScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render(s.manga.Name)

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n"
	}

	var body string
	if s.loading {
		body = s.spinner.View() + styles.StatusResolvingStyle.Render(" Loading chapters...")
	} else {
		body = s.renderChaptersList()
	}

	help := styles.HelpStyle.Render("↑/k ↓/j: navigate • enter: read • r: refresh • esc: back • q: quit")
	if s.opening {
		help = styles.StatusResolvingStyle.Render("Opening...")
	}

	return fmt.Sprintf("%s\n\n%s%s\n%s", header, errorMsg, body, help)
}

func (s *ChaptersScreen) renderChaptersList() string {
	if len(s.chapters) == 0 {
		return styles.MutedStyle.Render("No chapters available")
	}

	var b strings.Builder
	b.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf("Chapters (%d total):", len(s.chapters))))
	b.WriteString("\n\n")

	rows := max(s.height-10, 5)
	start, end := 0, len(s.chapters)
	if end > rows {
		start = max(s.selectedChapter-rows/2, 0)
		end = start + rows
		if end > len(s.chapters) {
			end = len(s.chapters)
			start = end - rows
		}
	}

	for i := start; i < end; i++ {
		ch := s.chapters[i]
		chapterText := fmt.Sprintf("Ch. %s", ch.Number)
		if ch.Volume != "" && ch.Volume != "0" {
			chapterText = fmt.Sprintf("Vol. %s, %s", ch.Volume, chapterText)
		}
		if ch.Title != "" {
			chapterText = fmt.Sprintf("%s: %s", chapterText, ch.Title)
		}

		icon, style := "○", styles.MutedStyle
		if i == s.saved {
			icon, style = "●", styles.StatusResolvedStyle
		}
		line := fmt.Sprintf("%s %s", icon, chapterText)
		if i == s.selectedChapter {
			line = styles.SelectedStyle.Render("> " + line)
		} else {
			line = style.Render("  " + line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(s.chapters) > rows {
		b.WriteString("\n")
		b.WriteString(styles.MutedStyle.Render(
			fmt.Sprintf("Showing %d-%d of %d chapters", start+1, end, len(s.chapters)),
		))
	}

	return lipgloss.NewStyle().MaxWidth(max(s.width, 20)).Render(b.String())
}

type chaptersLoadedMsg struct {
	chapters []data.Chapter
	saved    int
	err      error
}

type sessionStartedMsg struct {
	session *reader.Session
	err     error
}

func (s *ChaptersScreen) loadChapters() tea.Msg {
	chapters, err := s.controller.OpenTitle(s.ctx, s.manga)
	if err != nil {
		return chaptersLoadedMsg{saved: -1, err: err}
	}

	saved := -1
	if record, ok := s.controller.FindRecent(s.ctx, s.manga.Name); ok && record.ChapterID != "" {
		for i, ch := range chapters {
			if ch.ID == record.ChapterID {
				saved = i
				break
			}
		}
	}
	return chaptersLoadedMsg{chapters: chapters, saved: saved}
}

func (s *ChaptersScreen) startSession(index int) tea.Cmd {
	return func() tea.Msg {
		session, err := s.controller.StartSession(s.ctx, s.manga, s.chapters, index)
		return sessionStartedMsg{session: session, err: err}
	}
}
