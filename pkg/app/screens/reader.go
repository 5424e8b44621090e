package screens

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/mangaread/pkg/app/components"
	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/reader"
)

const refreshInterval = 250 * time.Millisecond

// ReaderScreen pages through a session. Position 0 is the placeholder shown
// before the first page; moving onto the last page of a chapter opens the
// next one.
type ReaderScreen struct {
	ctx      context.Context
	session  *reader.Session
	pages    []string
	position int
	window   *components.WindowTracker
	spinner  spinner.Model
	width    int
	height   int
}

func NewReaderScreen(ctx context.Context, session *reader.Session) *ReaderScreen {
	s := &ReaderScreen{
		ctx:     ctx,
		session: session,
		window:  components.NewWindowTracker(80),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.StatusResolvingStyle)),
	}
	s.refresh()
	return s
}

func (s *ReaderScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, refreshTick())
}

func (s *ReaderScreen) Close() {
	s.session.Close()
}

type refreshMsg struct{}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (s *ReaderScreen) refresh() {
	if pages, ok := s.session.DisplayPages(); ok {
		s.pages = pages
	} else {
		s.pages = nil
	}

	chapters := s.session.Window()
	entries := make([]components.WindowEntry, len(chapters))
	for i, ch := range chapters {
		entries[i] = components.WindowEntry{Number: ch.Number, State: s.session.State(ch.ID)}
	}
	s.window.Update(entries)
}

// move sets the position and reports it to the session.
func (s *ReaderScreen) move(position int) {
	if s.pages == nil {
		return
	}
	s.position = min(max(position, 0), len(s.pages)-1)
	if s.session.PageSelected(s.ctx, s.position) {
		s.position = 0
		s.refresh()
	}
}

func (s *ReaderScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.window = components.NewWindowTracker(msg.Width - 4)
		s.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "down", "j", "right", "l", " ":
			s.move(s.position + 1)
		case "up", "k", "left", "h":
			s.move(s.position - 1)
		case "end", "G":
			if s.pages != nil {
				s.move(len(s.pages) - 1)
			}
		case "home", "g":
			s.move(0)
		case "esc", "backspace":
			return s, switchTo("recent", nil)
		}

	case refreshMsg:
		s.refresh()
		return s, refreshTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}

	return s, nil
}

func (s *ReaderScreen) View() string {
	ch, _ := s.session.Chapter()
	header := styles.TitleStyle.Render(fmt.Sprintf("%s - Chapter %s", s.session.Manga().Name, ch.Number))
	sub := styles.SubtitleStyle.Render(fmt.Sprintf("Chapter %d of %d", s.session.Index()+1, s.session.Len()))

	var body string
	switch {
	case s.pages == nil:
		body = s.spinner.View() + styles.StatusResolvingStyle.Render(" Loading pages...")
	case len(s.pages) == 1:
		body = styles.MutedStyle.Render("This chapter has no pages.")
	default:
		body = s.renderPages()
	}

	var footer string
	if s.session.AtEnd() && s.pages != nil && s.position == len(s.pages)-1 {
		footer = styles.StatusResolvedStyle.Render("End of the last chapter.") + "\n"
	}

	help := styles.HelpStyle.Render("↓/j/space: next page • ↑/k: previous page • G: last page • esc: back • q: quit")

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s\n%s%s", header, sub, body, s.window.View(), footer, help)
}

func (s *ReaderScreen) renderPages() string {
	var b strings.Builder
	if s.position == 0 {
		b.WriteString(styles.MutedStyle.Render("Press ↓ to start reading"))
	} else {
		b.WriteString(styles.TextStyle.Render(fmt.Sprintf("Page %d of %d", s.position, len(s.pages)-1)))
	}
	b.WriteString("\n\n")

	rows := max(s.height-16, 3)
	start := max(s.position-rows/2, 1)
	end := min(start+rows, len(s.pages))
	for i := start; i < end; i++ {
		line := fmt.Sprintf("%3d  %s", i, s.pages[i])
		if i == s.position {
			b.WriteString(styles.SelectedStyle.Render("> " + line))
		} else {
			b.WriteString(styles.MutedStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
