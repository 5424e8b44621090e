package screens

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/mangaread/pkg/app/components"
	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/data"
)

// RecentScreen lists recently viewed titles. Enter resumes reading.
type RecentScreen struct {
	ctx        context.Context
	controller Controller
	list       *components.TitleList
	records    []data.RecentRecord
	confirming bool
	opening    bool
	width      int
	height     int
	err        error
}

func NewRecentScreen(ctx context.Context, controller Controller) *RecentScreen {
	return &RecentScreen{
		ctx:        ctx,
		controller: controller,
		list:       components.NewTitleList("Nothing read yet. Press tab to search."),
	}
}

func (s *RecentScreen) Init() tea.Cmd {
	return s.loadRecent
}

func (s *RecentScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.list.Width = msg.Width - 2
		s.list.Height = msg.Height - 8

	case tea.KeyMsg:
		if s.confirming {
			s.confirming = false
			if msg.String() == "y" {
				return s, s.clearRecent
			}
			return s, nil
		}
		if s.opening {
			return s, nil
		}

		switch msg.String() {
		case "up", "k":
			s.list.Prev()
		case "down", "j":
			s.list.Next()
		case "r":
			return s, s.loadRecent
		case "x":
			if len(s.records) > 0 {
				s.confirming = true
			}
		case "c":
			if _, ok := s.list.Selected(); ok {
				record := s.records[s.list.SelectedIndex]
				return s, switchTo("chapters", data.Manga{
					ID: record.TitleID, Name: record.Title, CoverURL: record.CoverURL, Source: "mangadex",
				})
			}
		case "enter":
			if _, ok := s.list.Selected(); ok {
				s.opening = true
				s.err = nil
				return s, s.resume(s.records[s.list.SelectedIndex])
			}
		}

	case recentLoadedMsg:
		s.records = msg.records
		items := make([]components.TitleListItem, len(msg.records))
		for i, r := range msg.records {
			position := "Not started"
			if r.ChapterID != "" {
				position = fmt.Sprintf("Chapter %d of %d", r.ChapterIndex+1, len(r.Chapters))
			}
			items[i] = components.TitleListItem{Title: r.Title, Description: position, Meta: r.TitleID}
		}
		s.list.SetItems(items)

	case recentClearedMsg:
		s.err = msg.err
		return s, s.loadRecent

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

func (s *RecentScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("Recently Viewed")

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n"
	}

	help := styles.HelpStyle.Render(
		"↑/k ↓/j: navigate • enter: resume • c: chapters • x: clear list • r: refresh • tab: switch view • q: quit",
	)
	if s.confirming {
		help = styles.StatusError.Render("Clear the recently viewed list? This cannot be undone. y/N")
	}
	if s.opening {
		help = styles.StatusResolvingStyle.Render("Opening...")
	}

	return fmt.Sprintf("%s\n\n%s%s\n%s", header, errorMsg, s.list.View(), help)
}

type recentLoadedMsg struct {
	records []data.RecentRecord
}

type recentClearedMsg struct {
	err error
}

func (s *RecentScreen) loadRecent() tea.Msg {
	return recentLoadedMsg{records: s.controller.Recent(s.ctx)}
}

func (s *RecentScreen) clearRecent() tea.Msg {
	return recentClearedMsg{err: s.controller.ClearRecent(s.ctx)}
}

func (s *RecentScreen) resume(record data.RecentRecord) tea.Cmd {
	return func() tea.Msg {
		session, err := s.controller.Resume(s.ctx, record)
		return sessionStartedMsg{session: session, err: err}
	}
}
