package screens

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/reader"
)

// Controller is what the screens need from the reading controller.
type Controller interface {
	SearchManga(ctx context.Context, query string) ([]data.Manga, error)
	OpenTitle(ctx context.Context, manga data.Manga) ([]data.Chapter, error)
	StartSession(ctx context.Context, manga data.Manga, chapters []data.Chapter, index int) (*reader.Session, error)
	Resume(ctx context.Context, record data.RecentRecord) (*reader.Session, error)
	Recent(ctx context.Context) []data.RecentRecord
	FindRecent(ctx context.Context, title string) (data.RecentRecord, bool)
	ClearRecent(ctx context.Context) error
}

type screenType int

const (
	recentView screenType = iota
	searchView
	chaptersView
	readerView
)

// SwitchScreenMsg asks the root screen to show another screen. Data is a
// data.Manga for "chapters" and a *reader.Session for "reader".
type SwitchScreenMsg struct {
	Screen string
	Data   any
}

func switchTo(screen string, payload any) tea.Cmd {
	return func() tea.Msg {
		return SwitchScreenMsg{Screen: screen, Data: payload}
	}
}

type RootScreen struct {
	ctx        context.Context
	controller Controller
	log        *zap.Logger

	currentView screenType
	recent      *RecentScreen
	search      *SearchScreen
	chapters    *ChaptersScreen
	reader      *ReaderScreen

	width  int
	height int
}

func NewRootScreen(ctx context.Context, controller Controller, log *zap.Logger) *RootScreen {
	return &RootScreen{
		ctx:         ctx,
		controller:  controller,
		log:         log.Named("tui"),
		currentView: recentView,
		recent:      NewRecentScreen(ctx, controller),
		search:      NewSearchScreen(ctx, controller),
	}
}

func (r *RootScreen) Init() tea.Cmd {
	return r.recent.Init()
}

// Close ends the open reading session, if any.
func (r *RootScreen) Close() {
	if r.reader != nil {
		r.reader.Close()
		r.reader = nil
	}
}

func (r *RootScreen) sized() tea.Cmd {
	if r.width == 0 {
		return nil
	}
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: r.width, Height: r.height - 3}
	}
}

func (r *RootScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		// Tabs take three lines.
		inner := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 3}
		r.recent.Update(inner)
		r.search.Update(inner)
		if r.chapters != nil {
			r.chapters.Update(inner)
		}
		if r.reader != nil {
			r.reader.Update(inner)
		}
		return r, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return r, tea.Quit
		case "q":
			if !r.search.Typing() || r.currentView != searchView {
				return r, tea.Quit
			}
		case "tab":
			if r.currentView != recentView && r.currentView != searchView {
				break
			}
			if r.currentView == recentView {
				r.currentView = searchView
				return r, r.search.Init()
			}
			r.currentView = recentView
			return r, r.recent.Init()
		}

	case SwitchScreenMsg:
		switch msg.Screen {
		case "recent":
			r.Close()
			r.currentView = recentView
			cmd = r.recent.Init()
		case "search":
			r.Close()
			r.currentView = searchView
			cmd = r.search.Init()
		case "chapters":
			r.Close()
			if manga, ok := msg.Data.(data.Manga); ok {
				r.chapters = NewChaptersScreen(r.ctx, r.controller, manga)
				r.currentView = chaptersView
				cmd = tea.Batch(r.chapters.Init(), r.sized())
			}
		case "reader":
			if s, ok := msg.Data.(*reader.Session); ok {
				r.Close()
				r.log.Debug("Opened reader", zap.String("session", s.ID()))
				r.reader = NewReaderScreen(r.ctx, s)
				r.currentView = readerView
				cmd = tea.Batch(r.reader.Init(), r.sized())
			}
		}
		return r, cmd
	}

	// Forward message to active screen
	switch r.currentView {
	case recentView:
		newModel, newCmd := r.recent.Update(msg)
		r.recent = newModel.(*RecentScreen)
		return r, newCmd
	case searchView:
		newModel, newCmd := r.search.Update(msg)
		r.search = newModel.(*SearchScreen)
		return r, newCmd
	case chaptersView:
		if r.chapters != nil {
			newModel, newCmd := r.chapters.Update(msg)
			r.chapters = newModel.(*ChaptersScreen)
			return r, newCmd
		}
	case readerView:
		if r.reader != nil {
			newModel, newCmd := r.reader.Update(msg)
			r.reader = newModel.(*ReaderScreen)
			return r, newCmd
		}
	}

	return r, cmd
}

func (r *RootScreen) View() string {
	var content string
	switch r.currentView {
	case recentView:
		content = r.recent.View()
	case searchView:
		content = r.search.View()
	case chaptersView:
		if r.chapters != nil {
			content = r.chapters.View()
		}
	case readerView:
		if r.reader != nil {
			content = r.reader.View()
		}
	}

	return fmt.Sprintf("%s\n\n%s", r.renderTabs(), content)
}

func (r *RootScreen) renderTabs() string {
	if r.currentView != recentView && r.currentView != searchView {
		return ""
	}

	recentTab := "Recent"
	searchTab := "Search"

	if r.currentView == recentView {
		recentTab = styles.ActiveTabStyle.Render(recentTab)
		searchTab = styles.InactiveTabStyle.Render(searchTab)
	} else {
		recentTab = styles.InactiveTabStyle.Render(recentTab)
		searchTab = styles.ActiveTabStyle.Render(searchTab)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, recentTab, searchTab)
}
