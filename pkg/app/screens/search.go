package screens

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/mangaread/pkg/app/components"
	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/data"
)

type SearchScreen struct {
	ctx        context.Context
	controller Controller
	input      textinput.Model
	spinner    spinner.Model
	list       *components.TitleList
	results    []data.Manga
	searching  bool
	searched   bool
	width      int
	height     int
	err        error
}

func NewSearchScreen(ctx context.Context, controller Controller) *SearchScreen {
	ti := textinput.New()
	ti.Placeholder = "Search manga..."
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 50

	return &SearchScreen{
		ctx:        ctx,
		controller: controller,
		input:      ti,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.StatusResolvingStyle)),
		list:       components.NewTitleList("No results found"),
	}
}

func (s *SearchScreen) Init() tea.Cmd {
	if s.input.Focused() {
		return textinput.Blink
	}
	return nil
}

// Typing reports whether keys go to the query input.
func (s *SearchScreen) Typing() bool {
	return s.input.Focused()
}

func (s *SearchScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.list.Width = msg.Width - 2
		s.list.Height = msg.Height - 12

	case tea.KeyMsg:
		if s.searching {
			return s, nil
		}

		switch msg.String() {
		case "enter":
			if s.input.Focused() {
				if query := s.input.Value(); query != "" {
					s.searching = true
					s.err = nil
					return s, tea.Batch(s.spinner.Tick, s.performSearch(query))
				}
			} else if _, ok := s.list.Selected(); ok {
				return s, switchTo("chapters", s.results[s.list.SelectedIndex])
			}

		case "esc":
			// Switch focus between input and results
			if s.input.Focused() {
				s.input.Blur()
			} else {
				s.input.Focus()
				cmd = textinput.Blink
			}
			return s, cmd

		case "up", "k":
			if !s.input.Focused() {
				s.list.Prev()
				return s, nil
			}

		case "down", "j":
			if !s.input.Focused() {
				s.list.Next()
				return s, nil
			}
		}

	case spinner.TickMsg:
		if !s.searching {
			return s, nil
		}
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case searchResultMsg:
		s.searching = false
		s.searched = true
		s.results = msg.results
		s.err = msg.err
		s.list.SelectedIndex = 0
		items := make([]components.TitleListItem, len(msg.results))
		for i, m := range msg.results {
			items[i] = components.TitleListItem{
				Title:       m.Name,
				Description: m.Description,
				Meta:        fmt.Sprintf("Source: %s • ID: %s", m.Source, m.ID),
			}
		}
		s.list.SetItems(items)
		if len(s.results) > 0 {
			s.input.Blur()
		}
		return s, nil
	}

	if s.input.Focused() {
		s.input, cmd = s.input.Update(msg)
	}

	return s, cmd
}

func (s *SearchScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("Search Manga")

	inputStyle := styles.InputStyle
	if s.input.Focused() {
		inputStyle = styles.FocusedInputStyle
	}
	inputView := inputStyle.Render(s.input.View())

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n"
	}

	var resultsView string
	switch {
	case s.searching:
		resultsView = s.spinner.View() + styles.StatusResolvingStyle.Render(" Searching...")
	case s.searched && s.err == nil:
		resultsView = styles.SubtitleStyle.Render(fmt.Sprintf("Found %d results:", len(s.results))) +
			"\n\n" + s.list.View()
	}

	help := styles.HelpStyle.Render(
		"enter: search/open • esc: switch focus • ↑/k ↓/j: navigate • tab: switch view • q: quit",
	)

	return fmt.Sprintf("%s\n\n%s\n\n%s%s\n%s", header, inputView, errorMsg, resultsView, help)
}

type searchResultMsg struct {
	results []data.Manga
	err     error
}

func (s *SearchScreen) performSearch(query string) tea.Cmd {
	return func() tea.Msg {
		results, err := s.controller.SearchManga(s.ctx, query)
		return searchResultMsg{results: results, err: err}
	}
}
