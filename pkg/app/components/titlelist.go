package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kerbaras/mangaread/pkg/app/styles"
)

type TitleListItem struct {
	Title       string
	Description string
	Meta        string
}

// TitleList is a selectable list of cards. Only the cards around the
// selection that fit in Height are rendered.
type TitleList struct {
	Items         []TitleListItem
	SelectedIndex int
	Width         int
	Height        int
	Empty         string
}

func NewTitleList(empty string) *TitleList {
	return &TitleList{
		Items:  []TitleListItem{},
		Width:  80,
		Height: 20,
		Empty:  empty,
	}
}

func (l *TitleList) SetItems(items []TitleListItem) {
	l.Items = items
	if l.SelectedIndex >= len(items) && len(items) > 0 {
		l.SelectedIndex = len(items) - 1
	}
	if len(items) == 0 {
		l.SelectedIndex = 0
	}
}

func (l *TitleList) Next() {
	if len(l.Items) == 0 {
		return
	}
	l.SelectedIndex++
	if l.SelectedIndex >= len(l.Items) {
		l.SelectedIndex = 0
	}
}

func (l *TitleList) Prev() {
	if len(l.Items) == 0 {
		return
	}
	l.SelectedIndex--
	if l.SelectedIndex < 0 {
		l.SelectedIndex = len(l.Items) - 1
	}
}

func (l *TitleList) Selected() (TitleListItem, bool) {
	if len(l.Items) == 0 || l.SelectedIndex >= len(l.Items) {
		return TitleListItem{}, false
	}
	return l.Items[l.SelectedIndex], true
}

// visible returns the [start, end) range of items to draw. Each card takes
// five lines.
func (l *TitleList) visible() (int, int) {
	n := max(l.Height/5, 1)
	if len(l.Items) <= n {
		return 0, len(l.Items)
	}
	start := max(l.SelectedIndex-n/2, 0)
	end := start + n
	if end > len(l.Items) {
		end = len(l.Items)
		start = end - n
	}
	return start, end
}

func (l *TitleList) View() string {
	if len(l.Items) == 0 {
		emptyMsg := styles.MutedStyle.Render(l.Empty)
		return lipgloss.Place(l.Width, l.Height, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	var b strings.Builder
	start, end := l.visible()
	for i := start; i < end; i++ {
		item := l.Items[i]
		cardStyle := styles.CardStyle
		if i == l.SelectedIndex {
			cardStyle = styles.ActiveCardStyle
		}

		desc := []rune(item.Description)
		if len(desc) > 80 {
			desc = append(desc[:77], []rune("...")...)
		}

		cardContent := lipgloss.JoinVertical(
			lipgloss.Left,
			styles.SelectedStyle.Render(item.Title),
			styles.TextStyle.Render(string(desc)),
			styles.MutedStyle.Render(item.Meta),
		)
		b.WriteString(cardStyle.Width(max(l.Width-4, 10)).Render(cardContent))
		b.WriteString("\n")
	}
	return b.String()
}
