package components

import (
	"fmt"
	"strings"

	"github.com/kerbaras/mangaread/pkg/app/styles"
	"github.com/kerbaras/mangaread/pkg/reader"
)

type WindowEntry struct {
	Number string
	State  reader.PageState
}

// WindowTracker shows how much of the look-ahead window is resolved.
type WindowTracker struct {
	entries []WindowEntry
	width   int
}

func NewWindowTracker(width int) *WindowTracker {
	return &WindowTracker{width: width}
}

func (w *WindowTracker) Update(entries []WindowEntry) {
	w.entries = append(w.entries[:0], entries...)
}

func (w *WindowTracker) Clear() {
	w.entries = nil
}

func (w *WindowTracker) Resolved() int {
	n := 0
	for _, e := range w.entries {
		if e.State == reader.PageResolved {
			n++
		}
	}
	return n
}

// Pending reports whether any chapter of the window is still being fetched.
func (w *WindowTracker) Pending() bool {
	for _, e := range w.entries {
		if e.State != reader.PageResolved {
			return true
		}
	}
	return false
}

func (w *WindowTracker) View() string {
	if len(w.entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.SubtitleStyle.Render(
		fmt.Sprintf("Prefetched %d/%d chapters", w.Resolved(), len(w.entries))))
	b.WriteString("\n")
	b.WriteString(renderProgressBar(w.Resolved(), len(w.entries), w.width-4))
	b.WriteString("\n")

	labels := make([]string, len(w.entries))
	for i, e := range w.entries {
		labels[i] = styles.StateStyle(e.State.String()).Render(fmt.Sprintf("Ch. %s", e.Number))
	}
	b.WriteString(strings.Join(labels, "  "))
	b.WriteString("\n")
	return b.String()
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}

	return styles.ProgressBarStyle.Render(strings.Repeat("█", filled)) +
		styles.ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}
