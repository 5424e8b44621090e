package components

import (
	"strings"
	"testing"

	"github.com/kerbaras/mangaread/pkg/reader"
)

func TestNewWindowTracker(t *testing.T) {
	tracker := NewWindowTracker(80)

	if tracker.width != 80 {
		t.Errorf("Expected width 80, got %d", tracker.width)
	}
	if tracker.View() != "" {
		t.Error("Expected empty view without entries")
	}
	if tracker.Pending() {
		t.Error("Expected nothing pending without entries")
	}
}

func TestWindowTrackerUpdate(t *testing.T) {
	tracker := NewWindowTracker(80)
	tracker.Update([]WindowEntry{
		{Number: "1", State: reader.PageResolved},
		{Number: "2", State: reader.PageResolving},
		{Number: "3", State: reader.PageUnresolved},
	})

	if tracker.Resolved() != 1 {
		t.Errorf("Expected 1 resolved, got %d", tracker.Resolved())
	}
	if !tracker.Pending() {
		t.Error("Expected pending chapters")
	}

	view := tracker.View()
	for _, want := range []string{"Prefetched 1/3 chapters", "Ch. 1", "Ch. 2", "Ch. 3"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestWindowTrackerAllResolved(t *testing.T) {
	tracker := NewWindowTracker(40)
	tracker.Update([]WindowEntry{
		{Number: "1", State: reader.PageResolved},
		{Number: "2", State: reader.PageResolved},
	})

	if tracker.Pending() {
		t.Error("Expected nothing pending")
	}
	tracker.Clear()
	if tracker.Resolved() != 0 {
		t.Errorf("Expected 0 resolved after Clear, got %d", tracker.Resolved())
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name           string
		current, total int
		width          int
		filled         int
	}{
		{"empty", 0, 5, 10, 0},
		{"half", 1, 2, 10, 5},
		{"full", 5, 5, 10, 10},
		{"overflow", 7, 5, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := renderProgressBar(tt.current, tt.total, tt.width)
			if got := strings.Count(bar, "█"); got != tt.filled {
				t.Errorf("Expected %d filled cells, got %d", tt.filled, got)
			}
			if got := strings.Count(bar, "░"); got != tt.width-tt.filled {
				t.Errorf("Expected %d empty cells, got %d", tt.width-tt.filled, got)
			}
		})
	}

	if renderProgressBar(1, 0, 10) != "" {
		t.Error("Expected no bar for zero total")
	}
}
