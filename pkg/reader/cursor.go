package reader

import "github.com/kerbaras/mangaread/pkg/data"

// Cursor is the reader's position in a title's chapter sequence. It only
// moves forward, one chapter at a time.
type Cursor struct {
	chapters []data.Chapter
	index    int
}

// NewCursor starts at index, clamped into the sequence.
func NewCursor(chapters []data.Chapter, index int) *Cursor {
	if index >= len(chapters) {
		index = len(chapters) - 1
	}
	if index < 0 {
		index = 0
	}
	return &Cursor{chapters: chapters, index: index}
}

func (c *Cursor) Index() int {
	return c.index
}

func (c *Cursor) Chapters() []data.Chapter {
	return c.chapters
}

func (c *Cursor) Len() int {
	return len(c.chapters)
}

// Current returns the chapter under the cursor; false for an empty sequence.
func (c *Cursor) Current() (data.Chapter, bool) {
	if len(c.chapters) == 0 {
		return data.Chapter{}, false
	}
	return c.chapters[c.index], true
}

// AtEnd reports whether no forward transition is left.
func (c *Cursor) AtEnd() bool {
	return c.index >= len(c.chapters)-1
}

// Advance moves to the next chapter. It returns false at the end of the title.
func (c *Cursor) Advance() bool {
	if c.AtEnd() {
		return false
	}
	c.index++
	return true
}

// CrossedFinalPage applies the page-boundary rule. Displayed pages start with
// one empty placeholder, so the last real page sits at position realPages. An
// empty chapter never reports a crossing.
func CrossedFinalPage(position, realPages int) bool {
	return realPages > 0 && position == realPages
}

// WithPlaceholder prefixes pages with the empty leading page the reader shows
// before the first real one.
func WithPlaceholder(pages []string) []string {
	out := make([]string, 0, len(pages)+1)
	out = append(out, "")
	return append(out, pages...)
}
