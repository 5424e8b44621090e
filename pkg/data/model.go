package data

type Manga struct {
	ID          string
	Name        string
	Description string
	CoverURL    string
	Source      string
}

// Chapter is one installment of a title. Number is the decimal label from the
// catalog ("1", "10.5"); it is not unique across a raw feed, ID is.
type Chapter struct {
	ID       string
	MangaID  string
	Title    string
	Language string
	Volume   string
	Number   string
}

// PageSet is the resolved, ordered list of page image locations of a chapter.
type PageSet struct {
	ChapterID string
	Pages     []string
}

// RecentRecord is a persisted snapshot of where the reader left a title.
// JSON names match what the mobile client writes under the same key.
type RecentRecord struct {
	TitleID      string   `json:"id"`
	Title        string   `json:"title"`
	CoverURL     string   `json:"image"`
	ChapterID    string   `json:"chapterId"`
	ChapterIndex int      `json:"chapterIndex"`
	Chapters     []string `json:"allChapters"`
}

// ChapterIDs returns the ids of a chapter sequence in order.
func ChapterIDs(chapters []Chapter) []string {
	ids := make([]string, len(chapters))
	for i, ch := range chapters {
		ids[i] = ch.ID
	}
	return ids
}
