package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/utils"
)

const (
	DefaultBaseURL   = "https://api.mangadex.org"
	DefaultCoversURL = "https://uploads.mangadex.org/covers"

	// FeedLimit is the most entries the feed endpoint returns in one page.
	// Anything past it is not requested.
	FeedLimit = 500
)

type Manga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       map[string]string `json:"title"`
		Description map[string]string `json:"description"`
	} `json:"attributes"`
	Relationships []struct {
		Type       string `json:"type"`
		Attributes *struct {
			FileName string `json:"fileName"`
		} `json:"attributes"`
	} `json:"relationships"`
}

func (m *Manga) ToManga(coversURL string) *data.Manga {
	manga := &data.Manga{
		ID:          m.ID,
		Name:        localized(m.Attributes.Title),
		Description: localized(m.Attributes.Description),
		Source:      "mangadex",
	}
	if manga.Name == "" {
		manga.Name = "No Title"
	}
	for _, rel := range m.Relationships {
		if rel.Type == "cover_art" && rel.Attributes != nil && rel.Attributes.FileName != "" {
			manga.CoverURL = fmt.Sprintf("%s/%s/%s", coversURL, m.ID, rel.Attributes.FileName)
			break
		}
	}
	return manga
}

// localized prefers English and otherwise falls back to the first language
// in key order so results are stable.
func localized(values map[string]string) string {
	if v := values["en"]; v != "" {
		return v
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if values[k] != "" {
			return values[k]
		}
	}
	return ""
}

type Chapter struct {
	ID         string `json:"id"`
	Attributes struct {
		Title    *string `json:"title"`
		Language string  `json:"translatedLanguage"`
		Volume   *string `json:"volume"`
		Number   *string `json:"chapter"`
	} `json:"attributes"`
}

func (c *Chapter) ToChapter(mangaID string) *data.Chapter {
	return &data.Chapter{
		ID:       c.ID,
		MangaID:  mangaID,
		Title:    deref(c.Attributes.Title),
		Language: c.Attributes.Language,
		Volume:   deref(c.Attributes.Volume),
		Number:   deref(c.Attributes.Number),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type MangaDex struct {
	api       *utils.API
	coversURL string
	language  string
	feedLimit int
}

type Option func(*MangaDex)

func WithLanguage(language string) Option {
	return func(m *MangaDex) { m.language = language }
}

func WithCoversURL(coversURL string) Option {
	return func(m *MangaDex) { m.coversURL = coversURL }
}

// WithFeedLimit lowers the feed page size; values outside (0, FeedLimit] are
// ignored.
func WithFeedLimit(limit int) Option {
	return func(m *MangaDex) {
		if limit > 0 && limit <= FeedLimit {
			m.feedLimit = limit
		}
	}
}

func NewMangaDex(baseURL string, timeout time.Duration, opts ...Option) *MangaDex {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	m := &MangaDex{
		api:       utils.NewAPI(baseURL, timeout),
		coversURL: DefaultCoversURL,
		language:  "en",
		feedLimit: FeedLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MangaDex) get(ctx context.Context, op, path string, params url.Values, v any) error {
	err := m.api.Get(ctx, path, params, v)
	if err == nil {
		return nil
	}
	fe := &FetchError{Op: op, URL: m.api.URL(path, params), Err: err}
	var statusErr *utils.StatusError
	var decodeErr *utils.DecodeError
	switch {
	case errors.As(err, &statusErr):
		fe.StatusCode = statusErr.Code
	case errors.As(err, &decodeErr):
		fe.Err = fmt.Errorf("%w: %v", ErrMalformed, decodeErr.Err)
	}
	return fe
}

func (m *MangaDex) malformed(op, path string, params url.Values, reason string) error {
	return &FetchError{Op: op, URL: m.api.URL(path, params), Err: fmt.Errorf("%w: %s", ErrMalformed, reason)}
}

func (m *MangaDex) Search(ctx context.Context, query string) ([]data.Manga, error) {
	params := url.Values{}
	params.Set("title", query)
	params.Add("includes[]", "cover_art")

	var mangas struct {
		Data *[]Manga `json:"data"`
	}
	if err := m.get(ctx, "search", "/manga", params, &mangas); err != nil {
		return nil, err
	}
	if mangas.Data == nil {
		return nil, m.malformed("search", "/manga", params, "missing data")
	}
	out := make([]data.Manga, 0, len(*mangas.Data))
	for _, manga := range *mangas.Data {
		if manga.ID == "" {
			return nil, m.malformed("search", "/manga", params, "title without id")
		}
		out = append(out, *manga.ToManga(m.coversURL))
	}
	return out, nil
}

// GetChapters returns the raw chapter feed in the order the service sent it.
// Labels may repeat across scanlation groups.
func (m *MangaDex) GetChapters(ctx context.Context, mangaID string) ([]data.Chapter, error) {
	path := fmt.Sprintf("/manga/%s/feed", url.PathEscape(mangaID))
	params := url.Values{}
	params.Add("translatedLanguage[]", m.language)
	params.Set("order[chapter]", "asc")
	params.Set("limit", strconv.Itoa(m.feedLimit))

	var feed struct {
		Data *[]Chapter `json:"data"`
	}
	if err := m.get(ctx, "chapter feed", path, params, &feed); err != nil {
		return nil, err
	}
	if feed.Data == nil {
		return nil, m.malformed("chapter feed", path, params, "missing data")
	}
	out := make([]data.Chapter, 0, len(*feed.Data))
	for _, chapter := range *feed.Data {
		if chapter.ID == "" {
			return nil, m.malformed("chapter feed", path, params, "chapter without id")
		}
		out = append(out, *chapter.ToChapter(mangaID))
	}
	return out, nil
}

func (m *MangaDex) GetPages(ctx context.Context, chapterID string) ([]string, error) {
	path := fmt.Sprintf("/at-home/server/%s", url.PathEscape(chapterID))
	var server struct {
		BaseURL string `json:"baseUrl"`
		Chapter *struct {
			Hash string   `json:"hash"`
			Data []string `json:"data"`
		} `json:"chapter"`
	}
	if err := m.get(ctx, "resolve pages", path, nil, &server); err != nil {
		return nil, err
	}
	if server.BaseURL == "" || server.Chapter == nil || server.Chapter.Hash == "" {
		return nil, m.malformed("resolve pages", path, nil, "missing baseUrl or chapter hash")
	}
	pages := make([]string, len(server.Chapter.Data))
	for i, file := range server.Chapter.Data {
		pages[i] = fmt.Sprintf("%s/data/%s/%s", server.BaseURL, server.Chapter.Hash, file)
	}
	return pages, nil
}
