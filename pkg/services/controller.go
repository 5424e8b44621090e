package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kerbaras/mangaread/pkg/config"
	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/reader"
	"github.com/kerbaras/mangaread/pkg/recent"
	"github.com/kerbaras/mangaread/pkg/sources"
)

// ReadingController wires the catalog, the page resolver and the recent
// list together for the CLI and the TUI.
type ReadingController struct {
	source  sources.Source
	indexer *reader.Indexer
	recent  *recent.Cache
	repo    *data.Repository
	opts    []reader.PrefetcherOption
	log     *zap.Logger
}

func NewReadingController(source sources.Source, cache *recent.Cache, log *zap.Logger, opts ...reader.PrefetcherOption) *ReadingController {
	return &ReadingController{
		source:  source,
		indexer: reader.NewIndexer(source, log),
		recent:  cache,
		opts:    opts,
		log:     log,
	}
}

// NewReadingControllerWithConfig opens the store and the MangaDex client
// described by cfg.
func NewReadingControllerWithConfig(cfg *config.Config, log *zap.Logger) (*ReadingController, error) {
	repo, err := data.NewDuckDBRepository(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	source := sources.NewMangaDex(cfg.Catalog.BaseURL, cfg.Catalog.Timeout,
		sources.WithLanguage(cfg.Catalog.Language),
		sources.WithCoversURL(cfg.Catalog.CoversURL),
		sources.WithFeedLimit(cfg.Catalog.FeedLimit),
	)
	cache := recent.New(repo, log, recent.WithCapacity(cfg.Recent.Capacity))

	c := NewReadingController(source, cache, log,
		reader.WithWindow(cfg.Reader.Window),
		reader.WithConcurrency(cfg.Reader.Concurrency),
		reader.WithRetry(reader.RetryPolicy{
			Attempts:  cfg.Reader.Retry.Attempts,
			BaseDelay: cfg.Reader.Retry.BaseDelay,
			MaxDelay:  cfg.Reader.Retry.MaxDelay,
		}),
	)
	c.repo = repo
	return c, nil
}

func (c *ReadingController) SearchManga(ctx context.Context, query string) ([]data.Manga, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	results, err := c.source.Search(ctx, query)
	if err != nil {
		c.log.Warn("Search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	return results, nil
}

// OpenTitle indexes the chapters of manga and puts the title at the front of
// the recent list. A title read before keeps its position.
func (c *ReadingController) OpenTitle(ctx context.Context, manga data.Manga) ([]data.Chapter, error) {
	if manga.ID == "" {
		return nil, fmt.Errorf("manga id cannot be empty")
	}
	record, ok := c.recent.Find(ctx, manga.Name)
	if !ok {
		record = data.RecentRecord{TitleID: manga.ID, Title: manga.Name}
	}
	record.CoverURL = manga.CoverURL
	if err := c.recent.Upsert(ctx, record); err != nil {
		c.log.Warn("Unable to record opened title", zap.String("title", manga.Name), zap.Error(err))
	}
	return c.indexer.Index(ctx, manga.ID)
}

// Chapters indexes a title without touching the recent list.
func (c *ReadingController) Chapters(ctx context.Context, mangaID string) ([]data.Chapter, error) {
	return c.indexer.Index(ctx, mangaID)
}

// StartSession begins reading chapters at index. The caller owns the session
// and must Close it.
func (c *ReadingController) StartSession(ctx context.Context, manga data.Manga, chapters []data.Chapter, index int) (*reader.Session, error) {
	if len(chapters) == 0 {
		return nil, fmt.Errorf("%s has no readable chapters", manga.Name)
	}
	prefetcher := reader.NewPrefetcher(c.source, c.log, c.opts...)
	s := reader.NewSession(manga, chapters, index, prefetcher, c.recent, c.log)
	s.Start(ctx)
	return s, nil
}

// Resume continues a title from a recent record. Records only carry chapter
// ids, so the chapters are numbered by position.
func (c *ReadingController) Resume(ctx context.Context, record data.RecentRecord) (*reader.Session, error) {
	manga := data.Manga{ID: record.TitleID, Name: record.Title, CoverURL: record.CoverURL, Source: "mangadex"}
	if len(record.Chapters) == 0 {
		manga, err := c.lookupTitle(ctx, manga)
		if err != nil {
			return nil, err
		}
		chapters, err := c.indexer.Index(ctx, manga.ID)
		if err != nil {
			return nil, err
		}
		return c.StartSession(ctx, manga, chapters, 0)
	}

	chapters := make([]data.Chapter, len(record.Chapters))
	for i, id := range record.Chapters {
		chapters[i] = data.Chapter{ID: id, MangaID: record.TitleID, Number: fmt.Sprint(i + 1)}
	}
	return c.StartSession(ctx, manga, chapters, record.ChapterIndex)
}

// lookupTitle makes sure manga carries a catalog id. Lists written by the
// mobile client store the title label as the id; those are searched by name.
func (c *ReadingController) lookupTitle(ctx context.Context, manga data.Manga) (data.Manga, error) {
	if _, err := uuid.Parse(manga.ID); err == nil {
		return manga, nil
	}
	results, err := c.SearchManga(ctx, manga.Name)
	if err != nil {
		return manga, err
	}
	if len(results) == 0 {
		return manga, fmt.Errorf("%s is no longer in the catalog", manga.Name)
	}

	found := results[0]
	for _, m := range results {
		if strings.EqualFold(m.Name, manga.Name) {
			found = m
			break
		}
	}
	c.log.Debug("Resolved title id by name", zap.String("title", manga.Name), zap.String("id", found.ID))
	manga.ID = found.ID
	if manga.CoverURL == "" {
		manga.CoverURL = found.CoverURL
	}
	return manga, nil
}

func (c *ReadingController) Recent(ctx context.Context) []data.RecentRecord {
	return c.recent.Records(ctx)
}

func (c *ReadingController) FindRecent(ctx context.Context, title string) (data.RecentRecord, bool) {
	return c.recent.Find(ctx, title)
}

func (c *ReadingController) ClearRecent(ctx context.Context) error {
	return c.recent.Clear(ctx)
}

// Close releases the store. Sessions must be closed first.
func (c *ReadingController) Close() error {
	if c.repo == nil {
		return nil
	}
	return c.repo.Close()
}
