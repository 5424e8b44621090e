package reader

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/kerbaras/mangaread/pkg/data"
)

// Recorder persists the reader's last position in a title.
type Recorder interface {
	Upsert(ctx context.Context, record data.RecentRecord) error
}

// Session is one reading pass through a title: the cursor, the page arena
// filled by its prefetcher, and the background prefetches it started. Close
// cancels whatever is still pending and drops the arena.
type Session struct {
	id         string
	manga      data.Manga
	prefetcher *Prefetcher
	recent     Recorder
	log        *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	cursor *Cursor
	closed bool
}

func NewSession(manga data.Manga, chapters []data.Chapter, start int, prefetcher *Prefetcher, recent Recorder, log *zap.Logger) *Session {
	id := ulid.Make().String()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:         id,
		manga:      manga,
		prefetcher: prefetcher,
		recent:     recent,
		log:        log.Named("session").With(zap.String("session", id), zap.String("title", manga.Name)),
		ctx:        ctx,
		cancel:     cancel,
		cursor:     NewCursor(chapters, start),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Manga() data.Manga {
	return s.manga
}

// Start begins prefetching around the starting chapter and records the title
// as recently read.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	s.recenterLocked()
	record, ok := s.recordLocked()
	s.mu.Unlock()

	if ok {
		s.save(ctx, record)
	}
}

func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Index()
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Len()
}

func (s *Session) Chapter() (data.Chapter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Current()
}

func (s *Session) AtEnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.AtEnd()
}

// Window returns the chapters of the current look-ahead window.
func (s *Session) Window() []data.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	chapters := s.cursor.Chapters()
	start := s.cursor.Index()
	end := min(start+s.prefetcher.Window(), len(chapters))
	if start >= end {
		return nil
	}
	return chapters[start:end]
}

func (s *Session) State(chapterID string) PageState {
	return s.prefetcher.State(chapterID)
}

// DisplayPages returns the placeholder followed by the current chapter's
// pages. It returns false while the chapter is not resolved.
func (s *Session) DisplayPages() ([]string, bool) {
	ch, ok := s.Chapter()
	if !ok {
		return nil, false
	}
	pages, ok := s.prefetcher.PagesFor(ch.ID)
	if !ok {
		return nil, false
	}
	return WithPlaceholder(pages), true
}

// WaitPages blocks until the current chapter is resolved or ctx ends.
func (s *Session) WaitPages(ctx context.Context) ([]string, error) {
	ch, ok := s.Chapter()
	if !ok {
		return nil, ErrNotResolved
	}
	pages, err := s.prefetcher.Resolve(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	return WithPlaceholder(pages), nil
}

// Prefetch resolves the current window and waits for it.
func (s *Session) Prefetch(ctx context.Context) error {
	s.mu.Lock()
	chapters, index := s.cursor.Chapters(), s.cursor.Index()
	s.mu.Unlock()
	return s.prefetcher.Prefetch(ctx, chapters, index)
}

// PageSelected reports that the reader is at position in the displayed page
// list. When that is the last real page of a resolved chapter and another
// chapter follows, the cursor advances, the window moves with it and the new
// position is recorded. It returns whether the cursor moved.
func (s *Session) PageSelected(ctx context.Context, position int) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	ch, ok := s.cursor.Current()
	if !ok {
		s.mu.Unlock()
		return false
	}
	pages, resolved := s.prefetcher.PagesFor(ch.ID)
	if !resolved || !CrossedFinalPage(position, len(pages)) || !s.cursor.Advance() {
		s.mu.Unlock()
		return false
	}
	s.log.Debug("Advanced to next chapter", zap.Int("index", s.cursor.Index()))
	s.recenterLocked()
	record, _ := s.recordLocked()
	s.mu.Unlock()

	s.save(ctx, record)
	return true
}

// Close cancels pending prefetches, waits for them and releases the pages.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.prefetcher.Reset()
}

// Wait blocks until background prefetches started so far are done.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) recenterLocked() {
	if s.closed {
		return
	}
	chapters, index := s.cursor.Chapters(), s.cursor.Index()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.prefetcher.Prefetch(s.ctx, chapters, index); err != nil {
			s.log.Debug("Prefetch window incomplete", zap.Int("index", index), zap.Error(err))
		}
	}()
}

func (s *Session) recordLocked() (data.RecentRecord, bool) {
	ch, ok := s.cursor.Current()
	if !ok {
		return data.RecentRecord{}, false
	}
	return data.RecentRecord{
		TitleID:      s.manga.ID,
		Title:        s.manga.Name,
		CoverURL:     s.manga.CoverURL,
		ChapterID:    ch.ID,
		ChapterIndex: s.cursor.Index(),
		Chapters:     data.ChapterIDs(s.cursor.Chapters()),
	}, true
}

func (s *Session) save(ctx context.Context, record data.RecentRecord) {
	if s.recent == nil {
		return
	}
	if err := s.recent.Upsert(ctx, record); err != nil {
		s.log.Warn("Unable to save reading position", zap.Error(err))
	}
}
