package reader

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/sources"
)

const (
	DefaultWindow      = 5
	DefaultConcurrency = 3
)

// ErrNotResolved means the pages of a chapter are still loading. It is a
// state, not a failure.
var ErrNotResolved = errors.New("chapter pages not resolved yet")

// RetryPolicy is a bounded exponential backoff applied to each chapter
// resolution. Only temporary fetch errors are retried.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

var DefaultRetry = RetryPolicy{Attempts: 3, BaseDelay: 250 * time.Millisecond, MaxDelay: 2 * time.Second}

// Delay returns how long to wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

type PageState int

const (
	PageUnresolved PageState = iota
	PageResolving
	PageResolved
)

func (s PageState) String() string {
	switch s {
	case PageResolving:
		return "resolving"
	case PageResolved:
		return "resolved"
	default:
		return "unresolved"
	}
}

// Prefetcher keeps the resolved page lists of one reading session. Entries
// are never evicted while the session lives; Reset drops all of them.
//
// Fetches run under a context owned by the prefetcher, so a caller that
// gives up does not fail others waiting on the same chapter. Reset cancels
// that context.
type Prefetcher struct {
	resolver    sources.PageResolver
	window      int
	concurrency int
	retry       RetryPolicy
	log         *zap.Logger

	group singleflight.Group

	mu       sync.RWMutex
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	pages    map[string]data.PageSet
	inflight map[string]struct{}
}

type PrefetcherOption func(*Prefetcher)

func WithWindow(n int) PrefetcherOption {
	return func(p *Prefetcher) {
		if n > 0 {
			p.window = n
		}
	}
}

func WithConcurrency(n int) PrefetcherOption {
	return func(p *Prefetcher) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithRetry(policy RetryPolicy) PrefetcherOption {
	return func(p *Prefetcher) {
		if policy.Attempts < 1 {
			policy.Attempts = 1
		}
		p.retry = policy
	}
}

func NewPrefetcher(resolver sources.PageResolver, log *zap.Logger, opts ...PrefetcherOption) *Prefetcher {
	p := &Prefetcher{
		resolver:    resolver,
		window:      DefaultWindow,
		concurrency: DefaultConcurrency,
		retry:       DefaultRetry,
		log:         log.Named("prefetch"),
		pages:       make(map[string]data.PageSet),
		inflight:    make(map[string]struct{}),
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Prefetcher) Window() int {
	return p.window
}

// Prefetch resolves every chapter in [start, start+window) that is in bounds
// and not resolved yet. Chapters fail independently: the returned error
// combines the individual failures and is only meant for reporting, the rest
// of the window is resolved regardless.
func (p *Prefetcher) Prefetch(ctx context.Context, chapters []data.Chapter, start int) error {
	if start < 0 {
		start = 0
	}
	end := min(start+p.window, len(chapters))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	g.SetLimit(p.concurrency)
	for i := start; i < end; i++ {
		id := chapters[i].ID
		if _, ok := p.PagesFor(id); ok {
			continue
		}
		g.Go(func() error {
			if _, err := p.Resolve(ctx, id); err != nil {
				p.log.Warn("Unable to resolve chapter pages", zap.String("chapter", id), zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return errs
}

// Resolve returns the pages of chapterID, fetching them if needed. Concurrent
// calls for the same chapter share one request; ctx only bounds how long this
// caller waits for it.
func (p *Prefetcher) Resolve(ctx context.Context, chapterID string) ([]string, error) {
	if pages, ok := p.PagesFor(chapterID); ok {
		return pages, nil
	}

	// A Reset starts new flights rather than joining cancelled ones.
	p.mu.RLock()
	key := strconv.FormatUint(p.gen, 10) + "/" + chapterID
	p.mu.RUnlock()

	ch := p.group.DoChan(key, func() (any, error) {
		if pages, ok := p.PagesFor(chapterID); ok {
			return pages, nil
		}

		p.mu.Lock()
		gen, fctx := p.gen, p.ctx
		p.inflight[chapterID] = struct{}{}
		p.mu.Unlock()

		pages, err := p.fetch(fctx, chapterID)

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.gen == gen {
			delete(p.inflight, chapterID)
			if err == nil {
				p.pages[chapterID] = data.PageSet{ChapterID: chapterID, Pages: pages}
			}
		}
		return pages, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]string), nil
	}
}

func (p *Prefetcher) fetch(ctx context.Context, chapterID string) ([]string, error) {
	for attempt := 1; ; attempt++ {
		pages, err := p.resolver.GetPages(ctx, chapterID)
		if err == nil {
			if pages == nil {
				pages = []string{}
			}
			p.log.Debug("Resolved chapter pages", zap.String("chapter", chapterID), zap.Int("pages", len(pages)))
			return pages, nil
		}
		if attempt >= p.retry.Attempts || !sources.IsTemporary(err) || ctx.Err() != nil {
			return nil, err
		}

		delay := p.retry.Delay(attempt)
		p.log.Debug("Retrying chapter pages",
			zap.String("chapter", chapterID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
	}
}

// PagesFor returns the resolved pages of chapterID. The boolean is false while
// the chapter is unresolved.
func (p *Prefetcher) PagesFor(chapterID string) ([]string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set, ok := p.pages[chapterID]
	return set.Pages, ok
}

func (p *Prefetcher) State(chapterID string) PageState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.pages[chapterID]; ok {
		return PageResolved
	}
	if _, ok := p.inflight[chapterID]; ok {
		return PageResolving
	}
	return PageUnresolved
}

// Len is the number of resolved chapters held.
func (p *Prefetcher) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pages)
}

// Reset drops every resolved chapter and cancels resolutions still in
// flight. Their results are discarded.
func (p *Prefetcher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.gen++
	p.pages = make(map[string]data.PageSet)
	p.inflight = make(map[string]struct{})
}
