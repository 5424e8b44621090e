package reader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/sources"
)

// mockResolver counts calls per chapter and answers with getPagesFunc, or
// with two pages named after the chapter.
type mockResolver struct {
	mu           sync.Mutex
	calls        map[string]int
	getPagesFunc func(chapterID string, call int) ([]string, error)
}

func (m *mockResolver) GetPages(ctx context.Context, chapterID string) ([]string, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[chapterID]++
	call := m.calls[chapterID]
	m.mu.Unlock()

	if m.getPagesFunc != nil {
		return m.getPagesFunc(chapterID, call)
	}
	return []string{chapterID + "/1.png", chapterID + "/2.png"}, nil
}

func (m *mockResolver) callCount(chapterID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[chapterID]
}

func (m *mockResolver) called() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.calls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func testSequence(n int) []data.Chapter {
	chapters := make([]data.Chapter, n)
	for i := range chapters {
		chapters[i] = data.Chapter{ID: fmt.Sprintf("ch-%02d", i), Number: fmt.Sprint(i + 1)}
	}
	return chapters
}

func fastRetry() PrefetcherOption {
	return WithRetry(RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond})
}

func TestPrefetchWindow(t *testing.T) {
	resolver := &mockResolver{}
	p := NewPrefetcher(resolver, zap.NewNop())
	chapters := testSequence(10)

	err := p.Prefetch(context.Background(), chapters, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"ch-03", "ch-04", "ch-05", "ch-06", "ch-07"}, resolver.called())
	for i, ch := range chapters {
		_, ok := p.PagesFor(ch.ID)
		assert.Equal(t, i >= 3 && i <= 7, ok, "chapter %d", i)
	}

	// Same window again: nothing new is requested.
	require.NoError(t, p.Prefetch(context.Background(), chapters, 3))
	for i := 3; i <= 7; i++ {
		assert.Equal(t, 1, resolver.callCount(chapters[i].ID))
	}
}

func TestPrefetchClampsToBounds(t *testing.T) {
	resolver := &mockResolver{}
	p := NewPrefetcher(resolver, zap.NewNop())
	chapters := testSequence(10)

	require.NoError(t, p.Prefetch(context.Background(), chapters, 8))
	assert.Equal(t, []string{"ch-08", "ch-09"}, resolver.called())

	require.NoError(t, p.Prefetch(context.Background(), chapters, 10))
	require.NoError(t, p.Prefetch(context.Background(), nil, 0))
	assert.Len(t, resolver.called(), 2)
}

func TestPrefetchRecenterKeepsOldEntries(t *testing.T) {
	resolver := &mockResolver{}
	p := NewPrefetcher(resolver, zap.NewNop())
	chapters := testSequence(10)

	require.NoError(t, p.Prefetch(context.Background(), chapters, 0))
	require.NoError(t, p.Prefetch(context.Background(), chapters, 1))

	// Only chapter 5 is new in the shifted window.
	assert.Len(t, resolver.called(), 6)
	assert.Equal(t, 6, p.Len())
	_, ok := p.PagesFor("ch-00")
	assert.True(t, ok)
}

func TestPrefetchComposesPageURLs(t *testing.T) {
	resolver := &mockResolver{}
	p := NewPrefetcher(resolver, zap.NewNop(), WithWindow(1))

	require.NoError(t, p.Prefetch(context.Background(), testSequence(3), 0))
	pages, ok := p.PagesFor("ch-00")
	require.True(t, ok)
	assert.Equal(t, []string{"ch-00/1.png", "ch-00/2.png"}, pages)
}

func TestPrefetchStoresPageSets(t *testing.T) {
	p := NewPrefetcher(&mockResolver{}, zap.NewNop(), WithWindow(1))

	require.NoError(t, p.Prefetch(context.Background(), testSequence(3), 1))
	p.mu.RLock()
	set, ok := p.pages["ch-01"]
	p.mu.RUnlock()
	require.True(t, ok)
	assert.Equal(t, data.PageSet{ChapterID: "ch-01", Pages: []string{"ch-01/1.png", "ch-01/2.png"}}, set)
}

func TestPrefetchPartialFailure(t *testing.T) {
	boom := errors.New("boom")
	resolver := &mockResolver{
		getPagesFunc: func(chapterID string, _ int) ([]string, error) {
			if chapterID == "ch-01" {
				return nil, boom
			}
			return []string{chapterID + "/1.png"}, nil
		},
	}
	p := NewPrefetcher(resolver, zap.NewNop(), fastRetry())
	chapters := testSequence(5)

	err := p.Prefetch(context.Background(), chapters, 0)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.ErrorIs(t, err, boom)

	for _, ch := range chapters {
		_, ok := p.PagesFor(ch.ID)
		assert.Equal(t, ch.ID != "ch-01", ok, ch.ID)
	}
	// Plain errors are not retried.
	assert.Equal(t, 1, resolver.callCount("ch-01"))
	assert.Equal(t, PageUnresolved, p.State("ch-01"))
}

func TestPrefetchRetriesTemporaryErrors(t *testing.T) {
	resolver := &mockResolver{
		getPagesFunc: func(chapterID string, call int) ([]string, error) {
			if call < 3 {
				return nil, &sources.FetchError{Op: "resolve pages", StatusCode: 503}
			}
			return []string{"p.png"}, nil
		},
	}
	p := NewPrefetcher(resolver, zap.NewNop(), fastRetry(), WithWindow(1))

	require.NoError(t, p.Prefetch(context.Background(), testSequence(1), 0))
	assert.Equal(t, 3, resolver.callCount("ch-00"))
	assert.Equal(t, PageResolved, p.State("ch-00"))
}

func TestPrefetchRetryGivesUp(t *testing.T) {
	resolver := &mockResolver{
		getPagesFunc: func(string, int) ([]string, error) {
			return nil, &sources.FetchError{Op: "resolve pages"}
		},
	}
	p := NewPrefetcher(resolver, zap.NewNop(), fastRetry(), WithWindow(1))

	err := p.Prefetch(context.Background(), testSequence(1), 0)
	require.Error(t, err)
	assert.Equal(t, 3, resolver.callCount("ch-00"))

	// A later re-centering tries again.
	p.Prefetch(context.Background(), testSequence(1), 0)
	assert.Equal(t, 6, resolver.callCount("ch-00"))
}

func TestPrefetchConcurrentCallsShareResolution(t *testing.T) {
	release := make(chan struct{})
	resolver := &mockResolver{
		getPagesFunc: func(chapterID string, _ int) ([]string, error) {
			<-release
			return []string{chapterID}, nil
		},
	}
	p := NewPrefetcher(resolver, zap.NewNop())
	chapters := testSequence(10)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Prefetch(context.Background(), chapters, 2)
		}()
	}

	require.Eventually(t, func() bool { return p.State("ch-02") == PageResolving }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for i := 2; i <= 6; i++ {
		assert.Equal(t, 1, resolver.callCount(chapters[i].ID), chapters[i].ID)
	}
}

func TestPrefetchEmptyChapterIsResolved(t *testing.T) {
	resolver := &mockResolver{
		getPagesFunc: func(string, int) ([]string, error) { return nil, nil },
	}
	p := NewPrefetcher(resolver, zap.NewNop(), WithWindow(1))

	require.NoError(t, p.Prefetch(context.Background(), testSequence(1), 0))
	pages, ok := p.PagesFor("ch-00")
	assert.True(t, ok)
	assert.Empty(t, pages)
}

func TestResolveHonorsContext(t *testing.T) {
	resolver := &mockResolver{
		getPagesFunc: func(string, int) ([]string, error) {
			time.Sleep(50 * time.Millisecond)
			return []string{"late"}, nil
		},
	}
	p := NewPrefetcher(resolver, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := p.Resolve(ctx, "ch-00")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReset(t *testing.T) {
	resolver := &mockResolver{}
	p := NewPrefetcher(resolver, zap.NewNop())

	require.NoError(t, p.Prefetch(context.Background(), testSequence(3), 0))
	assert.Equal(t, 3, p.Len())

	p.Reset()
	assert.Equal(t, 0, p.Len())
	_, ok := p.PagesFor("ch-00")
	assert.False(t, ok)
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{Attempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, policy.Delay(1))
	assert.Equal(t, 200*time.Millisecond, policy.Delay(2))
	assert.Equal(t, 350*time.Millisecond, policy.Delay(3))
	assert.Equal(t, 350*time.Millisecond, policy.Delay(10))
}

// blockingResolver holds every call until release is closed or the call's
// context ends.
type blockingResolver struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newBlockingResolver() *blockingResolver {
	return &blockingResolver{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (b *blockingResolver) GetPages(ctx context.Context, chapterID string) ([]string, error) {
	b.calls.Add(1)
	b.started <- struct{}{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.release:
		return []string{chapterID + "/1.png"}, nil
	}
}

func TestResolveCancelledCallerDoesNotFailOthers(t *testing.T) {
	resolver := newBlockingResolver()
	p := NewPrefetcher(resolver, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := p.Resolve(ctx, "ch-00")
		first <- err
	}()
	<-resolver.started

	type result struct {
		pages []string
		err   error
	}
	second := make(chan result, 1)
	go func() {
		pages, err := p.Resolve(context.Background(), "ch-00")
		second <- result{pages, err}
	}()
	time.Sleep(10 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)
	assert.Equal(t, PageResolving, p.State("ch-00"))

	close(resolver.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, []string{"ch-00/1.png"}, res.pages)
	assert.Equal(t, PageResolved, p.State("ch-00"))
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestResetCancelsInflightResolution(t *testing.T) {
	resolver := newBlockingResolver()
	p := NewPrefetcher(resolver, zap.NewNop(), WithRetry(RetryPolicy{Attempts: 1}))

	done := make(chan error, 1)
	go func() {
		_, err := p.Resolve(context.Background(), "ch-00")
		done <- err
	}()
	<-resolver.started

	p.Reset()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Reset did not cancel the pending resolution")
	}
	assert.Equal(t, PageUnresolved, p.State("ch-00"))

	// A fresh resolution after Reset does not join the cancelled one.
	close(resolver.release)
	pages, err := p.Resolve(context.Background(), "ch-00")
	require.NoError(t, err)
	assert.Equal(t, []string{"ch-00/1.png"}, pages)
	assert.Equal(t, int32(2), resolver.calls.Load())
}
