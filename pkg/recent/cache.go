// Package recent keeps the bounded "recently viewed" list a reader resumes
// titles from.
package recent

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kerbaras/mangaread/pkg/data"
)

const (
	// StorageKey is where the whole list lives in the store. The mobile client
	// uses the same key.
	StorageKey      = "recently_viewed_manga"
	DefaultCapacity = 20
)

// Store is durable string-keyed blob storage.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Cache is the most-recent-first list of last-read records, at most one per
// title (compared case-insensitively by title label). Every change rewrites
// the whole list under StorageKey; the mutex serializes those
// read-modify-write cycles.
type Cache struct {
	store    Store
	key      string
	capacity int
	log      *zap.Logger

	mu      sync.Mutex
	records []data.RecentRecord
	loaded  bool
	stale   bool
}

type Option func(*Cache)

func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

func WithKey(key string) Option {
	return func(c *Cache) {
		if key != "" {
			c.key = key
		}
	}
}

func New(store Store, log *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		key:      StorageKey,
		capacity: DefaultCapacity,
		log:      log.Named("recent"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the list from the store. A missing key, a failed read or an
// unreadable blob all give an empty list.
func (c *Cache) Load(ctx context.Context) []data.RecentRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.read(ctx)
	if err != nil {
		c.log.Warn("Unable to load recently viewed", zap.Error(err))
		c.records, c.loaded, c.stale = nil, true, true
		return nil
	}
	c.records, c.loaded, c.stale = records, true, false
	return clone(records)
}

// Records returns the current list, reloading it first if the last write
// failed.
func (c *Cache) Records(ctx context.Context) []data.RecentRecord {
	c.mu.Lock()
	if c.loaded && !c.stale {
		defer c.mu.Unlock()
		return clone(c.records)
	}
	c.mu.Unlock()
	return c.Load(ctx)
}

// Upsert puts record at the front, dropping any record with the same title
// and anything past capacity. If the store cannot be read the list is left
// alone rather than overwritten with a partial one.
func (c *Cache) Upsert(ctx context.Context, record data.RecentRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.read(ctx)
	if err != nil {
		c.stale = true
		return err
	}

	updated := make([]data.RecentRecord, 0, min(len(current)+1, c.capacity))
	updated = append(updated, record)
	for _, r := range current {
		if len(updated) == c.capacity {
			break
		}
		if strings.EqualFold(r.Title, record.Title) {
			continue
		}
		updated = append(updated, r)
	}

	blob, err := json.Marshal(updated)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, c.key, blob); err != nil {
		c.stale = true
		return err
	}
	c.records, c.loaded, c.stale = updated, true, false
	return nil
}

// Clear deletes the stored list. There is no undo.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Remove(ctx, c.key); err != nil {
		c.stale = true
		return err
	}
	c.records, c.loaded, c.stale = nil, true, false
	return nil
}

// Find returns the record stored for title, compared case-insensitively.
func (c *Cache) Find(ctx context.Context, title string) (data.RecentRecord, bool) {
	for _, r := range c.Records(ctx) {
		if strings.EqualFold(r.Title, title) {
			return r, true
		}
	}
	return data.RecentRecord{}, false
}

// read must be called with mu held. Corrupt blobs are logged and read as
// empty so the next write replaces them.
func (c *Cache) read(ctx context.Context) ([]data.RecentRecord, error) {
	blob, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var records []data.RecentRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		c.log.Warn("Discarding unreadable recently viewed list", zap.Error(err))
		return nil, nil
	}
	return records, nil
}

func clone(records []data.RecentRecord) []data.RecentRecord {
	if records == nil {
		return nil
	}
	out := make([]data.RecentRecord, len(records))
	copy(out, records)
	return out
}
