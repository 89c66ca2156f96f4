// internal/menu/cache.go
package menu

import (
	"context"
	"sync"
	"time"

	"menubot/internal/common/logger"
	"menubot/internal/common/metrics"
)

// Day selects which menu a caller wants.
type Day string

const (
	Today    Day = "today"
	Tomorrow Day = "tomorrow"
)

// Fetcher performs one blocking menu query against the peer.
type Fetcher interface {
	Fetch(ctx context.Context, query string) (string, error)
}

// Queries maps each day to the text sent to the peer.
type Queries struct {
	Today    string
	Tomorrow string
}

// Snapshot is an immutable, date-keyed render of the fetched menus.
// Readers always see a complete snapshot; recomputes build a new one
// and swap it in whole.
type Snapshot struct {
	Date      string
	Menus     map[Day]string
	FetchedAt time.Time
}

// Cache serves rendered menus, fetching the today/tomorrow pair from the
// peer at most once per calendar day. A recompute is all-or-nothing: any
// fetch failure installs nothing and leaves the previous snapshot in
// place, so readers never observe a half-updated state.
type Cache struct {
	fetcher Fetcher
	queries Queries
	now     func() time.Time
	logger  logger.Logger

	// recomputeMu single-flights fetches so concurrent readers on a cold
	// day trigger one query, not one each.
	recomputeMu sync.Mutex

	snapMu sync.RWMutex
	snap   *Snapshot
}

// NewCache creates a cache over the given fetcher.
func NewCache(fetcher Fetcher, queries Queries, log logger.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		queries: queries,
		now:     time.Now,
		logger:  log,
	}
}

// Menu returns the rendered menu for day. When the snapshot is absent or
// stale it recomputes the whole today/tomorrow pair and swaps it in as
// one unit.
func (c *Cache) Menu(ctx context.Context, day Day) (string, error) {
	key := c.now().Format(DateLayout)

	if rendered, ok := c.lookup(key, day); ok {
		return rendered, nil
	}

	c.recomputeMu.Lock()
	defer c.recomputeMu.Unlock()

	// Another caller may have recomputed while we waited.
	if rendered, ok := c.lookup(key, day); ok {
		return rendered, nil
	}

	snap, err := c.recompute(ctx, key)
	if err != nil {
		metrics.CacheRefreshesTotal.WithLabelValues("error").Inc()
		c.logger.Warn("menu refresh failed", map[string]interface{}{
			"date":  key,
			"error": err.Error(),
		})
		return "", err
	}

	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()
	metrics.CacheRefreshesTotal.WithLabelValues("success").Inc()

	c.logger.Info("menu refreshed", map[string]interface{}{
		"date": key,
	})

	return snap.Menus[day], nil
}

// recompute fetches and renders both days. Any failure aborts the whole
// recompute so the caller never installs a partial snapshot.
func (c *Cache) recompute(ctx context.Context, key string) (*Snapshot, error) {
	rawToday, err := c.fetcher.Fetch(ctx, c.queries.Today)
	if err != nil {
		return nil, err
	}
	rawTomorrow, err := c.fetcher.Fetch(ctx, c.queries.Tomorrow)
	if err != nil {
		return nil, err
	}

	now := c.now()
	return &Snapshot{
		Date: key,
		Menus: map[Day]string{
			Today:    Format(rawToday, now),
			Tomorrow: Format(rawTomorrow, now.AddDate(0, 0, 1)),
		},
		FetchedAt: now,
	}, nil
}

// Invalidate drops the current snapshot so the next read refetches.
func (c *Cache) Invalidate() {
	c.snapMu.Lock()
	c.snap = nil
	c.snapMu.Unlock()
	c.logger.Info("menu cache invalidated", nil)
}

// Warm triggers the daily recompute ahead of the first reader. Failure is
// logged and not fatal; the cache fills lazily on the next read.
func (c *Cache) Warm(ctx context.Context) {
	if _, err := c.Menu(ctx, Today); err != nil {
		c.logger.Warn("cache warm-up fetch failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (c *Cache) lookup(key string, day Day) (string, bool) {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()

	if c.snap == nil || c.snap.Date != key {
		return "", false
	}
	rendered, ok := c.snap.Menus[day]
	return rendered, ok
}
