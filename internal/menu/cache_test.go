// internal/menu/cache_test.go
package menu

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "menubot/internal/common/errors"
	"menubot/internal/common/logger"
)

// ==========================
// Test Fakes
// ==========================

type fakeFetcher struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, query string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	if err, ok := f.errs[query]; ok {
		return "", err
	}
	return f.replies[query], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) setErr(query string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = map[string]error{}
	}
	f.errs[query] = err
}

var testQueries = Queries{Today: "ipp heute", Tomorrow: "ipp morgen"}

func bothReplies() *fakeFetcher {
	return &fakeFetcher{replies: map[string]string{
		"ipp heute":  "Schnitzel mit Pommes 6,50 €",
		"ipp morgen": "Gemüsesuppe mit Brot 3,20 €",
	}}
}

func newTestCache(t *testing.T, f *fakeFetcher, now time.Time) *Cache {
	c := NewCache(f, testQueries, logger.NewTestLogger(t))
	c.now = func() time.Time { return now }
	return c
}

// ==========================
// Cache Behaviour
// ==========================

func TestMenu_RecomputesPairOncePerDay(t *testing.T) {
	f := bothReplies()
	c := newTestCache(t, f, time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))

	today, err := c.Menu(context.Background(), Today)
	require.NoError(t, err)
	assert.Equal(t, []string{"ipp heute", "ipp morgen"}, f.calls)

	// Both days are served from the installed snapshot.
	tomorrow, err := c.Menu(context.Background(), Tomorrow)
	require.NoError(t, err)
	again, err := c.Menu(context.Background(), Today)
	require.NoError(t, err)

	assert.Equal(t, today, again)
	assert.Contains(t, today, "Monday 05.01.2026")
	assert.Contains(t, today, "Schnitzel mit Pommes")
	assert.Contains(t, tomorrow, "Tuesday 06.01.2026")
	assert.Contains(t, tomorrow, "Gemüsesuppe mit Brot")
	assert.Equal(t, 2, f.callCount())
}

func TestMenu_RefetchesAfterDayRollover(t *testing.T) {
	f := bothReplies()
	now := time.Date(2026, 1, 5, 23, 0, 0, 0, time.UTC)
	c := newTestCache(t, f, now)

	_, err := c.Menu(context.Background(), Today)
	require.NoError(t, err)
	assert.Equal(t, 2, f.callCount())

	c.now = func() time.Time { return now.AddDate(0, 0, 1) }

	menuText, err := c.Menu(context.Background(), Today)
	require.NoError(t, err)
	assert.Contains(t, menuText, "Tuesday 06.01.2026")
	assert.Equal(t, 4, f.callCount())
}

func TestMenu_FetchErrorInstallsNothing(t *testing.T) {
	f := bothReplies()
	f.setErr("ipp heute", apperrors.NewFetchTimeoutError("canteen-peer", time.Second))
	c := newTestCache(t, f, time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))

	_, err := c.Menu(context.Background(), Today)
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))

	c.snapMu.RLock()
	assert.Nil(t, c.snap)
	c.snapMu.RUnlock()
}

func TestMenu_PartialFetchFailureKeepsFullOldSnapshot(t *testing.T) {
	f := bothReplies()
	day1 := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	c := newTestCache(t, f, day1)

	_, err := c.Menu(context.Background(), Today)
	require.NoError(t, err)

	// Next day the second fetch of the pair times out. The recompute must
	// install nothing, not a today-only snapshot.
	c.now = func() time.Time { return day1.AddDate(0, 0, 1) }
	f.setErr("ipp morgen", apperrors.NewFetchTimeoutError("canteen-peer", time.Second))

	_, err = c.Menu(context.Background(), Today)
	require.Error(t, err)

	c.snapMu.RLock()
	require.NotNil(t, c.snap)
	assert.Equal(t, "2026-01-05", c.snap.Date)
	assert.Len(t, c.snap.Menus, 2)
	c.snapMu.RUnlock()

	// Once the peer recovers the pair is recomputed whole.
	f.mu.Lock()
	delete(f.errs, "ipp morgen")
	f.mu.Unlock()

	menuText, err := c.Menu(context.Background(), Today)
	require.NoError(t, err)
	assert.Contains(t, menuText, "Tuesday 06.01.2026")
}

func TestInvalidate_ForcesRecompute(t *testing.T) {
	f := bothReplies()
	c := newTestCache(t, f, time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))

	_, err := c.Menu(context.Background(), Today)
	require.NoError(t, err)

	c.Invalidate()

	_, err = c.Menu(context.Background(), Today)
	require.NoError(t, err)
	assert.Equal(t, 4, f.callCount())
}

func TestMenu_ConcurrentReadersSingleRecompute(t *testing.T) {
	f := bothReplies()
	c := newTestCache(t, f, time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			day := Today
			if i%2 == 1 {
				day = Tomorrow
			}
			_, err := c.Menu(context.Background(), day)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, f.callCount())
}

func TestWarm_FillsBothDays(t *testing.T) {
	f := bothReplies()
	c := newTestCache(t, f, time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))

	c.Warm(context.Background())
	assert.Equal(t, 2, f.callCount())

	_, err := c.Menu(context.Background(), Today)
	require.NoError(t, err)
	_, err = c.Menu(context.Background(), Tomorrow)
	require.NoError(t, err)
	assert.Equal(t, 2, f.callCount(), "warmed snapshot must not refetch")
}
