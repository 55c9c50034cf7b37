package horoscope

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jlhuang/astrod/internal/astro"
	"github.com/jlhuang/astrod/internal/cache"
)

// fakeFetcher serves canned horoscope content and counts upstream calls.
type fakeFetcher struct {
	mu         sync.Mutex
	title      string
	items      []string
	errOn      map[int]error // per-sign failures
	now        func() time.Time
	fetchCalls int
	itemsCalls int
}

func (f *fakeFetcher) Fetch(_ context.Context, sign int) (astro.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if err := f.errOn[sign]; err != nil {
		return astro.Entry{}, err
	}
	return astro.NewEntry(sign, f.title, f.items, f.now()), nil
}

func (f *fakeFetcher) FetchItems(_ context.Context, sign int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemsCalls++
	if err := f.errOn[sign]; err != nil {
		return nil, err
	}
	return f.items, nil
}

func (f *fakeFetcher) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

type fixture struct {
	svc       *Service
	store     *cache.Store
	fetcher   *fakeFetcher
	clock     *time.Time
	cachePath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.Local)
	clock := &now
	fetcher := &fakeFetcher{
		title: "今日運勢",
		items: []string{"整體運勢不錯", "愛情運勢平平"},
		errOn: map[int]error{},
		now:   func() time.Time { return *clock },
	}
	path := filepath.Join(t.TempDir(), "astro_cache.json")
	store := cache.NewStore(path, zerolog.Nop())
	store.Load()
	svc := NewService(store, fetcher, zerolog.Nop(), WithClock(func() time.Time { return *clock }))
	return &fixture{svc: svc, store: store, fetcher: fetcher, clock: clock, cachePath: path}
}

func TestValidAcrossDayBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.False(t, f.svc.Valid(3))

	_, err := f.svc.Read(ctx, 3)
	require.NoError(t, err)
	require.True(t, f.svc.Valid(3))

	// cross into the next calendar day
	*f.clock = f.clock.Add(24 * time.Hour)
	require.False(t, f.svc.Valid(3))
}

func TestReadIsIdempotentForValidEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Read(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 1, f.fetcher.fetches())

	second, err := f.svc.Read(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, f.fetcher.fetches(), "second read must not hit upstream")
}

func TestConcurrentMissesCoalesceIntoOneFetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const readers = 8
	var wg sync.WaitGroup
	entries := make([]astro.Entry, readers)
	errs := make([]error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i], errs[i] = f.svc.Read(ctx, 3)
		}(i)
	}
	wg.Wait()

	for i := 0; i < readers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, entries[0], entries[i])
	}
	require.Equal(t, 1, f.fetcher.fetches(), "concurrent misses for one sign must share one fetch")
}

func TestReadPersistsEntry(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Read(context.Background(), 7)
	require.NoError(t, err)

	// a fresh store reading the same file sees the entry
	s2 := cache.NewStore(f.cachePath, zerolog.Nop())
	s2.Load()
	e, ok := s2.Get(7)
	require.True(t, ok)
	require.Equal(t, "今日運勢", e.Title)
}

func TestNeedsUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// absent from cache
	require.True(t, f.svc.NeedsUpdate(ctx, 4))

	_, err := f.svc.Read(ctx, 4)
	require.NoError(t, err)

	// cached items match a simulated re-fetch with identical content
	require.False(t, f.svc.NeedsUpdate(ctx, 4))

	// upstream content changed within the same day
	f.fetcher.items = []string{"整體運勢不錯", "愛情運勢大好"}
	require.True(t, f.svc.NeedsUpdate(ctx, 4))

	// different length
	f.fetcher.items = []string{"整體運勢不錯"}
	require.True(t, f.svc.NeedsUpdate(ctx, 4))
}

func TestNeedsUpdateComparisonErrorAssumesStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Read(ctx, 6)
	require.NoError(t, err)

	f.fetcher.errOn[6] = errors.New("connection refused")
	require.True(t, f.svc.NeedsUpdate(ctx, 6))
}

func TestReadFallsBackToStaleEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// entry from yesterday
	yesterday := f.clock.Add(-24 * time.Hour)
	stale := astro.NewEntry(5, "昨日運勢", []string{"舊內容"}, yesterday)
	f.store.Put(5, stale)

	f.fetcher.errOn[5] = errors.New("upstream down")

	e, err := f.svc.Read(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, stale.HTML, e.HTML)
	require.Equal(t, stale.Date, e.Date)
}

func TestReadErrorWithoutFallback(t *testing.T) {
	f := newFixture(t)
	f.fetcher.errOn[9] = errors.New("upstream down")

	_, err := f.svc.Read(context.Background(), 9)
	require.Error(t, err)
}

func TestRefreshAllPopulatesEverySign(t *testing.T) {
	f := newFixture(t)

	updated, err := f.svc.RefreshAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, astro.SignCount, updated)
	require.Equal(t, astro.SignCount, f.store.Len())
	for sign := 0; sign < astro.SignCount; sign++ {
		require.True(t, f.svc.Valid(sign), "sign %d", sign)
	}
}

func TestRefreshAllSkipsUnchangedEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RefreshAll(ctx)
	require.NoError(t, err)
	before := f.fetcher.fetches()

	updated, err := f.svc.RefreshAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, updated)
	require.Equal(t, before, f.fetcher.fetches(), "unchanged entries must not be re-fetched")
}

func TestRefreshAllIsolatesPerSignFailure(t *testing.T) {
	f := newFixture(t)
	f.fetcher.errOn[5] = errors.New("upstream down")

	updated, err := f.svc.RefreshAll(context.Background())
	require.NoError(t, err, "one sign failing must not fail the batch")
	require.Equal(t, astro.SignCount-1, updated)

	_, ok := f.store.Get(5)
	require.False(t, ok)
	require.True(t, f.svc.Valid(4))
	require.True(t, f.svc.Valid(6))
}
