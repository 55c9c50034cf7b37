// Package horoscope owns the cache-freshness and update logic: deciding
// when a cached entry is stale, fetching on demand, and running the bulk
// refresh over all twelve signs.
package horoscope

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jlhuang/astrod/internal/astro"
	"github.com/jlhuang/astrod/internal/cache"
)

// Fetcher retrieves and parses one sign's daily page.
type Fetcher interface {
	Fetch(ctx context.Context, sign int) (astro.Entry, error)
	FetchItems(ctx context.Context, sign int) ([]string, error)
}

type Service struct {
	store   *cache.Store
	fetcher Fetcher
	log     zerolog.Logger
	now     func() time.Time

	// one lock per sign so concurrent cache misses for the same sign
	// collapse into a single upstream fetch
	signMu [astro.SignCount]sync.Mutex
}

type Option func(*Service)

// WithClock overrides the clock used for calendar-date freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store *cache.Store, fetcher Fetcher, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		fetcher: fetcher,
		log:     logger,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) today() string {
	return s.now().Format(astro.DateLayout)
}

// Valid reports whether a cached entry exists for sign and was fetched on
// the current local calendar date. This is the sole staleness signal.
func (s *Service) Valid(sign int) bool {
	e, ok := s.store.Get(sign)
	return ok && e.Date == s.today()
}

// NeedsUpdate reports whether the bulk refresh should rewrite sign's
// entry. Without a valid entry the answer is always true. With one, the
// page is fetched again (without caching) and its items compared against
// the cached items, so a same-day upstream edit still triggers a rewrite.
// Any error during the comparison fetch counts as needing an update.
func (s *Service) NeedsUpdate(ctx context.Context, sign int) bool {
	e, ok := s.store.Get(sign)
	if !ok || e.Date != s.today() {
		return true
	}

	fresh, err := s.fetcher.FetchItems(ctx, sign)
	if err != nil {
		s.log.Warn().Err(err).Int("sign", sign).Msg("comparison fetch failed, assuming stale")
		return true
	}
	if len(fresh) != len(e.Items) {
		return true
	}
	for i := range fresh {
		if fresh[i] != e.Items[i] {
			return true
		}
	}
	return false
}

// Read serves sign's entry for an on-demand request. A valid cached entry
// is returned without touching the network. On a miss the sign is fetched,
// cached, and persisted. If the fetch fails but any entry exists, even one
// from a previous day, that stale entry is returned instead of the error.
func (s *Service) Read(ctx context.Context, sign int) (astro.Entry, error) {
	if s.Valid(sign) {
		e, _ := s.store.Get(sign)
		return e, nil
	}

	s.signMu[sign].Lock()
	defer s.signMu[sign].Unlock()

	// another request may have filled the cache while we waited
	if s.Valid(sign) {
		e, _ := s.store.Get(sign)
		return e, nil
	}

	e, err := s.fetcher.Fetch(ctx, sign)
	if err != nil {
		if stale, ok := s.store.Get(sign); ok {
			s.log.Warn().Err(err).Int("sign", sign).Str("cached_date", stale.Date).
				Msg("fetch failed, serving stale entry")
			return stale, nil
		}
		return astro.Entry{}, fmt.Errorf("read sign %d: %w", sign, err)
	}

	s.store.Put(sign, e)
	if err := s.store.Save(); err != nil {
		s.log.Error().Err(err).Msg("persist cache")
	}
	return e, nil
}

// RefreshAll re-evaluates every sign and rewrites the ones NeedsUpdate
// flags. A single sign's failure is logged and skipped; the persisted
// document is rewritten once at the end, and only if something changed.
// The returned count is the number of entries rewritten.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Logger()
	log.Info().Msg("bulk refresh started")

	updated := 0
	for sign := 0; sign < astro.SignCount; sign++ {
		if !s.NeedsUpdate(ctx, sign) {
			log.Debug().Int("sign", sign).Msg("entry current, skipping")
			continue
		}

		s.signMu[sign].Lock()
		e, err := s.fetcher.Fetch(ctx, sign)
		if err != nil {
			s.signMu[sign].Unlock()
			log.Error().Err(err).Int("sign", sign).Str("name", astro.SignName(sign)).
				Msg("refresh failed for sign")
			continue
		}
		s.store.Put(sign, e)
		s.signMu[sign].Unlock()
		updated++
	}

	if updated == 0 {
		log.Info().Msg("bulk refresh found no changes")
		return 0, nil
	}

	if err := s.store.Save(); err != nil {
		log.Error().Err(err).Msg("persist cache after refresh")
		return updated, fmt.Errorf("persist cache: %w", err)
	}
	log.Info().Int("updated", updated).Msg("bulk refresh complete")
	return updated, nil
}
