package currency

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/models"
)

// CachedProvider memoizes rate lookups per currency/day. Invalidation is
// purely time-based (entries expire after the TTL), not event-driven.
// Negative results are cached too so a dead upstream is not hammered.
type CachedProvider struct {
	upstream RateProvider
	ttl      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	currency models.Currency
	day      string
}

type cacheEntry struct {
	rate    decimal.Decimal
	ok      bool
	expires time.Time
}

// NewCachedProvider wraps upstream with a TTL cache. A zero ttl defaults to
// 24 hours, the cadence of daily rate feeds.
func NewCachedProvider(upstream RateProvider, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedProvider{
		upstream: upstream,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[cacheKey]cacheEntry),
	}
}

// Rate implements RateProvider.
func (p *CachedProvider) Rate(c models.Currency, on date.Date) (decimal.Decimal, bool) {
	key := cacheKey{currency: c, day: on.String()}

	p.mu.RLock()
	e, hit := p.entries[key]
	p.mu.RUnlock()
	if hit && p.now().Before(e.expires) {
		return e.rate, e.ok
	}

	rate, ok := p.upstream.Rate(c, on)
	p.mu.Lock()
	p.entries[key] = cacheEntry{rate: rate, ok: ok, expires: p.now().Add(p.ttl)}
	p.mu.Unlock()
	return rate, ok
}
