package noaa

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// Feed is the read surface of the SWPC client.
type Feed interface {
	LatestKp(ctx context.Context) (domain.KpReading, error)
	KpSeries(ctx context.Context) ([]domain.KpSample, error)
	Forecast(ctx context.Context) ([]domain.KpForecast, error)
	Alerts(ctx context.Context) ([]domain.SpaceWeatherAlert, error)
}

// CachedFeed wraps a Feed with a short time-to-live cache per product. SWPC
// refreshes the products every few minutes, so polling viewers share one
// upstream request per TTL. The evaluation engine uses the uncached Client.
type CachedFeed struct {
	inner    Feed
	clock    clockwork.Clock
	latest   ttlEntry[domain.KpReading]
	series   ttlEntry[[]domain.KpSample]
	forecast ttlEntry[[]domain.KpForecast]
	alerts   ttlEntry[[]domain.SpaceWeatherAlert]
}

// NewCachedFeed creates a cache decorator around a feed.
func NewCachedFeed(inner Feed, ttl time.Duration, clock clockwork.Clock) *CachedFeed {
	return &CachedFeed{
		inner:    inner,
		clock:    clock,
		latest:   ttlEntry[domain.KpReading]{ttl: ttl},
		series:   ttlEntry[[]domain.KpSample]{ttl: ttl},
		forecast: ttlEntry[[]domain.KpForecast]{ttl: ttl},
		alerts:   ttlEntry[[]domain.SpaceWeatherAlert]{ttl: ttl},
	}
}

func (c *CachedFeed) KpSeries(ctx context.Context) ([]domain.KpSample, error) {
	return c.series.load(c.clock.Now(), func() ([]domain.KpSample, error) { return c.inner.KpSeries(ctx) })
}

func (c *CachedFeed) LatestKp(ctx context.Context) (domain.KpReading, error) {
	return c.latest.load(c.clock.Now(), func() (domain.KpReading, error) { return c.inner.LatestKp(ctx) })
}

func (c *CachedFeed) Forecast(ctx context.Context) ([]domain.KpForecast, error) {
	return c.forecast.load(c.clock.Now(), func() ([]domain.KpForecast, error) { return c.inner.Forecast(ctx) })
}

func (c *CachedFeed) Alerts(ctx context.Context) ([]domain.SpaceWeatherAlert, error) {
	return c.alerts.load(c.clock.Now(), func() ([]domain.SpaceWeatherAlert, error) { return c.inner.Alerts(ctx) })
}

// ttlEntry holds one cached value. Errors are never cached so a failed
// fetch is retried on the next call.
type ttlEntry[T any] struct {
	ttl       time.Duration
	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	valid     bool
}

func (e *ttlEntry[T]) load(now time.Time, fetch func() (T, error)) (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.valid && now.Sub(e.fetchedAt) < e.ttl {
		return e.value, nil
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	e.value, e.fetchedAt, e.valid = v, now, true
	return v, nil
}
