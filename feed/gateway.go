package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/pkg/clock"
	"github.com/sony/gobreaker"
)

// Origin says where a series in a batch came from.
type Origin int

const (
	FromProvider Origin = iota
	FromCache
	FromLastGood // served because the provider failed; may be arbitrarily old
)

func (o Origin) String() string {
	switch o {
	case FromProvider:
		return "provider"
	case FromCache:
		return "cache"
	default:
		return "last-good"
	}
}

// Batch is one cycle's view of the market.
type Batch struct {
	FetchedAt time.Time
	Daily     map[string]market.Series
	Intraday  map[string]market.Series
	origin    map[string]Origin
	Failures  map[Interval]string
}

func newBatch(now time.Time) *Batch {
	return &Batch{
		FetchedAt: now,
		Daily:     map[string]market.Series{},
		Intraday:  map[string]market.Series{},
		origin:    map[string]Origin{},
		Failures:  map[Interval]string{},
	}
}

// NewBatch builds a batch from already clean series, all marked as freshly
// fetched. Used by tests and replay tooling.
func NewBatch(now time.Time, daily, intraday map[string]market.Series) *Batch {
	b := newBatch(now)
	for k, s := range daily {
		b.put(Daily, k, s, FromProvider)
	}
	for k, s := range intraday {
		b.put(Intraday, k, s, FromProvider)
	}
	return b
}

func (b *Batch) put(interval Interval, ticker string, s market.Series, o Origin) {
	if len(s) == 0 {
		return
	}
	if interval == Daily {
		b.Daily[ticker] = s
	} else {
		b.Intraday[ticker] = s
	}
	b.origin[string(interval)+":"+ticker] = o
}

// MarkStale flags a ticker's series as last-good data.
func (b *Batch) MarkStale(interval Interval, ticker string) {
	key := string(interval) + ":" + ticker
	if _, ok := b.origin[key]; ok {
		b.origin[key] = FromLastGood
	}
}

func (b *Batch) Origin(interval Interval, ticker string) (Origin, bool) {
	o, ok := b.origin[string(interval)+":"+ticker]
	return o, ok
}

// LatestPrice returns the last intraday close, falling back to the last
// daily close when the intraday feed is empty (pre-market, holidays).
func (b *Batch) LatestPrice(ticker string) (float64, bool) {
	if c, ok := b.Intraday[ticker].Last(); ok {
		return c.Close, true
	}
	if c, ok := b.Daily[ticker].Last(); ok {
		return c.Close, true
	}
	return 0, false
}

// LiveQuote is LatestPrice restricted to data fetched for this cycle (from
// the provider or the short-TTL cache). Exit decisions use only this; a
// last-good price is never acted on.
func (b *Batch) LiveQuote(ticker string) (float64, bool) {
	if o, ok := b.Origin(Intraday, ticker); ok && o != FromLastGood {
		if c, ok := b.Intraday[ticker].Last(); ok {
			return c.Close, true
		}
	}
	if _, ok := b.Intraday[ticker]; ok {
		// A stale intraday series must not be papered over by a daily close.
		return 0, false
	}
	if o, ok := b.Origin(Daily, ticker); ok && o != FromLastGood {
		if c, ok := b.Daily[ticker].Last(); ok {
			return c.Close, true
		}
	}
	return 0, false
}

// LatestVolume is today's cumulative volume from the daily bar.
func (b *Batch) LatestVolume(ticker string, day string) (float64, bool) {
	today := b.Daily[ticker].On(day)
	if c, ok := today.Last(); ok {
		return c.Volume, true
	}
	return 0, false
}

// Degraded reports whether any interval request failed this cycle.
func (b *Batch) Degraded() bool {
	return len(b.Failures) > 0
}

// Empty reports whether nothing usable came back at all.
func (b *Batch) Empty() bool {
	return len(b.Daily) == 0 && len(b.Intraday) == 0
}

type GatewayOptions struct {
	CacheTTL    time.Duration // default 30s
	TripAfter   uint32        // consecutive failed requests, default 3
	ReopenAfter time.Duration // default 60s
}

// Gateway fronts a Provider with a TTL cache, a circuit breaker and a
// last-good store.
type Gateway struct {
	provider Provider
	cache    Cache
	clock    clock.Clock
	opts     GatewayOptions
	cb       *gobreaker.CircuitBreaker

	mu       sync.Mutex
	lastGood map[string]market.Series
}

func NewGateway(p Provider, cache Cache, c clock.Clock, opts GatewayOptions) *Gateway {
	if c == nil {
		c = clock.Real{}
	}
	if cache == nil {
		cache = NewMemoryCache(c)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.TripAfter == 0 {
		opts.TripAfter = 3
	}
	if opts.ReopenAfter <= 0 {
		opts.ReopenAfter = time.Minute
	}
	st := gobreaker.Settings{
		Name:    "market-data",
		Timeout: opts.ReopenAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.TripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("circuit", name).Str("from", from.String()).Str("to", to.String()).
				Msg("market data circuit changed state")
		},
	}
	return &Gateway{
		provider: p,
		cache:    cache,
		clock:    c,
		opts:     opts,
		cb:       gobreaker.NewCircuitBreaker(st),
		lastGood: make(map[string]market.Series),
	}
}

// Fetch assembles a batch for tickers. It never returns an error.
func (g *Gateway) Fetch(ctx context.Context, tickers []string) *Batch {
	b := newBatch(g.clock.Now())
	for _, interval := range []Interval{Daily, Intraday} {
		g.fetchInterval(ctx, b, interval, tickers)
	}
	return b
}

func (g *Gateway) fetchInterval(ctx context.Context, b *Batch, interval Interval, tickers []string) {
	var misses []string
	for _, t := range tickers {
		if s, ok := g.cache.Get(ctx, cacheKey(interval, t)); ok {
			b.put(interval, t, s, FromCache)
			continue
		}
		misses = append(misses, t)
	}
	if len(misses) == 0 {
		return
	}

	res, err := g.cb.Execute(func() (interface{}, error) {
		return g.provider.Fetch(ctx, misses, interval, Range[interval])
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			err = fmt.Errorf("provider circuit open: %w", err)
		}
		b.Failures[interval] = err.Error()
		log.Warn().Err(err).Str("interval", string(interval)).Int("tickers", len(misses)).
			Msg("market data request failed; serving last-good data")
		g.mu.Lock()
		for _, t := range misses {
			if s, ok := g.lastGood[string(interval)+":"+t]; ok {
				b.put(interval, t, s, FromLastGood)
			}
		}
		g.mu.Unlock()
		return
	}

	got := res.(map[string]market.Series)
	for _, t := range misses {
		raw, ok := got[t]
		if !ok {
			log.Debug().Str("ticker", t).Str("interval", string(interval)).Msg("ticker missing from response")
			continue
		}
		s := raw.Clean()
		if len(s) == 0 {
			continue
		}
		g.cache.Set(ctx, cacheKey(interval, t), s, g.opts.CacheTTL)
		g.mu.Lock()
		g.lastGood[string(interval)+":"+t] = s
		g.mu.Unlock()
		b.put(interval, t, s, FromProvider)
	}
}
