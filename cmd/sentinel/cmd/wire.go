package cmd

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/config"
	"github.com/rustyeddy/sentinel/engine"
	"github.com/rustyeddy/sentinel/feed"
	"github.com/rustyeddy/sentinel/pkg/clock"
	"github.com/rustyeddy/sentinel/store"
)

// app is the assembled runtime: durable store, market data, engine.
type app struct {
	store    *store.Guarded
	registry *prometheus.Registry
	engine   *engine.Engine
	closers  []func() error
}

func newStore(c *config.Config) (*store.Guarded, error) {
	backend, err := store.Open(store.Options{Type: c.Store.Type, Dir: c.Store.Dir, DSN: c.Store.DSN})
	if err != nil {
		return nil, err
	}
	return store.NewGuarded(backend, store.GuardOptions{
		Attempts: c.Store.RetryAttempts,
		Backoff:  time.Duration(c.Store.RetryBackoff),
	}), nil
}

func newMarket(c *config.Config, clk clock.Clock) (*feed.Gateway, func() error) {
	provider := feed.NewYahoo(c.Feed.BaseURL, time.Duration(c.Feed.Timeout),
		c.Feed.RequestsPerSecond, c.Feed.Concurrency)

	var cache feed.Cache = feed.NewMemoryCache(clk)
	closer := func() error { return nil }
	if c.Feed.RedisAddr != "" {
		rc := feed.NewRedisCache(c.Feed.RedisAddr, c.Feed.RedisPassword, c.Feed.RedisDB)
		cache, closer = rc, rc.Close
		log.Info().Str("addr", c.Feed.RedisAddr).Msg("market data cache: redis")
	}
	return feed.NewGateway(provider, cache, clk, feed.GatewayOptions{
		CacheTTL: time.Duration(c.Feed.CacheTTL),
	}), closer
}

// buildApp wires everything from c and hydrates the engine.
func buildApp(ctx context.Context, c *config.Config) (*app, error) {
	st, err := newStore(c)
	if err != nil {
		return nil, err
	}
	clk := clock.Real{}
	gw, closeCache := newMarket(c, clk)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e, err := engine.New(clk, gw, st, engine.NewMetrics(reg), engine.OptionsFromConfig(c))
	if err != nil {
		st.Close()
		closeCache()
		return nil, err
	}
	e.Hydrate(ctx)
	return &app{store: st, registry: reg, engine: e, closers: []func() error{closeCache, st.Close}}, nil
}

func (a *app) Close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}
}
