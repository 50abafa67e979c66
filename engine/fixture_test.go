package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rustyeddy/sentinel/exits"
	"github.com/rustyeddy/sentinel/feed"
	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/pkg/clock"
	"github.com/rustyeddy/sentinel/risk"
	"github.com/rustyeddy/sentinel/signal"
	"github.com/rustyeddy/sentinel/store"
	"github.com/stretchr/testify/require"
)

var infy = market.NewInstrument("INFY.NS")

// at is a time on Monday 2025-03-03, IST.
func at(hh, mm, ss int) time.Time {
	return time.Date(2025, 3, 3, hh, mm, ss, 0, market.IST)
}

func session(day time.Time) time.Time {
	y, m, d := day.In(market.IST).Date()
	return time.Date(y, m, d, 9, 15, 0, 0, market.IST)
}

func candle(t time.Time, close, volume float64) market.Candle {
	return market.Candle{Time: t, Open: close, High: close, Low: close, Close: close, Volume: volume}
}

func history(now time.Time, n int, base, step, volume float64) market.Series {
	s := make(market.Series, 0, n)
	for i := 0; i < n; i++ {
		s = append(s, candle(session(now.AddDate(0, 0, i-n)), base+step*float64(i), volume))
	}
	return s
}

// fakeMarket serves each universe instrument trending up from 100 (breakout trigger 126.15) and
// a benchmark comfortably above its 20-session mean. With stale set the
// INFY intraday feed is served as last-good data.
type fakeMarket struct {
	clock    clock.Clock
	universe []market.Instrument

	mu         sync.Mutex
	price      float64
	benchPrice float64
	stale      bool
	calls      int
}

func (f *fakeMarket) set(price float64, stale bool) {
	f.mu.Lock()
	f.price, f.stale = price, stale
	f.mu.Unlock()
}

func (f *fakeMarket) Fetch(_ context.Context, _ []string) *feed.Batch {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	now := f.clock.Now()
	bench := f.benchPrice
	if bench == 0 {
		bench = 1003
	}
	daily := map[string]market.Series{
		market.Benchmark.Ticker: append(history(now, 260, 1000, 0.01, 0), candle(session(now), bench, 0)),
	}
	intraday := map[string]market.Series{
		market.Benchmark.Ticker: {candle(now, bench, 0)},
	}
	for _, inst := range f.universe {
		daily[inst.Ticker] = append(history(now, 260, 100, 0.1, 1000), candle(session(now), f.price, 1000))
		intraday[inst.Ticker] = market.Series{candle(now, f.price, 10)}
	}
	b := feed.NewBatch(now, daily, intraday)
	if f.stale {
		b.MarkStale(feed.Intraday, infy.Ticker)
		b.Failures[feed.Intraday] = "provider unavailable"
	}
	return b
}

type harness struct {
	engine *Engine
	clock  *clock.Fake
	market *fakeMarket
	mem    *store.MemoryStore
	ctx    context.Context
}

func settings(autoBuy bool) Settings {
	return Settings{
		Mode:     "sentinel",
		AutoBuy:  autoBuy,
		AutoSell: true,
		Risk:     risk.DefaultPolicy(),
		Exits:    exits.DefaultRules(),
	}
}

// newHarness builds an engine over a memory store; seed may prefill tables
// before the engine hydrates.
func newHarness(t *testing.T, s Settings, price float64, seed func(*store.MemoryStore)) *harness {
	t.Helper()
	return newHarnessFor(t, []market.Instrument{infy}, s, price, seed)
}

// newHarnessFor is newHarness over a custom universe; every instrument
// follows the same price path as INFY.
func newHarnessFor(t *testing.T, universe []market.Instrument, s Settings, price float64, seed func(*store.MemoryStore)) *harness {
	t.Helper()
	c := clock.NewFake(at(10, 0, 0))
	mem := store.NewMemory()
	if seed != nil {
		seed(mem)
	}
	guarded := store.NewGuarded(mem, store.GuardOptions{Attempts: 1, Backoff: time.Millisecond, TripAfter: 1000})
	fm := &fakeMarket{clock: c, universe: universe, price: price}

	e, err := New(c, fm, guarded, nil, Options{
		Universe: universe,
		Params:   signal.DefaultParams(),
		Settings: s,
	})
	require.NoError(t, err)
	ctx := context.Background()
	e.Hydrate(ctx)
	return &harness{engine: e, clock: c, market: fm, mem: mem, ctx: ctx}
}

func (h *harness) cycle(after time.Duration) *Status {
	h.clock.Advance(after)
	return h.engine.Cycle(h.ctx)
}

func (h *harness) rows(t *testing.T, table store.Table) []store.Row {
	t.Helper()
	rows, err := h.mem.Read(h.ctx, table)
	require.NoError(t, err)
	return rows
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	if pb.Gauge != nil {
		return pb.Gauge.GetValue()
	}
	return pb.Counter.GetValue()
}
