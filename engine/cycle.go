package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/exits"
	"github.com/rustyeddy/sentinel/feed"
	"github.com/rustyeddy/sentinel/journal"
	"github.com/rustyeddy/sentinel/ledger"
	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/risk"
	"github.com/rustyeddy/sentinel/signal"
	"github.com/rustyeddy/sentinel/store"
)

// Cycle runs one full iteration: rollover, fetch, gate, scan, signal log,
// Auto-Bot, exits, publish.
func (e *Engine) Cycle(ctx context.Context) *Status {
	return e.cycle(ctx, false)
}

// Scan runs a cycle that classifies the universe but mutates nothing
// durable: no signal log, no entries, no stop changes, no closes. It scans
// against a copy of the confirmation timers, so anchors first seen by a
// Scan are still created and logged by the next Cycle.
func (e *Engine) Scan(ctx context.Context) *Status {
	return e.cycle(ctx, true)
}

func (e *Engine) cycle(ctx context.Context, dryRun bool) *Status {
	s := e.state
	start := e.clock.Now()
	cycleID := uuid.NewString()
	logger := log.With().Str("cycle", cycleID).Logger()
	ctx = logger.WithContext(ctx)

	e.rollover(start, logger)

	if h := e.store.Health(); !h.Connected {
		// Lazy reconnect probe; the breaker keeps this cheap while open.
		if err := e.store.Ping(ctx); err == nil {
			logger.Info().Msg("durable store reachable again")
			s.notify(start, "info", "durable store reconnected")
		}
	}

	batch := e.market.Fetch(ctx, e.tickers())
	for interval, msg := range batch.Failures {
		e.metrics.FeedFailures.WithLabelValues(string(interval)).Inc()
		logger.Warn().Str("interval", string(interval)).Str("error", msg).Msg("market data degraded")
	}

	day := market.TradingDay(start)
	benchPrice, _ := batch.LatestPrice(market.Benchmark.Ticker)
	gate := signal.EvaluateGate(batch.Daily[market.Benchmark.Ticker].Before(day), benchPrice, e.opts.Params)
	if !gate.Safe {
		logger.Debug().Str("reason", gate.Reason).Msg("market safety gate closed")
	}

	conf := s.Confirmations
	if dryRun {
		conf = conf.Clone()
	}
	snaps, fresh := e.scanner.Scan(start, batch, gate, conf)
	for _, sn := range snaps {
		if sn.Status == signal.NoData {
			logger.Debug().Str("symbol", sn.Instrument.Symbol).Str("reason", sn.Note).Msg("instrument skipped")
		}
	}

	s.Batch, s.Gate, s.Snapshots = batch, gate, snaps
	s.CycleID, s.CycleAt = cycleID, start

	if !dryRun {
		e.logConfirmations(ctx, logger, fresh)
		e.autoBuy(ctx, logger, start, batch, snaps)
		e.manageExits(ctx, logger, start, batch)
	}

	st := e.publish()
	result := "ok"
	if len(st.Banners) > 0 {
		result = "degraded"
	}
	e.metrics.Cycles.WithLabelValues(result).Inc()
	e.metrics.CycleDuration.Observe(e.clock.Now().Sub(start).Seconds())
	e.metrics.observeSignals(snaps)

	counts := signal.Count(snaps)
	logger.Info().
		Int("confirmed", counts[signal.Confirmed]+counts[signal.StrongBuy]+counts[signal.LowVolume]).
		Int("breakout", counts[signal.Breakout]).
		Int("watching", counts[signal.Watching]).
		Int("unsafe", counts[signal.MarketUnsafe]).
		Int("no_data", counts[signal.NoData]).
		Int("positions", s.Ledger.Len()).
		Bool("dry_run", dryRun).
		Msg("cycle complete")
	return st
}

// rollover starts a new trading day: fresh confirmation timers and an
// empty blacklist.
func (e *Engine) rollover(now time.Time, logger zerolog.Logger) {
	s := e.state
	day := market.TradingDay(now)
	if day == s.Day {
		return
	}
	logger.Info().Str("from", s.Day).Str("to", day).Msg("trading day rollover")
	s.Day = day
	s.Confirmations.Rollover(day)
	s.Ledger.Rollover(day)
	s.stopAlerts = make(map[string]bool)
	s.notify(now, "info", "new trading day %s", day)
}

// tickers is the universe, the benchmark and any held instrument outside
// the universe.
func (e *Engine) tickers() []string {
	seen := map[string]bool{}
	var out []string
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, in := range e.opts.Universe {
		add(in.Ticker)
	}
	add(market.Benchmark.Ticker)
	for _, p := range e.state.Ledger.Positions() {
		add(p.Instrument.Ticker)
	}
	return out
}

func (e *Engine) logConfirmations(ctx context.Context, logger zerolog.Logger, fresh []signal.Confirmation) {
	if len(fresh) == 0 {
		return
	}
	rows := make([]store.Row, len(fresh))
	for i, c := range fresh {
		rows[i] = c.Row()
		logger.Info().Str("symbol", c.Instrument.Symbol).Time("at", c.At).Msg("entry condition first confirmed")
	}
	e.metrics.ConfirmedSignals.Add(float64(len(fresh)))
	if err := e.store.Append(ctx, store.SignalLog, rows...); err != nil {
		logger.Warn().Err(err).Int("rows", len(rows)).Msg("signal log append failed")
	}
}

// autoBuy opens a position for every actionable signal. It does nothing
// unless auto-buy is on, the session is open and the durable store is
// reachable.
func (e *Engine) autoBuy(ctx context.Context, logger zerolog.Logger, now time.Time, b *feed.Batch, snaps []signal.Snapshot) {
	s := e.state
	if !s.Settings.AutoBuy || !market.SessionOpen(now) {
		return
	}
	if !e.store.Health().Connected {
		logger.Warn().Msg("auto-buy suspended: durable store disconnected")
		return
	}

	for _, sn := range snaps {
		if !sn.Actionable() {
			continue
		}
		ticker := sn.Instrument.Ticker
		if s.Ledger.Held(ticker) || s.Ledger.Blacklisted(ticker) {
			continue
		}
		price, ok := b.LiveQuote(ticker)
		if !ok {
			logger.Debug().Str("symbol", sn.Instrument.Symbol).Msg("auto-buy skipped: no live quote")
			continue
		}
		stop := risk.InitialStop(price, s.Settings.Risk.RiskPct)
		d := risk.Evaluate(s.Settings.Risk, risk.Intent{
			Now: now, Ticker: ticker, Qty: 1, Entry: price, Stop: stop,
		}, risk.Book{
			OpenPositions: s.Ledger.Len(),
			DayRealized:   s.Journal.RealizedOn(s.Day),
		})
		if !d.Allowed {
			for _, v := range d.Violations {
				e.metrics.AutoBuyRejects.WithLabelValues(v.Code).Inc()
			}
			logger.Info().Str("symbol", sn.Instrument.Symbol).Str("reason", d.Reason()).Msg("auto-buy refused by risk policy")
			continue
		}

		p, err := s.Ledger.Open(ctx, sn.Instrument, price, stop, sn.Strategy, now)
		if err != nil {
			logger.Debug().Err(err).Str("symbol", sn.Instrument.Symbol).Msg("auto-buy skipped")
			continue
		}
		s.notify(now, "info", "BOUGHT %s at %.2f (%s, %s), stop %.2f", p.Instrument.Symbol, p.Entry, sn.Status, p.Strategy, p.Stop)
	}
}

// manageExits ratchets every stop and closes breached positions when
// auto-sell is on. A position without a live quote this cycle is frozen.
func (e *Engine) manageExits(ctx context.Context, logger zerolog.Logger, now time.Time, b *feed.Batch) {
	s := e.state
	for _, pos := range s.Ledger.Positions() {
		ticker := pos.Instrument.Ticker
		price, ok := b.LiveQuote(ticker)
		if !ok {
			logger.Warn().Str("symbol", pos.Instrument.Symbol).Float64("stop", pos.Stop).
				Msg("no live quote; stop frozen this cycle")
			continue
		}

		d := s.Settings.Exits.Evaluate(pos, price)
		if d.Raised {
			if _, err := s.Ledger.UpdateStop(ctx, ticker, d.NewStop); err != nil {
				logger.Warn().Err(err).Str("symbol", pos.Instrument.Symbol).Msg("stop update refused")
			} else {
				e.recordRaise(now, pos, d)
			}
		}
		if !d.Close {
			delete(s.stopAlerts, ticker)
			continue
		}
		if !s.Settings.AutoSell {
			if !s.stopAlerts[ticker] {
				s.stopAlerts[ticker] = true
				s.notify(now, "warn", "%s at %.2f is through its stop %.2f; auto-sell is off", pos.Instrument.Symbol, price, d.NewStop)
			}
			continue
		}
		e.closePosition(ctx, logger, now, ticker, price, d.Reason)
	}
}

func (e *Engine) recordRaise(now time.Time, pos ledger.Position, d exits.Decision) {
	switch {
	case d.Trailing:
		e.metrics.StopRaises.WithLabelValues("trail").Inc()
		e.state.notify(now, "info", "%s trailing up: stop %.2f -> %.2f", pos.Instrument.Symbol, pos.Stop, d.NewStop)
	case d.Breakeven:
		e.metrics.StopRaises.WithLabelValues("breakeven").Inc()
		e.state.notify(now, "info", "%s is now risk-free: stop at entry %.2f", pos.Instrument.Symbol, d.NewStop)
	}
}

func (e *Engine) closePosition(ctx context.Context, logger zerolog.Logger, now time.Time, ticker string, price float64, reason string) (journal.ClosedTrade, error) {
	s := e.state
	tr, err := s.Ledger.Close(ctx, ticker, price, reason, now)
	switch {
	case errors.Is(err, journal.ErrDuplicate):
		logger.Warn().Str("ticker", ticker).Msg("duplicate close suppressed")
		return tr, err
	case err != nil:
		return tr, err
	}
	delete(s.stopAlerts, ticker)
	e.metrics.ClosedTrades.WithLabelValues(string(tr.Result), reason).Inc()
	s.notify(now, "info", "SOLD %s at %.2f (%s): %s %.2f", tr.Instrument.Symbol, tr.Exit, reason, tr.Result, tr.PnL)
	return tr, nil
}

func sortedFailures(m map[feed.Interval]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, string(k)+": "+v)
	}
	sort.Strings(out)
	return out
}
