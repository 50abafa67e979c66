// Package ledger owns the set of open positions.
//
// The in-memory set is authoritative for the life of the process. Every
// mutation rewrites the whole Portfolio table; a failed write is logged and
// leaves the durable copy at most one mutation behind.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/journal"
	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/pkg/id"
	"github.com/rustyeddy/sentinel/store"
)

var (
	ErrAlreadyHeld = errors.New("instrument already held")
	ErrBlacklisted = errors.New("instrument closed earlier today")
	ErrNotHeld     = errors.New("instrument not held")
	ErrStopLowered = errors.New("stop may only move up")
)

// Ledger is not safe for concurrent use; it belongs to the engine loop.
type Ledger struct {
	store   store.Store
	journal *journal.Journal

	positions map[string]*Position
	day       string
	blacklist map[string]bool
}

func New(s store.Store, j *journal.Journal, day string) *Ledger {
	return &Ledger{
		store:     s,
		journal:   j,
		positions: make(map[string]*Position),
		day:       day,
		blacklist: make(map[string]bool),
	}
}

// Hydrate loads the Portfolio checkpoint and rebuilds today's blacklist from
// the journal. A checkpointed position whose close is already journaled is
// dropped: the process stopped between the journal append and the
// Portfolio rewrite.
func (l *Ledger) Hydrate(ctx context.Context) error {
	for _, t := range l.journal.ClosedOn(l.day) {
		l.blacklist[t.Instrument.Ticker] = true
	}

	rows, err := l.store.Read(ctx, store.Portfolio)
	if err != nil {
		return fmt.Errorf("ledger: hydrate: %w", err)
	}
	closed := map[string]bool{}
	for _, t := range l.journal.All() {
		closed[t.Instrument.Ticker+"@"+t.EntryTime.In(market.IST).Format(time.DateTime)] = true
	}

	l.positions = make(map[string]*Position)
	stale := 0
	for i, r := range rows {
		p, err := FromRow(r)
		if err != nil {
			log.Warn().Err(err).Int("row", i+1).Msg("skipping portfolio row")
			continue
		}
		if closed[p.Instrument.Ticker+"@"+p.EntryTime.In(market.IST).Format(time.DateTime)] {
			stale++
			continue
		}
		if _, dup := l.positions[p.Instrument.Ticker]; dup {
			log.Warn().Str("ticker", p.Instrument.Ticker).Msg("duplicate portfolio row ignored")
			continue
		}
		l.positions[p.Instrument.Ticker] = &p
	}
	log.Info().Int("positions", len(l.positions)).Int("blacklisted", len(l.blacklist)).
		Int("already_closed", stale).Msg("ledger hydrated")
	if stale > 0 {
		l.persist(ctx)
	}
	return nil
}

// Rollover clears the blacklist when the trading day changes.
func (l *Ledger) Rollover(day string) bool {
	if day == l.day {
		return false
	}
	l.day = day
	l.blacklist = make(map[string]bool)
	return true
}

func (l *Ledger) Day() string { return l.day }

func (l *Ledger) Held(ticker string) bool {
	_, ok := l.positions[ticker]
	return ok
}

func (l *Ledger) Blacklisted(ticker string) bool {
	return l.blacklist[ticker]
}

// Blacklist returns today's blacklisted tickers, sorted.
func (l *Ledger) Blacklist() []string {
	out := make([]string, 0, len(l.blacklist))
	for t := range l.blacklist {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) Len() int { return len(l.positions) }

// Get returns a copy of the position in ticker.
func (l *Ledger) Get(ticker string) (Position, bool) {
	p, ok := l.positions[ticker]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Positions returns copies of every open position, oldest first.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].Instrument.Ticker < out[j].Instrument.Ticker
	})
	return out
}

// Open adds a one-unit position. It is refused when the instrument is
// already held or was closed earlier today.
func (l *Ledger) Open(ctx context.Context, inst market.Instrument, entry, stop float64, strategy string, now time.Time) (Position, error) {
	l.Rollover(market.TradingDay(now))
	if l.Held(inst.Ticker) {
		return Position{}, fmt.Errorf("%w: %s", ErrAlreadyHeld, inst.Symbol)
	}
	if l.blacklist[inst.Ticker] {
		return Position{}, fmt.Errorf("%w: %s", ErrBlacklisted, inst.Symbol)
	}

	p := &Position{
		ID:         id.NewAt(now),
		Instrument: inst,
		Qty:        1,
		Entry:      market.RoundPrice(entry),
		EntryTime:  now,
		Stop:       market.RoundPrice(stop),
		Strategy:   strategy,
	}
	l.positions[inst.Ticker] = p
	log.Info().Str("ticker", inst.Ticker).Float64("entry", p.Entry).Float64("stop", p.Stop).
		Str("strategy", strategy).Msg("position opened")
	l.persist(ctx)
	return *p, nil
}

// UpdateStop raises the stop of ticker. A lower stop is refused; an equal
// one is a no-op.
func (l *Ledger) UpdateStop(ctx context.Context, ticker string, stop float64) (bool, error) {
	p, ok := l.positions[ticker]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotHeld, ticker)
	}
	stop = market.RoundPrice(stop)
	switch {
	case stop < p.Stop:
		return false, fmt.Errorf("%w: %s %.2f -> %.2f", ErrStopLowered, ticker, p.Stop, stop)
	case stop == p.Stop:
		return false, nil
	}
	log.Info().Str("ticker", ticker).Float64("from", p.Stop).Float64("to", stop).Msg("stop raised")
	p.Stop = stop
	l.persist(ctx)
	return true, nil
}

// Close removes the position in ticker, journals it and blacklists the
// instrument for the rest of the day. If the journal already holds this
// day's close for ticker the position is still removed and ErrDuplicate is
// returned, so a repeated close never produces a second journal row.
func (l *Ledger) Close(ctx context.Context, ticker string, exit float64, reason string, now time.Time) (journal.ClosedTrade, error) {
	p, ok := l.positions[ticker]
	if !ok {
		return journal.ClosedTrade{}, fmt.Errorf("%w: %s", ErrNotHeld, ticker)
	}
	l.Rollover(market.TradingDay(now))

	trade := journal.NewClosedTrade(p.Instrument, p.Qty, p.Entry, p.EntryTime,
		market.RoundPrice(exit), now, p.Strategy, reason)

	err := l.journal.Append(ctx, trade)
	switch {
	case errors.Is(err, journal.ErrDuplicate):
		log.Warn().Str("ticker", ticker).Msg("close already journaled; dropping position")
	case err != nil:
		log.Warn().Err(err).Str("ticker", ticker).Msg("journal write failed; trade kept in memory")
		err = nil
	default:
		log.Info().Str("ticker", ticker).Float64("exit", trade.Exit).Float64("pnl", trade.PnL).
			Str("result", string(trade.Result)).Str("reason", reason).Msg("position closed")
	}

	delete(l.positions, ticker)
	l.blacklist[ticker] = true
	l.persist(ctx)
	return trade, err
}

func (l *Ledger) persist(ctx context.Context) {
	ps := l.Positions()
	rows := make([]store.Row, len(ps))
	for i, p := range ps {
		rows[i] = p.Row()
	}
	if err := l.store.Overwrite(ctx, store.Portfolio, rows); err != nil {
		log.Warn().Err(err).Int("positions", len(rows)).Msg("portfolio checkpoint failed")
	}
}
