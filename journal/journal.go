// Package journal is the append-only record of closed trades.
//
// The durable store is the long-term source of truth; the Journal keeps an
// in-memory copy that is hydrated at start and appended to locally, so the
// duplicate-closure guard works even while the store is unreachable.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/store"
)

// ErrDuplicate is returned when a trade for the same ticker already closed
// on the same day.
var ErrDuplicate = errors.New("trade already closed today")

type Journal struct {
	store store.Store

	mu     sync.RWMutex
	trades []ClosedTrade
}

func New(s store.Store) *Journal {
	return &Journal{store: s}
}

// Hydrate replaces the in-memory copy with the Journal table. Malformed rows
// are skipped.
func (j *Journal) Hydrate(ctx context.Context) error {
	rows, err := j.store.Read(ctx, store.Journal)
	if err != nil {
		return fmt.Errorf("journal: hydrate: %w", err)
	}
	trades := make([]ClosedTrade, 0, len(rows))
	for i, r := range rows {
		t, err := FromRow(r)
		if err != nil {
			log.Warn().Err(err).Int("row", i+1).Msg("skipping journal row")
			continue
		}
		trades = append(trades, t)
	}

	j.mu.Lock()
	j.trades = trades
	j.mu.Unlock()
	log.Info().Int("trades", len(trades)).Msg("journal hydrated")
	return nil
}

// Append records t unless a trade for the same ticker already closed on t's
// exit date. The trade is kept in memory even when the durable write fails;
// that failure is returned for the caller to surface.
func (j *Journal) Append(ctx context.Context, t ClosedTrade) error {
	j.mu.Lock()
	if j.hasClosedOn(t.Instrument.Ticker, t.ExitDate()) {
		j.mu.Unlock()
		return fmt.Errorf("%w: %s on %s", ErrDuplicate, t.Instrument.Symbol, t.ExitDate())
	}
	j.trades = append(j.trades, t)
	j.mu.Unlock()

	if err := j.store.Append(ctx, store.Journal, t.Row()); err != nil {
		return fmt.Errorf("journal: persist %s: %w", t.Instrument.Symbol, err)
	}
	return nil
}

func (j *Journal) hasClosedOn(ticker, day string) bool {
	for i := len(j.trades) - 1; i >= 0; i-- {
		if j.trades[i].Instrument.Ticker == ticker && j.trades[i].ExitDate() == day {
			return true
		}
	}
	return false
}

// HasClosedOn reports whether ticker has a closed trade with exit date day.
func (j *Journal) HasClosedOn(ticker, day string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.hasClosedOn(ticker, day)
}

// ClosedOn returns the trades that exited on day.
func (j *Journal) ClosedOn(day string) []ClosedTrade {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []ClosedTrade
	for _, t := range j.trades {
		if t.ExitDate() == day {
			out = append(out, t)
		}
	}
	return out
}

// RealizedOn sums the P&L of trades that exited on day.
func (j *Journal) RealizedOn(day string) float64 {
	sum := 0.0
	for _, t := range j.ClosedOn(day) {
		sum += t.PnL
	}
	return sum
}

// All returns a copy of the full history, oldest first.
func (j *Journal) All() []ClosedTrade {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]ClosedTrade, len(j.trades))
	copy(out, j.trades)
	return out
}

func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.trades)
}
