package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/journal"
	"github.com/rustyeddy/sentinel/ledger"
	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/risk"
	"github.com/rustyeddy/sentinel/signal"
)

// ManualStrategy tags positions opened by the operator.
const ManualStrategy = "Manual"

// ReasonManual is the close reason of an operator close.
const ReasonManual = "manual"

var (
	ErrUnknownInstrument = errors.New("instrument not in universe")
	ErrNoPrice           = errors.New("no price available")
	ErrTradingDisabled   = errors.New("trading disabled: durable store disconnected")
)

// AddPosition opens a position by hand. A zero entry uses the last known
// price and a zero stop uses the configured initial risk.
func (e *Engine) AddPosition(ctx context.Context, key string, entry, stop float64) (ledger.Position, error) {
	inst, ok := market.Lookup(e.opts.Universe, key)
	if !ok {
		return ledger.Position{}, fmt.Errorf("%w: %s", ErrUnknownInstrument, key)
	}
	var pos ledger.Position
	err := e.Do(ctx, func(s *State) error {
		if !e.store.Health().Connected {
			return ErrTradingDisabled
		}
		if entry <= 0 && s.Batch != nil {
			entry, _ = s.Batch.LatestPrice(inst.Ticker)
		}
		if entry <= 0 {
			return fmt.Errorf("%w for %s", ErrNoPrice, inst.Symbol)
		}
		entry = market.RoundPrice(entry)
		if stop <= 0 {
			stop = risk.InitialStop(entry, s.Settings.Risk.RiskPct)
		}
		if stop >= entry {
			return fmt.Errorf("stop %.2f must be below entry %.2f", stop, entry)
		}
		now := e.clock.Now()
		p, err := s.Ledger.Open(ctx, inst, entry, market.RoundPrice(stop), ManualStrategy, now)
		if err != nil {
			return err
		}
		pos = p
		s.notify(now, "info", "BOUGHT %s at %.2f (manual), stop %.2f", p.Instrument.Symbol, p.Entry, p.Stop)
		return nil
	})
	return pos, err
}

// ClosePosition closes a position at the current price, bypassing the exit
// rules. The price comes from a fresh fetch, falling back to the last
// cycle's data.
func (e *Engine) ClosePosition(ctx context.Context, key string) (journal.ClosedTrade, error) {
	inst, ok := market.Lookup(e.opts.Universe, key)
	if !ok {
		inst = market.NewInstrument(key)
	}
	fresh := e.market.Fetch(ctx, []string{inst.Ticker})

	var trade journal.ClosedTrade
	err := e.Do(ctx, func(s *State) error {
		if !s.Ledger.Held(inst.Ticker) {
			return fmt.Errorf("%w: %s", ledger.ErrNotHeld, inst.Symbol)
		}
		price, ok := fresh.LatestPrice(inst.Ticker)
		if !ok && s.Batch != nil {
			price, ok = s.Batch.LatestPrice(inst.Ticker)
		}
		if !ok {
			return fmt.Errorf("%w for %s", ErrNoPrice, inst.Symbol)
		}
		logger := log.With().Str("command", "close").Logger()
		t, err := e.closePosition(ctx, logger, e.clock.Now(), inst.Ticker, price, ReasonManual)
		trade = t
		return err
	})
	return trade, err
}

// SetMode switches the scanning strategy. Confirmation timers belong to a
// strategy, so they start over.
func (e *Engine) SetMode(ctx context.Context, mode string) error {
	return e.Do(ctx, func(s *State) error { return e.setMode(s, mode) })
}

func (e *Engine) setMode(s *State, mode string) error {
	policy, err := signal.PolicyByName(mode, e.opts.Params)
	if err != nil {
		return err
	}
	if policy.Name() == s.Settings.Mode {
		return nil
	}
	e.scanner = &signal.Scanner{Policy: policy, Params: e.opts.Params, Universe: e.opts.Universe}
	s.Settings.Mode = policy.Name()
	s.Confirmations = signal.NewConfirmations(s.Day)
	s.Snapshots = nil
	log.Info().Str("mode", policy.Name()).Msg("strategy mode changed")
	s.notify(e.clock.Now(), "info", "strategy mode set to %s", policy.Name())
	return nil
}

func (e *Engine) SetAutoBuy(ctx context.Context, on bool) error {
	return e.Do(ctx, func(s *State) error {
		s.Settings.AutoBuy = on
		log.Info().Bool("auto_buy", on).Msg("setting changed")
		return nil
	})
}

func (e *Engine) SetAutoSell(ctx context.Context, on bool) error {
	return e.Do(ctx, func(s *State) error {
		s.Settings.AutoSell = on
		clear(s.stopAlerts)
		log.Info().Bool("auto_sell", on).Msg("setting changed")
		return nil
	})
}

func (e *Engine) SetRisk(ctx context.Context, p risk.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return e.Do(ctx, func(s *State) error {
		s.Settings.Risk = p
		log.Info().Float64("risk_pct", p.RiskPct).Float64("capital", p.Capital).Msg("risk policy changed")
		return nil
	})
}

// SetTrail changes the trailing distance. Existing stops are never lowered;
// the new distance applies from the next ratchet.
func (e *Engine) SetTrail(ctx context.Context, pct float64) error {
	return e.Do(ctx, func(s *State) error {
		r := s.Settings.Exits
		r.TrailPct = pct
		if err := r.Validate(); err != nil {
			return err
		}
		s.Settings.Exits = r
		log.Info().Float64("trail_pct", pct).Msg("trailing stop changed")
		return nil
	})
}

// ApplySettings replaces every operator setting at once after validating
// the whole set.
func (e *Engine) ApplySettings(ctx context.Context, next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	return e.Do(ctx, func(s *State) error {
		if err := e.setMode(s, next.Mode); err != nil {
			return err
		}
		if next.AutoSell != s.Settings.AutoSell {
			clear(s.stopAlerts)
		}
		s.Settings.AutoBuy = next.AutoBuy
		s.Settings.AutoSell = next.AutoSell
		s.Settings.Risk = next.Risk
		s.Settings.Exits = next.Exits
		log.Info().Str("mode", s.Settings.Mode).Bool("auto_buy", next.AutoBuy).
			Bool("auto_sell", next.AutoSell).Msg("settings applied")
		return nil
	})
}

func (s Settings) Validate() error {
	if _, err := signal.PolicyByName(s.Mode, signal.DefaultParams()); err != nil {
		return err
	}
	if err := s.Risk.Validate(); err != nil {
		return err
	}
	return s.Exits.Validate()
}

