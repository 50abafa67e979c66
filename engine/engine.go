// Package engine runs the polling loop: fetch, classify, open, manage exits,
// publish. One cycle runs to completion before the next starts, and every
// mutation of State happens on the loop goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/config"
	"github.com/rustyeddy/sentinel/feed"
	"github.com/rustyeddy/sentinel/journal"
	"github.com/rustyeddy/sentinel/ledger"
	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/pkg/clock"
	"github.com/rustyeddy/sentinel/signal"
	"github.com/rustyeddy/sentinel/store"
)

// MarketData supplies one cycle's batch. It must not fail; problems are
// reported inside the batch.
type MarketData interface {
	Fetch(ctx context.Context, tickers []string) *feed.Batch
}

// Store is a durable store that reports its own connectivity.
type Store interface {
	store.Store
	Health() store.Health
}

type Options struct {
	Universe       []market.Instrument
	Params         signal.Params
	Settings       Settings
	OpenInterval   time.Duration
	ClosedInterval time.Duration
}

// OptionsFromConfig maps the file configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Universe: market.Nifty50(),
		Params:   cfg.SignalParams(),
		Settings: Settings{
			Mode:     cfg.Strategy.Mode,
			AutoBuy:  cfg.Trading.AutoBuy,
			AutoSell: cfg.Trading.AutoSell,
			Risk:     cfg.RiskPolicy(),
			Exits:    cfg.ExitRules(),
		},
		OpenInterval:   time.Duration(cfg.Schedule.OpenInterval),
		ClosedInterval: time.Duration(cfg.Schedule.ClosedInterval),
	}
}

type command struct {
	fn   func(*State) error
	done chan error
}

type Engine struct {
	clock   clock.Clock
	market  MarketData
	store   Store
	metrics *Metrics
	opts    Options

	scanner *signal.Scanner
	state   *State

	cmds    chan command
	stopped chan struct{}
	running atomic.Bool
	status  atomic.Pointer[Status]
}

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("engine stopped")

func New(c clock.Clock, md MarketData, st Store, m *Metrics, opts Options) (*Engine, error) {
	if c == nil {
		c = clock.Real{}
	}
	if m == nil {
		m = NewMetrics(nil)
	}
	if len(opts.Universe) == 0 {
		opts.Universe = market.Nifty50()
	}
	if opts.OpenInterval <= 0 {
		opts.OpenInterval = 30 * time.Second
	}
	if opts.ClosedInterval <= 0 {
		opts.ClosedInterval = 5 * time.Minute
	}
	policy, err := signal.PolicyByName(opts.Settings.Mode, opts.Params)
	if err != nil {
		return nil, err
	}
	opts.Settings.Mode = policy.Name()

	day := market.TradingDay(c.Now())
	j := journal.New(st)
	e := &Engine{
		clock:   c,
		market:  md,
		store:   st,
		metrics: m,
		opts:    opts,
		scanner: &signal.Scanner{Policy: policy, Params: opts.Params, Universe: opts.Universe},
		state: &State{
			Settings:      opts.Settings,
			Day:           day,
			Ledger:        ledger.New(st, j, day),
			Journal:       j,
			Confirmations: signal.NewConfirmations(day),
			stopAlerts:    make(map[string]bool),
		},
		cmds:    make(chan command),
		stopped: make(chan struct{}),
	}
	e.publish()
	return e, nil
}

// Journal exposes the trade history; it is safe for concurrent reads.
func (e *Engine) Journal() *journal.Journal { return e.state.Journal }

// Hydrate restores the journal, the open positions and today's
// confirmation anchors from the durable store. Failures are logged and the
// engine starts from whatever could be read.
func (e *Engine) Hydrate(ctx context.Context) {
	s := e.state
	now := e.clock.Now()
	if err := s.Journal.Hydrate(ctx); err != nil {
		log.Warn().Err(err).Msg("journal not loaded")
		s.notify(now, "warn", "journal not loaded: %v", err)
	}
	if err := s.Ledger.Hydrate(ctx); err != nil {
		log.Warn().Err(err).Msg("portfolio not loaded")
		s.notify(now, "warn", "portfolio not loaded: %v", err)
	}
	rows, err := e.store.Read(ctx, store.SignalLog)
	if err != nil {
		log.Warn().Err(err).Msg("signal log not loaded")
	} else if n := s.Confirmations.RestoreLog(rows, e.opts.Universe); n > 0 {
		log.Info().Int("anchors", n).Str("day", s.Day).Msg("confirmation timers restored")
	}
	e.publish()
}

func (e *Engine) interval(now time.Time) time.Duration {
	if market.SessionOpen(now) {
		return e.opts.OpenInterval
	}
	return e.opts.ClosedInterval
}

// Run cycles until ctx is done, serving commands between cycles. An engine
// runs at most once.
func (e *Engine) Run(ctx context.Context) error {
	select {
	case <-e.stopped:
		return ErrStopped
	default:
	}
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer close(e.stopped)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-e.cmds:
			cmd.done <- e.apply(cmd.fn)
		case <-timer.C:
			e.Cycle(ctx)
			next := e.interval(e.clock.Now())
			log.Debug().Dur("next", next).Msg("cycle scheduled")
			timer.Reset(next)
		}
	}
}

func (e *Engine) apply(fn func(*State) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("command failed")
			err = fmt.Errorf("command panicked: %v", r)
		}
	}()
	err = fn(e.state)
	e.publish()
	return err
}

// Do runs fn against the state on the loop goroutine. When the loop is not
// running fn runs inline on the caller's goroutine.
func (e *Engine) Do(ctx context.Context, fn func(*State) error) error {
	if !e.running.Load() {
		return e.apply(fn)
	}
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case e.cmds <- cmd:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the last published status. Callers must not modify it.
func (e *Engine) Status() *Status {
	return e.status.Load()
}
