package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Health is the connectivity view of the durable store shown in the
// operator banner.
type Health struct {
	Connected   bool      `json:"connected"`
	State       string    `json:"state"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty"`
	LastOK      time.Time `json:"last_ok,omitempty"`
}

type GuardOptions struct {
	Attempts    int           // per operation, default 3
	Backoff     time.Duration // first retry delay, default 200ms
	TripAfter   uint32        // consecutive failed operations before opening, default 2
	ReopenAfter time.Duration // open -> half-open, default 30s
	OpTimeout   time.Duration // per attempt, default 10s
}

func (o *GuardOptions) defaults() {
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 200 * time.Millisecond
	}
	if o.TripAfter == 0 {
		o.TripAfter = 2
	}
	if o.ReopenAfter <= 0 {
		o.ReopenAfter = 30 * time.Second
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = 10 * time.Second
	}
}

// Guarded wraps a Store with bounded retry and a circuit breaker. While the
// circuit is open every call fails fast with ErrUnavailable; after
// ReopenAfter the next call probes the backend again.
type Guarded struct {
	inner Store
	opts  GuardOptions
	cb    *gobreaker.CircuitBreaker

	mu     sync.Mutex
	health Health
}

func NewGuarded(inner Store, opts GuardOptions) *Guarded {
	opts.defaults()
	g := &Guarded{inner: inner, opts: opts, health: Health{Connected: true, State: "closed"}}
	st := gobreaker.Settings{
		Name:    "store",
		Timeout: opts.ReopenAfter,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.TripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("circuit", name).Str("from", from.String()).Str("to", to.String()).
				Msg("durable store circuit changed state")
			g.mu.Lock()
			g.health.State = to.String()
			if to == gobreaker.StateOpen {
				g.health.Connected = false
			}
			g.mu.Unlock()
		},
	}
	g.cb = gobreaker.NewCircuitBreaker(st)
	return g
}

func (g *Guarded) do(ctx context.Context, op string, t Table, fn func(context.Context) error) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, WithRetry(ctx, g.opts.Attempts, g.opts.Backoff, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, g.opts.OpTimeout)
			defer cancel()
			return fn(ctx)
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%s %s: %w", op, t, ErrUnavailable)
	}
	g.record(err)
	if err != nil {
		log.Warn().Err(err).Str("op", op).Str("table", string(t)).Msg("durable store operation failed")
	}
	return err
}

func (g *Guarded) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if err != nil {
		g.health.Connected = false
		g.health.LastError = err.Error()
		g.health.LastErrorAt = now
		return
	}
	g.health.Connected = true
	g.health.LastOK = now
}

func (g *Guarded) Health() Health {
	state := g.cb.State()
	g.mu.Lock()
	defer g.mu.Unlock()
	h := g.health
	h.State = state.String()
	if state == gobreaker.StateOpen {
		h.Connected = false
	}
	return h
}

func (g *Guarded) Read(ctx context.Context, t Table) ([]Row, error) {
	var rows []Row
	err := g.do(ctx, "read", t, func(ctx context.Context) error {
		var err error
		rows, err = g.inner.Read(ctx, t)
		return err
	})
	return rows, err
}

func (g *Guarded) Overwrite(ctx context.Context, t Table, rows []Row) error {
	return g.do(ctx, "overwrite", t, func(ctx context.Context) error {
		return g.inner.Overwrite(ctx, t, rows)
	})
}

func (g *Guarded) Append(ctx context.Context, t Table, rows ...Row) error {
	return g.do(ctx, "append", t, func(ctx context.Context) error {
		return g.inner.Append(ctx, t, rows...)
	})
}

func (g *Guarded) Ping(ctx context.Context) error {
	return g.do(ctx, "ping", "", g.inner.Ping)
}

func (g *Guarded) Close() error { return g.inner.Close() }
