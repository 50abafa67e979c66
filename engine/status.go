package engine

import (
	"time"

	"github.com/rustyeddy/sentinel/ledger"
	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/risk"
	"github.com/rustyeddy/sentinel/signal"
	"github.com/rustyeddy/sentinel/store"
)

const (
	BannerStoreDown    = "Cloud Database: DISCONNECTED — trading disabled"
	BannerFeedDegraded = "Market Data: DEGRADED"
)

// PositionView is an open position marked to the last known price.
type PositionView struct {
	ledger.Position
	Price        float64 `json:"price"`
	PnL          float64 `json:"pnl"`
	PnLPct       float64 `json:"pnl_pct"`
	Frozen       bool    `json:"frozen"` // no live quote this cycle; stop not managed
	SuggestedQty int     `json:"suggested_qty"`
}

// Status is an immutable view of the engine after a cycle or command. It
// is what the dashboard and the CLI render.
type Status struct {
	CycleID       string            `json:"cycle_id"`
	Time          time.Time         `json:"time"`
	Day           string            `json:"day"`
	SessionOpen   bool              `json:"session_open"`
	Settings      Settings          `json:"settings"`
	Banners       []string          `json:"banners"`
	Store         store.Health      `json:"store"`
	FeedDegraded  bool              `json:"feed_degraded"`
	FeedFailures  []string          `json:"feed_failures,omitempty"`
	Gate          signal.Gate       `json:"gate"`
	Signals       []signal.Snapshot `json:"signals"`
	Positions     []PositionView    `json:"positions"`
	Blacklist     []string          `json:"blacklist"`
	Notifications []Notification    `json:"notifications"`
	RealizedToday float64           `json:"realized_today"`
}

// Trading reports whether entries are currently possible.
func (s *Status) Trading() bool {
	return s.Store.Connected
}

// Position finds the view of ticker.
func (s *Status) Position(ticker string) (PositionView, bool) {
	for _, p := range s.Positions {
		if p.Instrument.Ticker == ticker {
			return p, true
		}
	}
	return PositionView{}, false
}

// publish builds a Status from the state and swaps it in. Only the loop
// goroutine (or an inline Do) calls it.
func (e *Engine) publish() *Status {
	s := e.state
	now := e.clock.Now()
	health := e.store.Health()

	st := &Status{
		CycleID:       s.CycleID,
		Time:          now,
		Day:           s.Day,
		SessionOpen:   market.SessionOpen(now),
		Settings:      s.Settings,
		Store:         health,
		Gate:          s.Gate,
		Signals:       append([]signal.Snapshot(nil), s.Snapshots...),
		Blacklist:     s.Ledger.Blacklist(),
		Notifications: append([]Notification(nil), s.Notifications...),
		RealizedToday: s.Journal.RealizedOn(s.Day),
	}
	if !s.CycleAt.IsZero() {
		st.Time = s.CycleAt
	}
	if !health.Connected {
		st.Banners = append(st.Banners, BannerStoreDown)
	}
	if b := s.Batch; b != nil && (b.Degraded() || b.Empty()) {
		st.FeedDegraded = true
		st.FeedFailures = sortedFailures(b.Failures)
		st.Banners = append(st.Banners, BannerFeedDegraded)
	}

	for _, p := range s.Ledger.Positions() {
		v := PositionView{
			Position:     p,
			Price:        p.Entry,
			Frozen:       true,
			SuggestedQty: risk.SuggestedQty(s.Settings.Risk.Capital, s.Settings.Risk.RiskPct, p.Entry, p.Stop),
		}
		if s.Batch != nil {
			if price, ok := s.Batch.LiveQuote(p.Instrument.Ticker); ok {
				v.Price, v.Frozen = price, false
			} else if price, ok := s.Batch.LatestPrice(p.Instrument.Ticker); ok {
				v.Price = price
			}
		}
		v.PnL = market.RoundPrice((v.Price - p.Entry) * float64(p.Qty))
		v.PnLPct = p.PnLPct(v.Price)
		st.Positions = append(st.Positions, v)
	}

	e.metrics.OpenPositions.Set(float64(len(st.Positions)))
	if health.Connected {
		e.metrics.StoreConnected.Set(1)
	} else {
		e.metrics.StoreConnected.Set(0)
	}
	e.status.Store(st)
	return st
}
