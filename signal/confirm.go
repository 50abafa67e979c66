package signal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/store"
)

// Confirmations holds the first-confirmation anchor of every instrument for
// the current trading day. Anchors never move once set and are all dropped
// when the day changes.
type Confirmations struct {
	day   string
	first map[string]time.Time
}

func NewConfirmations(day string) *Confirmations {
	return &Confirmations{day: day, first: make(map[string]time.Time)}
}

// Clone returns an independent copy, for scans that must not move anchors.
func (c *Confirmations) Clone() *Confirmations {
	out := NewConfirmations(c.day)
	for k, v := range c.first {
		out.first[k] = v
	}
	return out
}

func (c *Confirmations) Day() string { return c.day }

func (c *Confirmations) Len() int { return len(c.first) }

// Rollover starts a new trading day. It reports whether anything changed.
func (c *Confirmations) Rollover(day string) bool {
	if day == c.day {
		return false
	}
	c.day = day
	c.first = make(map[string]time.Time)
	return true
}

// Anchor returns the first-confirmation time of ticker today.
func (c *Confirmations) Anchor(ticker string) (time.Time, bool) {
	t, ok := c.first[ticker]
	return t, ok
}

// Observe records that ticker's entry condition holds at now. It returns the
// anchor and whether this call created it.
func (c *Confirmations) Observe(ticker string, now time.Time) (time.Time, bool) {
	c.Rollover(market.TradingDay(now))
	if t, ok := c.first[ticker]; ok {
		return t, false
	}
	c.first[ticker] = now
	return now, true
}

// Restore re-installs an anchor read back from the signal log. Anchors from
// another day are ignored; the earliest anchor wins.
func (c *Confirmations) Restore(ticker string, at time.Time) bool {
	if market.TradingDay(at) != c.day {
		return false
	}
	if t, ok := c.first[ticker]; ok && !at.Before(t) {
		return false
	}
	c.first[ticker] = at
	return true
}

// RestoreLog replays Signal_Log rows for today. Unknown symbols and
// malformed rows are skipped.
func (c *Confirmations) RestoreLog(rows []store.Row, universe []market.Instrument) int {
	n := 0
	for _, r := range rows {
		if r["Date"] != c.day {
			continue
		}
		inst, ok := market.Lookup(universe, r["Symbol"])
		if !ok {
			continue
		}
		at, err := time.ParseInLocation(market.DayLayout+" "+market.TimeLayout, r["Date"]+" "+r["Time"], market.IST)
		if err != nil {
			continue
		}
		if c.Restore(inst.Ticker, at) {
			n++
		}
	}
	return n
}

// Confirmation is a freshly created anchor, to be appended to Signal_Log.
type Confirmation struct {
	Instrument market.Instrument
	At         time.Time
}

func (c Confirmation) Row() store.Row {
	at := c.At.In(market.IST)
	return store.Row{
		"Date":   at.Format(market.DayLayout),
		"Symbol": c.Instrument.Symbol,
		"Time":   at.Format(market.TimeLayout),
	}
}

func (c Confirmation) String() string {
	return fmt.Sprintf("%s@%s", c.Instrument.Symbol, c.At.In(market.IST).Format(market.TimeLayout))
}
