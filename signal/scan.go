package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/feed"
	"github.com/rustyeddy/sentinel/indicators"
	"github.com/rustyeddy/sentinel/market"
)

// Snapshot is one instrument's classification for one cycle.
type Snapshot struct {
	Instrument market.Instrument `json:"instrument"`
	Strategy   string            `json:"strategy"`
	Price      float64           `json:"price"`
	Trigger    float64           `json:"trigger"`
	Status     Status            `json:"status"`
	Note       string            `json:"note,omitempty"`

	// FirstSeen is today's first-confirmation anchor, zero when unset.
	FirstSeen time.Time     `json:"first_seen,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"`

	// Stale is set when the price came from last-good data.
	Stale bool `json:"stale,omitempty"`
}

func (s Snapshot) Actionable() bool { return s.Status.Actionable() }

// Display renders the status with the remaining debounce time.
func (s Snapshot) Display() string {
	if s.Status == Watching && s.Remaining > 0 {
		return fmt.Sprintf("%s (%s left)", s.Status, s.Remaining.Round(time.Second))
	}
	return string(s.Status)
}

// Scanner runs a policy over the universe.
type Scanner struct {
	Policy   Policy
	Params   Params
	Universe []market.Instrument
}

// Scan classifies every instrument in the universe. Anchors created this
// cycle are returned so the caller can persist them.
func (sc *Scanner) Scan(now time.Time, b *feed.Batch, gate Gate, conf *Confirmations) ([]Snapshot, []Confirmation) {
	day := market.TradingDay(now)
	conf.Rollover(day)

	bench := b.Daily[market.Benchmark.Ticker].Before(day)
	benchPrice, _ := b.LatestPrice(market.Benchmark.Ticker)

	snaps := make([]Snapshot, 0, len(sc.Universe))
	var fresh []Confirmation
	for _, inst := range sc.Universe {
		snap, c := sc.classify(now, day, inst, b, bench, benchPrice, gate, conf)
		snaps = append(snaps, snap)
		if c != nil {
			fresh = append(fresh, *c)
		}
	}
	return snaps, fresh
}

func (sc *Scanner) classify(now time.Time, day string, inst market.Instrument, b *feed.Batch,
	bench market.Series, benchPrice float64, gate Gate, conf *Confirmations) (snap Snapshot, fresh *Confirmation) {

	snap = Snapshot{Instrument: inst, Strategy: sc.Policy.Name(), Status: NoData}
	defer func() {
		// One bad instrument must not take the scan down.
		if r := recover(); r != nil {
			log.Error().Str("ticker", inst.Ticker).Interface("panic", r).Msg("instrument evaluation failed")
			snap = Snapshot{Instrument: inst, Strategy: sc.Policy.Name(), Status: NoData, Note: "evaluation error"}
			fresh = nil
		}
	}()

	price, ok := b.LatestPrice(inst.Ticker)
	history := b.Daily[inst.Ticker].Before(day)
	if !ok || len(history) == 0 {
		snap.Note = "no market data"
		return snap, nil
	}
	snap.Price = market.RoundPrice(price)
	if _, live := b.LiveQuote(inst.Ticker); !live {
		snap.Stale = true
	}

	volume := math.NaN()
	if v, ok := b.LatestVolume(inst.Ticker, day); ok {
		volume = v
	}
	ev := sc.Policy.Evaluate(Inputs{
		Instrument:     inst,
		Price:          price,
		History:        history,
		Volume:         volume,
		Benchmark:      bench,
		BenchmarkPrice: benchPrice,
	})
	if !ev.Ready {
		snap.Note = "insufficient history"
		return snap, nil
	}
	snap.Trigger = ev.Trigger
	snap.Note = ev.Note

	if ev.Entry {
		anchor, created := conf.Observe(inst.Ticker, now)
		if created {
			fresh = &Confirmation{Instrument: inst, At: anchor}
		}
	}
	if anchor, ok := conf.Anchor(inst.Ticker); ok {
		snap.FirstSeen = anchor
		snap.Elapsed = now.Sub(anchor)
	}

	switch {
	case !ev.Entry:
		snap.Status = ev.Aux
	case ev.Aux == Breakout:
		snap.Status = Breakout
	case snap.Elapsed < sc.Params.ConfirmWindow:
		snap.Status = Watching
		snap.Remaining = sc.Params.ConfirmWindow - snap.Elapsed
	default:
		snap.Status = Confirmed
		if market.AfterCutoff(now, sc.Params.VolumeCutoff) {
			snap.Status = sc.volumeQuality(history, volume)
		}
	}

	if snap.Status.Actionable() && !gate.Safe {
		snap.Status = MarketUnsafe
		snap.Note = gate.Reason
	}
	return snap, fresh
}

// volumeQuality compares today's volume with the average of the completed
// sessions.
func (sc *Scanner) volumeQuality(history market.Series, volume float64) Status {
	avg := indicators.SMA(history.Volumes(), sc.Params.VolumeWindow)
	if indicators.Ready(avg, volume) && volume > avg {
		return StrongBuy
	}
	return LowVolume
}

// Count tallies snapshots by status.
func Count(snaps []Snapshot) map[Status]int {
	out := make(map[Status]int, len(Statuses()))
	for _, s := range snaps {
		out[s.Status]++
	}
	return out
}
