package signal

import (
	"time"

	"github.com/rustyeddy/sentinel/feed"
	"github.com/rustyeddy/sentinel/market"
)

var infy = market.NewInstrument("INFY.NS")

// session returns 09:15 IST on the given calendar date.
func session(day time.Time) time.Time {
	y, m, d := day.In(market.IST).Date()
	return time.Date(y, m, d, 9, 15, 0, 0, market.IST)
}

func candle(t time.Time, close, volume float64) market.Candle {
	return market.Candle{Time: t, Open: close, High: close, Low: close, Close: close, Volume: volume}
}

// history builds n gently rising completed sessions ending the day before now.
func history(now time.Time, n int, base, step, volume float64) market.Series {
	s := make(market.Series, 0, n)
	for i := 0; i < n; i++ {
		day := now.AddDate(0, 0, i-n)
		s = append(s, candle(session(day), base+step*float64(i), volume))
	}
	return s
}

type scene struct {
	now        time.Time
	price      float64
	volume     float64
	benchPrice float64
	sessions   int
}

// batch returns a market where INFY trends up from 100 (last completed close
// 125.9, 60 sessions back 120) and the benchmark drifts from 1000 (last
// completed close 1002.59, 20-session mean 1002.495).
func (sc scene) batch() *feed.Batch {
	if sc.sessions == 0 {
		sc.sessions = 260
	}
	if sc.volume == 0 {
		sc.volume = 1000
	}
	if sc.benchPrice == 0 {
		sc.benchPrice = 1003
	}
	inst := append(history(sc.now, sc.sessions, 100, 0.1, 1000), candle(session(sc.now), sc.price, sc.volume))
	bench := append(history(sc.now, 260, 1000, 0.01, 0), candle(session(sc.now), sc.benchPrice, 0))
	return feed.NewBatch(sc.now,
		map[string]market.Series{infy.Ticker: inst, market.Benchmark.Ticker: bench},
		map[string]market.Series{
			infy.Ticker:             {candle(sc.now, sc.price, 10)},
			market.Benchmark.Ticker: {candle(sc.now, sc.benchPrice, 0)},
		},
	)
}

func (sc scene) gate() Gate {
	b := sc.batch()
	day := market.TradingDay(sc.now)
	price, _ := b.LatestPrice(market.Benchmark.Ticker)
	return EvaluateGate(b.Daily[market.Benchmark.Ticker].Before(day), price, DefaultParams())
}

func at(hh, mm, ss int) time.Time {
	return time.Date(2025, 3, 3, hh, mm, ss, 0, market.IST)
}

func newScanner(name string) *Scanner {
	p := DefaultParams()
	pol, err := PolicyByName(name, p)
	if err != nil {
		panic(err)
	}
	return &Scanner{Policy: pol, Params: p, Universe: []market.Instrument{infy}}
}

func scanOne(sc *Scanner, s scene, conf *Confirmations) (Snapshot, []Confirmation) {
	snaps, fresh := sc.Scan(s.now, s.batch(), s.gate(), conf)
	return snaps[0], fresh
}
