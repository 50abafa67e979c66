package signal

import (
	"github.com/rustyeddy/sentinel/indicators"
	"github.com/rustyeddy/sentinel/market"
)

// Sentinel is the trend-breakout strategy: price clears the prior
// five-session high by a small buffer, sits above the long trend line, and
// the instrument has outperformed the benchmark over the leadership window.
type Sentinel struct {
	Params Params
}

func (Sentinel) Name() string { return "Sentinel" }

func (s Sentinel) Evaluate(in Inputs) Evaluation {
	p := s.Params
	closes := in.Closes()

	high := indicators.HighestHigh(in.History, p.HighLookback)
	trend := indicators.TrendLine(closes, p.TrendWindow)
	ret := indicators.PctReturn(closes, p.LeaderWindow)
	benchRet := indicators.PctReturn(in.BenchmarkCloses(), p.LeaderWindow)
	if !indicators.Ready(high, trend, ret, benchRet) {
		return Evaluation{Aux: NoData}
	}

	trigger := market.RoundPrice(high * (1 + p.BreakoutBuffer))
	ev := Evaluation{Ready: true, Trigger: trigger, Aux: Wait}
	switch {
	case in.Price <= trigger:
		ev.Note = "below breakout level"
	case in.Price <= trend:
		ev.Note = "below long-term trend"
	case ret <= benchRet:
		ev.Note = "lagging benchmark"
	default:
		ev.Entry = true
	}
	return ev
}
