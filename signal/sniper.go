package signal

import (
	"fmt"

	"github.com/rustyeddy/sentinel/indicators"
	"github.com/rustyeddy/sentinel/market"
)

// Sniper is the volatility/volume strategy. A volume spike with strong
// momentum is a breakout at the current price with no confirmation delay.
// A Bollinger squeeze alone is only reported as coiling.
type Sniper struct {
	Params Params
}

func (Sniper) Name() string { return "Sniper" }

func (s Sniper) Evaluate(in Inputs) Evaluation {
	p := s.Params
	closes := in.Closes()

	rsi := indicators.RSI(closes, p.RSIPeriod)
	width := indicators.BollingerWidth(closes, p.BandWindow, p.BandK)
	if !indicators.Ready(rsi, width) {
		return Evaluation{Aux: NoData}
	}
	// Unknown intraday volume just means no spike.
	ratio := indicators.VolumeRatio(in.Volumes(), p.VolumeWindow)

	price := market.RoundPrice(in.Price)
	switch {
	case indicators.Ready(ratio) && ratio > p.SpikeRatio && rsi > p.RSIMin:
		return Evaluation{Ready: true, Entry: true, Trigger: price, Aux: Breakout,
			Note: fmt.Sprintf("volume %.1fx, rsi %.0f", ratio, rsi)}
	case width < p.SqueezeThreshold:
		return Evaluation{Ready: true, Trigger: price, Aux: Watching,
			Note: fmt.Sprintf("coiling, width %.3f", width)}
	default:
		return Evaluation{Ready: true, Trigger: price, Aux: Wait}
	}
}
