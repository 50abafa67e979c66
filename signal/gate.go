package signal

import (
	"fmt"

	"github.com/rustyeddy/sentinel/indicators"
	"github.com/rustyeddy/sentinel/market"
)

// Gate is the market safety verdict for one cycle.
type Gate struct {
	Safe         bool    `json:"safe"`
	MacroBullish bool    `json:"macro_bullish"`
	Bleeding     bool    `json:"bleeding"`
	Price        float64 `json:"price"`
	Trend        float64 `json:"trend"`
	ChangePct    float64 `json:"change_pct"`
	Reason       string  `json:"reason,omitempty"`
}

// EvaluateGate checks the benchmark: buying is allowed only while its price
// is above its short trend line and its move since the previous close is
// not below the bleed floor. Without benchmark data the gate is closed.
func EvaluateGate(history market.Series, price float64, p Params) Gate {
	prev, ok := history.Last()
	if !ok || price <= 0 {
		return Gate{Reason: "benchmark data unavailable"}
	}
	trend := indicators.TrendLine(history.Closes(), p.GateTrendWindow)
	if !indicators.Ready(trend) {
		return Gate{Price: price, Reason: "benchmark history too short"}
	}

	g := Gate{
		Price:     price,
		Trend:     trend,
		ChangePct: market.PctChange(prev.Close, price),
	}
	g.MacroBullish = price > trend
	g.Bleeding = g.ChangePct < p.BleedFloorPct
	g.Safe = g.MacroBullish && !g.Bleeding
	switch {
	case !g.MacroBullish:
		g.Reason = fmt.Sprintf("benchmark %.2f below %d-session trend %.2f", price, p.GateTrendWindow, trend)
	case g.Bleeding:
		g.Reason = fmt.Sprintf("benchmark down %.2f%% today", g.ChangePct)
	}
	return g
}
