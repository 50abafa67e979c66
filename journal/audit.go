package journal

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/sentinel/market"
)

// Ratio is a float that may be +Inf (no losers yet). It encodes +Inf as the
// string "inf" because JSON has no infinity.
type Ratio float64

func (r Ratio) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(r), 1) {
		return []byte(`"inf"`), nil
	}
	return json.Marshal(float64(r))
}

// StrategyStats is one row of the strategy showdown.
type StrategyStats struct {
	Strategy string  `json:"strategy"`
	Trades   int     `json:"trades"`
	Wins     int     `json:"wins"`
	NetPnL   float64 `json:"net_pnl"`
	AvgPnL   float64 `json:"avg_pnl"`
}

// Audit summarises a trade history.
type Audit struct {
	Created time.Time `json:"created"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`

	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"win_rate"` // 0..1

	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"` // negative
	RewardRisk   Ratio   `json:"reward_risk"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"` // positive
	NetPnL       float64 `json:"net_pnl"`
	ProfitFactor Ratio   `json:"profit_factor"`

	ByStrategy []StrategyStats `json:"by_strategy"`
}

// Summarize computes the performance audit. Averages are taken over
// strictly positive and strictly negative trades; flat trades count as
// losses in the win rate only.
func Summarize(trades []ClosedTrade, now time.Time) Audit {
	a := Audit{Created: now, Trades: len(trades)}
	if len(trades) == 0 {
		return a
	}

	byStrat := map[string]*StrategyStats{}
	var winN, lossN int
	for _, t := range trades {
		if a.Start.IsZero() || t.ExitTime.Before(a.Start) {
			a.Start = t.ExitTime
		}
		if t.ExitTime.After(a.End) {
			a.End = t.ExitTime
		}
		if t.Result == Win {
			a.Wins++
		}
		a.NetPnL += t.PnL
		switch {
		case t.PnL > 0:
			a.GrossProfit += t.PnL
			winN++
		case t.PnL < 0:
			a.GrossLoss -= t.PnL
			lossN++
		}

		name := t.Strategy
		if name == "" {
			name = "(none)"
		}
		s, ok := byStrat[name]
		if !ok {
			s = &StrategyStats{Strategy: name}
			byStrat[name] = s
		}
		s.Trades++
		s.NetPnL += t.PnL
		if t.Result == Win {
			s.Wins++
		}
	}

	a.Losses = a.Trades - a.Wins
	a.WinRate = float64(a.Wins) / float64(a.Trades)
	if winN > 0 {
		a.AvgWin = market.RoundPrice(a.GrossProfit / float64(winN))
	}
	if lossN > 0 {
		a.AvgLoss = market.RoundPrice(-a.GrossLoss / float64(lossN))
	}

	a.RewardRisk = Ratio(math.Inf(1))
	if a.AvgLoss != 0 {
		a.RewardRisk = Ratio(math.Abs(a.AvgWin / a.AvgLoss))
	}
	switch {
	case a.GrossLoss > 0:
		a.ProfitFactor = Ratio(a.GrossProfit / a.GrossLoss)
	case a.GrossProfit > 0:
		a.ProfitFactor = Ratio(math.Inf(1))
	}
	a.NetPnL = market.RoundPrice(a.NetPnL)
	a.GrossProfit = market.RoundPrice(a.GrossProfit)
	a.GrossLoss = market.RoundPrice(a.GrossLoss)

	for _, s := range byStrat {
		s.NetPnL = market.RoundPrice(s.NetPnL)
		s.AvgPnL = market.RoundPrice(s.NetPnL / float64(s.Trades))
		a.ByStrategy = append(a.ByStrategy, *s)
	}
	sort.Slice(a.ByStrategy, func(i, j int) bool {
		return a.ByStrategy[i].Strategy < a.ByStrategy[j].Strategy
	})
	return a
}
