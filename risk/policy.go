package risk

import (
	"fmt"
	"time"
)

// Policy holds the operator's risk settings. Percentages are in percent
// (2 means 2%).
type Policy struct {
	Capital float64 `json:"capital"`
	RiskPct float64 `json:"risk-pct"` // initial stop distance

	// Optional circuit breakers; zero disables a check and is the default.
	MaxOpenPositions int     `json:"max-open-positions"`
	MaxDailyLossPct  float64 `json:"max-daily-loss-pct"`
}

func DefaultPolicy() Policy {
	return Policy{
		Capital: 100000,
		RiskPct: 2,
	}
}

func (p Policy) Validate() error {
	if p.Capital <= 0 {
		return fmt.Errorf("capital must be positive, got %.2f", p.Capital)
	}
	if p.RiskPct <= 0 || p.RiskPct >= 100 {
		return fmt.Errorf("risk-pct must be in (0, 100), got %.2f", p.RiskPct)
	}
	if p.MaxOpenPositions < 0 || p.MaxDailyLossPct < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}
	return nil
}

// Intent is a position the Auto-Bot would like to open.
type Intent struct {
	Now    time.Time
	Ticker string
	Qty    int
	Entry  float64
	Stop   float64
}

// Book is the current exposure.
type Book struct {
	OpenPositions int
	DayRealized   float64
}
