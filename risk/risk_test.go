package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitialStop(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 98.0, InitialStop(100, 2))
	assert.Equal(t, 1212.75, InitialStop(1237.5, 2))
	assert.Equal(t, 100.0, InitialStop(100, -1))
}

func TestSuggestedQty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                      string
		capital, pct, entry, stop float64
		want                      int
	}{
		{"two percent of 1L over 2 rupees", 100000, 2, 100, 98, 1000},
		{"rounds down", 10000, 1, 300, 293, 14},
		{"stop above entry", 100000, 2, 100, 101, 0},
		{"no capital", 0, 2, 100, 98, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SuggestedQty(tc.capital, tc.pct, tc.entry, tc.stop))
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	intent := Intent{Ticker: "INFY.NS", Qty: 1, Entry: 100, Stop: 98}

	d := Evaluate(p, intent, Book{OpenPositions: 49, DayRealized: -1e6})
	assert.True(t, d.Allowed, "limits are off by default")

	p.MaxOpenPositions = 10
	p.MaxDailyLossPct = 3

	d = Evaluate(p, intent, Book{})
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Violations)
	assert.Equal(t, 2.0, d.PlannedRisk)
	assert.InDelta(t, 0.002, d.PlannedRiskPct, 1e-12)

	d = Evaluate(p, intent, Book{OpenPositions: 10, DayRealized: -3000})
	assert.False(t, d.Allowed)
	codes := []string{}
	for _, v := range d.Violations {
		codes = append(codes, v.Code)
	}
	assert.Equal(t, []string{"TOO_MANY_OPEN_POSITIONS", "DAILY_LOSS_LIMIT"}, codes)
	assert.Contains(t, d.Reason(), "; ")

	d = Evaluate(p, Intent{Qty: 1, Entry: 100, Stop: 100}, Book{})
	assert.False(t, d.Allowed)
	assert.Equal(t, "STOP_ABOVE_ENTRY", d.Violations[0].Code)

	p.MaxOpenPositions = 0
	p.MaxDailyLossPct = 0
	d = Evaluate(p, intent, Book{OpenPositions: 99, DayRealized: -1e9})
	assert.True(t, d.Allowed, "zero limits disable the checks")
}
