package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradingDayUsesIST(t *testing.T) {
	t.Parallel()

	// 20:00 UTC on the 3rd is 01:30 IST on the 4th.
	ts := time.Date(2025, 3, 3, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-04", TradingDay(ts))
}

func TestSessionOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"pre-open", time.Date(2025, 3, 3, 9, 14, 59, 0, IST), false},
		{"open", time.Date(2025, 3, 3, 9, 15, 0, 0, IST), true},
		{"midday", time.Date(2025, 3, 3, 12, 0, 0, 0, IST), true},
		{"close", time.Date(2025, 3, 3, 15, 30, 0, 0, IST), false},
		{"saturday", time.Date(2025, 3, 8, 11, 0, 0, 0, IST), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionOpen(tt.t))
		})
	}
}

func TestAfterCutoff(t *testing.T) {
	t.Parallel()

	cutoff, err := ParseClock("15:00")
	require.NoError(t, err)
	assert.False(t, AfterCutoff(time.Date(2025, 3, 3, 14, 59, 0, 0, IST), cutoff))
	assert.True(t, AfterCutoff(time.Date(2025, 3, 3, 15, 0, 0, 0, IST), cutoff))
}

func TestRoundPrice(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 103.88, RoundPrice(106*0.98))
	assert.Equal(t, 98.0, RoundPrice(100*(1-0.02)))
	assert.InDelta(t, 6.0, PctChange(100, 106), 1e-9)
}

func TestInstruments(t *testing.T) {
	t.Parallel()

	u := Nifty50()
	assert.Len(t, u, 50)

	in, ok := Lookup(u, "reliance")
	require.True(t, ok)
	assert.Equal(t, "RELIANCE.NS", in.Ticker)
	assert.Equal(t, "NIFTY50", Benchmark.Symbol)
	assert.Equal(t, "NSEI", NewInstrument("^NSEI").Symbol)
}
