package signal

import (
	"testing"
	"time"

	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmationsRestoreFromLog(t *testing.T) {
	t.Parallel()

	universe := market.Nifty50()
	conf := NewConfirmations("2025-03-03")
	rows := []store.Row{
		{"Date": "2025-03-03", "Symbol": "INFY", "Time": "10:05:00"},
		{"Date": "2025-03-03", "Symbol": "INFY", "Time": "09:50:00"},
		{"Date": "2025-03-02", "Symbol": "TCS", "Time": "10:00:00"},
		{"Date": "2025-03-03", "Symbol": "NOPE", "Time": "10:00:00"},
		{"Date": "2025-03-03", "Symbol": "SBIN", "Time": "garbage"},
	}
	assert.Equal(t, 2, conf.RestoreLog(rows, universe))

	anchor, ok := conf.Anchor("INFY.NS")
	require.True(t, ok)
	assert.Equal(t, "09:50:00", anchor.Format(market.TimeLayout))
	_, ok = conf.Anchor("TCS.NS")
	assert.False(t, ok)

	// An observation does not move a restored anchor.
	got, created := conf.Observe("INFY.NS", at(11, 0, 0))
	assert.False(t, created)
	assert.True(t, got.Equal(anchor))
}

func TestConfirmationRow(t *testing.T) {
	t.Parallel()

	c := Confirmation{Instrument: infy, At: at(10, 5, 30).UTC()}
	assert.Equal(t, store.Row{"Date": "2025-03-03", "Symbol": "INFY", "Time": "10:05:30"}, c.Row())
}

func TestObserveRollsOver(t *testing.T) {
	t.Parallel()

	conf := NewConfirmations("2025-03-03")
	conf.Observe("INFY.NS", at(10, 0, 0))
	next := at(10, 0, 0).Add(24 * time.Hour)
	_, created := conf.Observe("INFY.NS", next)
	assert.True(t, created)
	assert.Equal(t, "2025-03-04", conf.Day())
	assert.Equal(t, 1, conf.Len())
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	conf := NewConfirmations("2025-03-03")
	_, created := conf.Observe("INFY.NS", at(10, 0, 0))
	require.True(t, created)

	cp := conf.Clone()
	_, created = cp.Observe("TCS.NS", at(10, 1, 0))
	assert.True(t, created)
	anchor, ok := cp.Anchor("INFY.NS")
	require.True(t, ok)
	assert.Equal(t, at(10, 0, 0), anchor)

	_, ok = conf.Anchor("TCS.NS")
	assert.False(t, ok, "the original is untouched")
	assert.Equal(t, 1, conf.Len())
}
