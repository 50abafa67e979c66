package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/sentinel/journal"
	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	infy = market.NewInstrument("INFY.NS")
	tcs  = market.NewInstrument("TCS.NS")
)

func at(day, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", day+" "+clock, market.IST)
	if err != nil {
		panic(err)
	}
	return t
}

func newLedger(t *testing.T) (*Ledger, *store.MemoryStore, *journal.Journal) {
	t.Helper()
	st := store.NewMemory()
	j := journal.New(st)
	return New(st, j, "2025-03-03"), st, j
}

func TestOpenAtMostOnePerInstrument(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, st, _ := newLedger(t)
	now := at("2025-03-03", "10:15:00")

	p, err := l.Open(ctx, infy, 100, 98, "Sentinel", now)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Qty)
	assert.NotEmpty(t, p.ID)

	_, err = l.Open(ctx, infy, 101, 99, "Sniper", now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrAlreadyHeld)
	assert.Equal(t, 1, l.Len())

	rows, err := st.Read(ctx, store.Portfolio)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "98.00", rows[0]["StopPrice"])
	assert.Equal(t, "10:15:00", rows[0]["EntryTime"])
}

func TestUpdateStopRatchetsOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, st, _ := newLedger(t)
	_, err := l.Open(ctx, infy, 100, 98, "Sentinel", at("2025-03-03", "10:15:00"))
	require.NoError(t, err)

	raised, err := l.UpdateStop(ctx, "INFY.NS", 100)
	require.NoError(t, err)
	assert.True(t, raised)

	_, err = l.UpdateStop(ctx, "INFY.NS", 99)
	assert.ErrorIs(t, err, ErrStopLowered)

	raised, err = l.UpdateStop(ctx, "INFY.NS", 100)
	require.NoError(t, err)
	assert.False(t, raised)

	_, err = l.UpdateStop(ctx, "TCS.NS", 50)
	assert.ErrorIs(t, err, ErrNotHeld)

	p, _ := l.Get("INFY.NS")
	assert.Equal(t, 100.0, p.Stop)
	assert.Equal(t, 2, st.Writes(), "open and one real raise")
}

func TestCloseBlacklistsAndIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, st, j := newLedger(t)
	_, err := l.Open(ctx, infy, 100, 98, "Sentinel", at("2025-03-03", "10:15:00"))
	require.NoError(t, err)

	closeAt := at("2025-03-03", "13:00:00")
	tr, err := l.Close(ctx, "INFY.NS", 103, "stop hit", closeAt)
	require.NoError(t, err)
	assert.Equal(t, 3.0, tr.PnL)
	assert.Equal(t, journal.Win, tr.Result)

	_, err = l.Close(ctx, "INFY.NS", 103, "stop hit", closeAt)
	assert.ErrorIs(t, err, ErrNotHeld)
	assert.Equal(t, 1, j.Len())

	rows, _ := st.Read(ctx, store.Journal)
	assert.Len(t, rows, 1)
	rows, _ = st.Read(ctx, store.Portfolio)
	assert.Empty(t, rows)

	_, err = l.Open(ctx, infy, 104, 102, "Sentinel", closeAt.Add(time.Hour))
	assert.ErrorIs(t, err, ErrBlacklisted)

	// Next trading day the blacklist is gone.
	_, err = l.Open(ctx, infy, 104, 102, "Sentinel", at("2025-03-04", "09:30:00"))
	assert.NoError(t, err)
	assert.Empty(t, l.Blacklist())
}

func TestStoreDownKeepsMemoryAuthoritative(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, st, j := newLedger(t)
	st.SetErr(errors.New("offline"))

	_, err := l.Open(ctx, infy, 100, 98, "Sentinel", at("2025-03-03", "10:15:00"))
	require.NoError(t, err)
	_, err = l.UpdateStop(ctx, "INFY.NS", 100)
	require.NoError(t, err)
	_, err = l.Close(ctx, "INFY.NS", 101, "manual", at("2025-03-03", "11:00:00"))
	require.NoError(t, err)

	assert.Equal(t, 0, l.Len())
	assert.True(t, l.Blacklisted("INFY.NS"))
	assert.True(t, j.HasClosedOn("INFY.NS", "2025-03-03"))
	assert.Equal(t, 0, st.Writes())
}

func TestHydrate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemory()

	held := Position{Instrument: tcs, Qty: 1, Entry: 50, EntryTime: at("2025-03-03", "09:45:00"), Stop: 49, Strategy: "Sniper"}
	gone := Position{Instrument: infy, Qty: 1, Entry: 100, EntryTime: at("2025-03-03", "10:15:00"), Stop: 100, Strategy: "Sentinel"}
	require.NoError(t, st.Overwrite(ctx, store.Portfolio, []store.Row{held.Row(), gone.Row(), {"Ticker": "BAD.NS"}}))

	closed := journal.NewClosedTrade(infy, 1, 100, gone.EntryTime, 100, at("2025-03-03", "12:00:00"), "Sentinel", "stop hit")
	require.NoError(t, st.Append(ctx, store.Journal, closed.Row()))

	j := journal.New(st)
	require.NoError(t, j.Hydrate(ctx))
	l := New(st, j, "2025-03-03")
	require.NoError(t, l.Hydrate(ctx))

	assert.Equal(t, 1, l.Len())
	p, ok := l.Get("TCS.NS")
	require.True(t, ok)
	assert.Equal(t, 49.0, p.Stop)
	assert.NotEmpty(t, p.ID)
	assert.False(t, l.Held("INFY.NS"), "already journaled")
	assert.Equal(t, []string{"INFY.NS"}, l.Blacklist())

	rows, _ := st.Read(ctx, store.Portfolio)
	assert.Len(t, rows, 1, "stale row pruned from the checkpoint")
}
