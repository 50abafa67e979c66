package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails the next failures calls, then delegates to a CSVStore.
type flakyStore struct {
	Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStore) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	return nil
}

func (f *flakyStore) Append(ctx context.Context, t Table, rows ...Row) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.Append(ctx, t, rows...)
}

func (f *flakyStore) Overwrite(ctx context.Context, t Table, rows []Row) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Store.Overwrite(ctx, t, rows)
}

func newFlaky(t *testing.T, failures int) *flakyStore {
	t.Helper()
	csv, err := NewCSV(t.TempDir())
	require.NoError(t, err)
	return &flakyStore{Store: csv, failures: failures}
}

func fastGuard(inner Store) *Guarded {
	return NewGuarded(inner, GuardOptions{
		Attempts:    3,
		Backoff:     time.Millisecond,
		TripAfter:   2,
		ReopenAfter: 50 * time.Millisecond,
	})
}

func TestGuardedRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	inner := newFlaky(t, 2)
	g := fastGuard(inner)

	err := g.Append(context.Background(), SignalLog, Row{"Date": "2025-03-03", "Symbol": "INFY", "Time": "10:00:00"})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
	assert.True(t, g.Health().Connected)
}

func TestGuardedOpensCircuitAndRecovers(t *testing.T) {
	t.Parallel()

	inner := newFlaky(t, 6)
	g := fastGuard(inner)
	ctx := context.Background()

	// Two operations of three failed attempts each trip the breaker.
	assert.Error(t, g.Overwrite(ctx, Portfolio, nil))
	assert.Error(t, g.Overwrite(ctx, Portfolio, nil))
	assert.False(t, g.Health().Connected)
	assert.Equal(t, "open", g.Health().State)

	err := g.Overwrite(ctx, Portfolio, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 6, inner.calls, "open circuit must not reach the backend")

	time.Sleep(80 * time.Millisecond)
	require.NoError(t, g.Overwrite(ctx, Portfolio, nil))
	h := g.Health()
	assert.True(t, h.Connected)
	assert.Equal(t, "closed", h.State)
}
