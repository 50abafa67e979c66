package exits

import (
	"testing"

	"github.com/rustyeddy/sentinel/ledger"
	"github.com/stretchr/testify/assert"
)

func TestLadderScenario(t *testing.T) {
	t.Parallel()

	r := DefaultRules()
	pos := ledger.Position{Qty: 1, Entry: 100, Stop: 98}

	d := r.Evaluate(pos, 104)
	assert.True(t, d.Breakeven)
	assert.False(t, d.Trailing)
	assert.Equal(t, 100.0, d.NewStop)
	assert.False(t, d.Close)
	pos.Stop = d.NewStop

	d = r.Evaluate(pos, 106)
	assert.True(t, d.Trailing)
	assert.Equal(t, 103.88, d.NewStop)
	assert.False(t, d.Close)
	pos.Stop = d.NewStop

	d = r.Evaluate(pos, 103)
	assert.False(t, d.Raised)
	assert.Equal(t, 103.88, d.NewStop)
	assert.True(t, d.Close)
	assert.Equal(t, ReasonStopHit, d.Reason)
}

func TestThresholdsAreStrict(t *testing.T) {
	t.Parallel()

	r := DefaultRules()
	d := r.Evaluate(ledger.Position{Entry: 100, Stop: 98}, 103)
	assert.False(t, d.Breakeven)
	assert.Equal(t, 98.0, d.NewStop)

	d = r.Evaluate(ledger.Position{Entry: 100, Stop: 100}, 105)
	assert.False(t, d.Trailing)
	assert.Equal(t, 100.0, d.NewStop)
}

func TestBreachAtExactStopCloses(t *testing.T) {
	t.Parallel()

	d := DefaultRules().Evaluate(ledger.Position{Entry: 100, Stop: 98}, 98)
	assert.True(t, d.Close)
}

func TestStopNeverMovesDown(t *testing.T) {
	t.Parallel()

	r := DefaultRules()
	pos := ledger.Position{Entry: 100, Stop: 98}
	prices := []float64{101, 104, 110, 108, 112, 109.9, 111, 120, 118.5}
	for _, p := range prices {
		d := r.Evaluate(pos, p)
		assert.GreaterOrEqual(t, d.NewStop, pos.Stop, "price %.2f", p)
		if d.Close {
			break
		}
		pos.Stop = d.NewStop
	}
	assert.Equal(t, 117.6, pos.Stop)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultRules().Validate())
	assert.Error(t, Rules{BreakevenPct: 3, TrailTriggerPct: 5}.Validate())
}
