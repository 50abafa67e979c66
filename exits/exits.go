// Package exits decides, for one position and one live price, whether the
// stop should be raised and whether the position should be closed.
package exits

import (
	"fmt"

	"github.com/rustyeddy/sentinel/ledger"
	"github.com/rustyeddy/sentinel/market"
)

const ReasonStopHit = "stop hit"

// Rules are the exit thresholds, all in percent. Gains must strictly exceed
// a threshold to trigger it.
type Rules struct {
	BreakevenPct    float64 `json:"breakeven-pct"`
	TrailTriggerPct float64 `json:"trail-trigger-pct"`
	TrailPct        float64 `json:"trail-pct"`
}

func DefaultRules() Rules {
	return Rules{BreakevenPct: 3, TrailTriggerPct: 5, TrailPct: 2}
}

func (r Rules) Validate() error {
	if r.BreakevenPct < 0 || r.TrailTriggerPct < 0 {
		return fmt.Errorf("exit thresholds must not be negative")
	}
	if r.TrailPct <= 0 || r.TrailPct >= 100 {
		return fmt.Errorf("trail_pct must be in (0, 100), got %.2f", r.TrailPct)
	}
	return nil
}

type Decision struct {
	PnLPct  float64
	NewStop float64

	Raised    bool
	Breakeven bool
	Trailing  bool

	Close  bool
	Reason string
}

// Evaluate applies breakeven promotion, then the trailing ratchet, then the
// breach check against the possibly raised stop. NewStop is never below the
// position's current stop.
func (r Rules) Evaluate(pos ledger.Position, price float64) Decision {
	d := Decision{PnLPct: pos.PnLPct(price), NewStop: pos.Stop}

	if d.PnLPct > r.BreakevenPct && d.NewStop < pos.Entry {
		d.NewStop = pos.Entry
		d.Breakeven = true
	}
	if d.PnLPct > r.TrailTriggerPct {
		if candidate := market.RoundPrice(price * (1 - r.TrailPct/100)); candidate > d.NewStop {
			d.NewStop = candidate
			d.Trailing = true
		}
	}

	d.NewStop = market.RoundPrice(d.NewStop)
	if d.NewStop < pos.Stop {
		d.NewStop = pos.Stop
	}
	d.Raised = d.NewStop > pos.Stop

	if price <= d.NewStop {
		d.Close = true
		d.Reason = ReasonStopHit
	}
	return d
}
