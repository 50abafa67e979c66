// Package signal classifies every instrument in the universe on each cycle.
//
// A Policy decides whether an instrument's entry condition holds right now.
// The Scanner wraps whichever policy is active with the day-scoped
// confirmation debounce and the benchmark safety gate, and produces one
// Snapshot per instrument.
package signal

// Status is the per-instrument classification shown to the operator.
type Status string

const (
	Wait         Status = "WAIT"
	Watching     Status = "WATCHING"
	Confirmed    Status = "CONFIRMED"
	Breakout     Status = "BREAKOUT"
	MarketUnsafe Status = "MARKET-UNSAFE"
	StrongBuy    Status = "STRONG-BUY"
	LowVolume    Status = "LOW-VOLUME"
	NoData       Status = "NO-DATA"
)

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{Wait, Watching, Confirmed, Breakout, MarketUnsafe, StrongBuy, LowVolume, NoData}
}

// Actionable reports whether the Auto-Bot may open a position on s.
// The volume-quality outcome is informational: LOW-VOLUME stays eligible.
func (s Status) Actionable() bool {
	switch s {
	case Confirmed, Breakout, StrongBuy, LowVolume:
		return true
	}
	return false
}
