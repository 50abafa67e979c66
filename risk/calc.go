package risk

import (
	"math"

	"github.com/rustyeddy/sentinel/market"
)

// InitialStop places the opening stop riskPct percent below entry.
func InitialStop(entry, riskPct float64) float64 {
	if riskPct < 0 {
		riskPct = 0
	}
	return market.RoundPrice(entry * (1 - riskPct/100))
}

// PlannedRisk is the amount lost if the stop is hit.
func PlannedRisk(qty int, entry, stop float64) float64 {
	return math.Abs(entry-stop) * float64(qty)
}

// RiskPct expresses planned risk as a percent of capital.
func RiskPct(plannedRisk, capital float64) float64 {
	if capital <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / capital * 100
}

// SuggestedQty sizes a position so that hitting the stop loses riskPct
// percent of capital. Positions are opened at a fixed quantity of one; this
// is shown to the operator as a sizing hint only.
func SuggestedQty(capital, riskPct, entry, stop float64) int {
	perShare := entry - stop
	if capital <= 0 || riskPct <= 0 || perShare <= 0 {
		return 0
	}
	return int(math.Floor(capital * riskPct / 100 / perShare))
}
