package indicators

import "math"

// SqueezeThreshold is the Bollinger width below which volatility is
// considered contracted.
const SqueezeThreshold = 0.10

// BollingerWidth returns (upper-lower)/middle for bands of k standard
// deviations around the window-period mean.
func BollingerWidth(closes []float64, window int, k float64) float64 {
	mid := SMA(closes, window)
	sd := StdDev(closes, window)
	if !Ready(mid, sd) || mid == 0 {
		return math.NaN()
	}
	upper := mid + k*sd
	lower := mid - k*sd
	return (upper - lower) / mid
}
