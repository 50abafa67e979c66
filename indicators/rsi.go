package indicators

import "math"

// RSI returns the relative strength index of the last period price changes.
//
// Gains and losses are averaged with a simple rolling mean over period
// samples, not exponential smoothing. The result is NaN when
// len(closes) < period+1. A window with gains and no losses is 100, losses
// and no gains is 0, and a flat window is 50.
func RSI(closes []float64, period int) float64 {
	w, ok := tail(closes, period+1)
	if period <= 0 || !ok {
		return math.NaN()
	}

	var gain, loss float64
	for i := 1; i < len(w); i++ {
		d := w[i] - w[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
