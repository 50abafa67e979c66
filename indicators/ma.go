package indicators

import "math"

// SMA returns the simple moving average of the last window values, or NaN
// when fewer than window values are available.
func SMA(values []float64, window int) float64 {
	w, ok := tail(values, window)
	if !ok {
		return math.NaN()
	}
	return mean(w)
}

// TrendLine is the rolling-mean trend reference: window 200 for the
// long-term trend, window 20 for the short-term mean.
func TrendLine(closes []float64, window int) float64 {
	return SMA(closes, window)
}

// StdDev returns the sample standard deviation (n-1) of the last window
// values.
func StdDev(values []float64, window int) float64 {
	w, ok := tail(values, window)
	if !ok || window < 2 {
		return math.NaN()
	}
	m := mean(w)
	ss := 0.0
	for _, v := range w {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(window-1))
}
