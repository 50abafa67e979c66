// Package indicators provides the technical indicators used by the scanner.
//
// Every function is a pure function of its input: no state, deterministic,
// safe to recompute on every cycle. Insufficient history is reported as NaN
// rather than an error; callers treat NaN as "skip this instrument this
// cycle".
package indicators

import "math"

// Ready reports whether all values are usable numbers.
func Ready(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func tail(values []float64, n int) ([]float64, bool) {
	if n <= 0 || len(values) < n {
		return nil, false
	}
	return values[len(values)-n:], true
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
