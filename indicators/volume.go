package indicators

import (
	"math"

	"github.com/rustyeddy/sentinel/market"
)

// SpikeRatio is the volume ratio above which participation is unusual.
const SpikeRatio = 1.5

// VolumeRatio returns the latest volume divided by the mean of the last
// window volumes (the latest included).
func VolumeRatio(volumes []float64, window int) float64 {
	avg := SMA(volumes, window)
	if !Ready(avg) || avg == 0 {
		return math.NaN()
	}
	return volumes[len(volumes)-1] / avg
}

// HighestHigh returns the highest High among the last n candles.
func HighestHigh(s market.Series, n int) float64 {
	if n <= 0 || len(s) < n {
		return math.NaN()
	}
	hi := math.Inf(-1)
	for _, c := range s[len(s)-n:] {
		hi = math.Max(hi, c.High)
	}
	return hi
}

// PctReturn returns the percent change between the close n samples back and
// the latest close.
func PctReturn(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n+1 {
		return math.NaN()
	}
	from := closes[len(closes)-1-n]
	if from == 0 {
		return math.NaN()
	}
	return market.PctChange(from, closes[len(closes)-1])
}
