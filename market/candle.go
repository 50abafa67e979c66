package market

import (
	"math"
	"time"
)

// Candle represents one OHLCV bar for a single instrument and interval.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether every price field is a usable number. Volume may be
// zero (index tickers report none) but must not be NaN.
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return !math.IsNaN(c.Volume) && !math.IsInf(c.Volume, 0)
}
