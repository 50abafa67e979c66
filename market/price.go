package market

import "github.com/shopspring/decimal"

// RoundPrice rounds a rupee amount to two decimals (paise). Stops, P&L and
// stored prices all go through here so values read back from the durable
// store compare equal to the in-memory ones.
func RoundPrice(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// PctChange returns (to-from)/from*100.
func PctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
