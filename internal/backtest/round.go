package backtest

import (
	"math"

	"github.com/shopspring/decimal"
)

// Money values are kept to 2 decimals, ratios to 4, both with banker's rounding.
const (
	moneyPlaces = 2
	ratioPlaces = 4
)

// RoundMoney rounds v half-to-even at 2 decimals
func RoundMoney(v float64) float64 {
	return roundPlaces(v, moneyPlaces)
}

// RoundRatio rounds v half-to-even at 4 decimals
func RoundRatio(v float64) float64 {
	return roundPlaces(v, ratioPlaces)
}

// RoundUnits rounds a unit count half-to-even at 0 decimals
func RoundUnits(v float64) float64 {
	return math.RoundToEven(v)
}

// roundPlaces scales v in float64, rounds the scaled value half-to-even and
// scales back, the same as numpy's round on float64 values. A tie is decided
// on v*10^places as computed in binary, so 1.015 becomes 1.01 while
// 2.675 becomes 2.68.
func roundPlaces(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow10(places)
	scaled := decimal.NewFromFloat(v * scale).RoundBank(0)
	return scaled.InexactFloat64() / scale
}
