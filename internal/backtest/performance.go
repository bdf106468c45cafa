package backtest

import (
	"math"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
)

const daysPerYear = 365

// Performance is the final valuation of one run
type Performance struct {
	LastClose       float64
	AssetValue      float64
	ROI             float64
	IRR             float64
	Years           float64
	FirstSignalDate time.Time
	LastDate        time.Time
	// Annualized is false when the history is too short to annualize
	Annualized bool
}

// Evaluate computes asset value, ROI and the annualized return from the final
// state of a simulation and its signal series.
//
// A zero total investment with a positive elapsed period is an
// InvalidStateError; the returned Performance still carries asset value and ROI.
// ⭐ SSOT: 성과 계산은 여기서만
func Evaluate(sim *Simulation, series []contracts.SignalBar) (Performance, error) {
	if len(series) == 0 {
		return Performance{}, &contracts.InputError{Field: "bars", Reason: "empty price series"}
	}

	last := series[len(series)-1]
	perf := Performance{
		LastClose: last.Close,
		LastDate:  last.Date,
	}

	perf.AssetValue, perf.ROI = AssetValueAndROI(sim.State.PositionSize, last.Close, sim.State.BrokerDividend, sim.TotalInvestment)

	first, ok := firstSignalDate(series)
	if !ok {
		return perf, nil
	}
	perf.FirstSignalDate = first
	perf.Years = float64(daysBetween(first, last.Date)) / daysPerYear

	if perf.Years <= 0 {
		return perf, nil
	}

	irr, err := AnnualizedReturn(sim.TotalInvestment, perf.AssetValue, perf.Years)
	if err != nil {
		return perf, err
	}
	perf.IRR = RoundRatio(irr)
	perf.Annualized = true
	return perf, nil
}

// AssetValueAndROI values the position at lastClose plus dividend cash.
// ROI is 0 when nothing was invested.
func AssetValueAndROI(size, lastClose, dividend, totalInvestment float64) (float64, float64) {
	asset := RoundMoney(size*lastClose + dividend)
	if totalInvestment == 0 {
		return asset, 0
	}
	return asset, RoundRatio((asset - totalInvestment) / totalInvestment)
}

// AnnualizedReturn is the constant yearly rate turning initial into final over years
func AnnualizedReturn(initial, final, years float64) (float64, error) {
	if initial == 0 {
		return 0, &contracts.InvalidStateError{Quantity: "irr", Reason: "total investment is zero"}
	}
	return math.Pow(final/initial, 1/years) - 1, nil
}

func firstSignalDate(series []contracts.SignalBar) (time.Time, bool) {
	for _, b := range series {
		if b.BuySignal {
			return b.Date, true
		}
	}
	return time.Time{}, false
}

// daysBetween counts whole calendar days from a to b
func daysBetween(a, b time.Time) int {
	ca := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	cb := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(cb.Sub(ca) / (24 * time.Hour))
}
