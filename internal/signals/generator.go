package signals

import (
	"github.com/wonny/divbt/backend/internal/contracts"
)

// Generate attaches a buy signal to every bar according to method.
// Bars must already satisfy contracts.ValidateBars.
// ⭐ SSOT: 매수 시그널 계산은 여기서만
func Generate(bars []contracts.PriceBar, method contracts.Method) ([]contracts.SignalBar, error) {
	var flags []bool

	switch method {
	case contracts.MethodDividendTriggered:
		flags = dividendSignals(bars)
	case contracts.MethodIndicatorTriggered:
		flags = indicatorSignals(bars)
	default:
		return nil, &contracts.InputError{Field: "method", Reason: "unknown method " + string(method)}
	}

	out := make([]contracts.SignalBar, len(bars))
	for i, b := range bars {
		out[i] = contracts.SignalBar{PriceBar: b, BuySignal: flags[i]}
	}
	return out, nil
}

// dividendSignals buys on every bar with a non-zero dividend
func dividendSignals(bars []contracts.PriceBar) []bool {
	out := make([]bool, len(bars))
	for i, b := range bars {
		out[i] = b.Dividend != 0
	}
	return out
}

// indicatorSignals buys where a MACD histogram cross-up and a low RSI coincide
func indicatorSignals(bars []contracts.PriceBar) []bool {
	closes := Closes(bars)

	cross := CrossUp(MACD(closes).Histogram)
	low := RSILow(RSI(closes, RSIWindow))

	out := make([]bool, len(bars))
	for i := range bars {
		out[i] = cross[i] && low[i]
	}
	return out
}

// Closes extracts the closing prices of bars
func Closes(bars []contracts.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Snapshot is the indicator state of one bar, used by reports and the CLI
type Snapshot struct {
	MACD      float64
	Signal    float64
	Histogram float64
	RSI       float64
	CrossUp   bool
	RSILow    bool
}

// Inspect returns the per-bar indicator values behind the indicator policy
func Inspect(bars []contracts.PriceBar) []Snapshot {
	closes := Closes(bars)
	m := MACD(closes)
	cross := CrossUp(m.Histogram)
	rsi := RSI(closes, RSIWindow)
	low := RSILow(rsi)

	out := make([]Snapshot, len(bars))
	for i := range bars {
		out[i] = Snapshot{
			MACD:      m.MACD[i],
			Signal:    m.Signal[i],
			Histogram: m.Histogram[i],
			RSI:       rsi[i],
			CrossUp:   cross[i],
			RSILow:    low[i],
		}
	}
	return out
}
