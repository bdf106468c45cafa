package signals

import "math"

// Indicator windows
const (
	MACDFastSpan   = 12
	MACDSlowSpan   = 26
	MACDSignalSpan = 9
	RSIWindow      = 14
	RSILowLevel    = 50.0
)

// EMA returns the exponential moving average of values with the given span.
// alpha = 2/(span+1), seeded with the first value, no bias adjustment.
// Written as prev + alpha*(x-prev) so a constant input stays exactly constant.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1] + alpha*(values[i]-out[i-1])
	}
	return out
}

// MACDSeries holds MACD line, signal line and histogram per bar
type MACDSeries struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes EMA12 - EMA26, its EMA9 signal line and the histogram
func MACD(closes []float64) MACDSeries {
	fast := EMA(closes, MACDFastSpan)
	slow := EMA(closes, MACDSlowSpan)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}

	signal := EMA(line, MACDSignalSpan)
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - signal[i]
	}

	return MACDSeries{MACD: line, Signal: signal, Histogram: hist}
}

// CrossUp reports bars where the histogram turns from non-positive to positive.
// The first bar has no previous value and never qualifies.
func CrossUp(hist []float64) []bool {
	out := make([]bool, len(hist))
	for i := 1; i < len(hist); i++ {
		out[i] = hist[i] > 0 && hist[i-1] <= 0
	}
	return out
}

// RSI computes the relative strength index with simple moving averages of
// day-over-day gains and losses over window bars.
//
// The first bar has no delta and contributes zero gain and zero loss.
// Bars before the window fills are NaN. avgLoss == 0 with avgGain > 0 gives 100;
// avgLoss == 0 with avgGain == 0 is NaN (undefined, never "low").
func RSI(closes []float64, window int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	gains := make([]float64, n)
	losses := make([]float64, n)

	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	for i := 0; i < n; i++ {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}

		var sumGain, sumLoss float64
		for j := i - window + 1; j <= i; j++ {
			sumGain += gains[j]
			sumLoss += losses[j]
		}
		avgGain := sumGain / float64(window)
		avgLoss := sumLoss / float64(window)

		switch {
		case avgLoss == 0 && avgGain == 0:
			out[i] = math.NaN()
		case avgLoss == 0:
			out[i] = 100
		default:
			rs := avgGain / avgLoss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// RSILow reports bars whose RSI is defined and at most RSILowLevel
func RSILow(rsi []float64) []bool {
	out := make([]bool, len(rsi))
	for i, v := range rsi {
		out[i] = !math.IsNaN(v) && v <= RSILowLevel
	}
	return out
}
