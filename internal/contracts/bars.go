package contracts

import (
	"math"
	"strconv"
	"time"
)

// PriceBar is one trading day of a single instrument
// ⭐ SSOT: 데이터 제공자 → 백테스트 코어 입력 형식
type PriceBar struct {
	StockID  string    `json:"stock_id"`
	Date     time.Time `json:"date"`
	Close    float64   `json:"close"`
	Dividend float64   `json:"dividend"` // 주당 배당, 배당 없는 날은 0
}

// SignalBar is a PriceBar with its derived buy signal
type SignalBar struct {
	PriceBar
	BuySignal bool `json:"buy_signal"`
}

// ValidateBars checks the input contract of the core:
// non-empty, dates strictly ascending, positive finite close, non-negative
// finite dividend.
func ValidateBars(bars []PriceBar) error {
	if len(bars) == 0 {
		return &InputError{Field: "bars", Reason: "empty price series"}
	}

	for i, b := range bars {
		if b.Date.IsZero() {
			return &InputError{Field: "date", Reason: "missing date at index " + strconv.Itoa(i)}
		}
		if !isFinite(b.Close) || b.Close <= 0 {
			return &InputError{Field: "close", Reason: "non-positive or non-finite close on " + b.Date.Format(DateLayout)}
		}
		if !isFinite(b.Dividend) || b.Dividend < 0 {
			return &InputError{Field: "dividend", Reason: "negative or non-finite dividend on " + b.Date.Format(DateLayout)}
		}
		if i > 0 {
			prev := bars[i-1].Date
			if b.Date.Equal(prev) {
				return &InputError{Field: "date", Reason: "duplicate date " + b.Date.Format(DateLayout)}
			}
			if b.Date.Before(prev) {
				return &InputError{Field: "date", Reason: "unsorted date " + b.Date.Format(DateLayout)}
			}
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CountSignals returns the number of buy-signal bars
func CountSignals(bars []SignalBar) int {
	n := 0
	for _, b := range bars {
		if b.BuySignal {
			n++
		}
	}
	return n
}

// DateLayout is the calendar date format used in rows, files and URLs
const DateLayout = "2006-01-02"
