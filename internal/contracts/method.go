package contracts

// Backtest Method 정의 (SSOT)
// 모든 로그, DB row, API 경로에서 이 상수를 사용해야 함
//
// 실행 흐름 (종목 × 전략 단위):
//   SignalGenerator → PositionSimulator → PerformanceCalculator

// Method selects the buy-signal policy of a backtest run
type Method string

const (
	// MethodDividendTriggered 배당 발생일마다 매수
	// 책임: dividend != 0 인 bar 에서 buy_signal
	MethodDividendTriggered Method = "bt_dividend"

	// MethodIndicatorTriggered MACD 히스토그램 상향 돌파 + RSI ≤ 50 일 때 매수
	// 책임: EMA12/EMA26/EMA9 MACD, 14일 SMA RSI
	MethodIndicatorTriggered Method = "bt_signals"
)

// String returns the method name as stored in ledgers and summaries
func (m Method) String() string {
	return string(m)
}

// Description returns a human readable description of the method
func (m Method) Description() string {
	switch m {
	case MethodDividendTriggered:
		return "배당 발생일 정기 매수"
	case MethodIndicatorTriggered:
		return "MACD 상향 돌파 + RSI 50 이하 매수"
	default:
		return "알 수 없음"
	}
}

// AllMethods returns every supported method in run order
func AllMethods() []Method {
	return []Method{
		MethodDividendTriggered,
		MethodIndicatorTriggered,
	}
}

// IsValidMethod checks if a method string is valid
func IsValidMethod(s string) bool {
	for _, m := range AllMethods() {
		if string(m) == s {
			return true
		}
	}
	return false
}

// ParseMethod converts a string into a Method
func ParseMethod(s string) (Method, error) {
	if !IsValidMethod(s) {
		return "", &InputError{Field: "method", Reason: "unknown method " + s}
	}
	return Method(s), nil
}

// MethodStrings returns the method names as plain strings
func MethodStrings(methods []Method) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = string(m)
	}
	return out
}
