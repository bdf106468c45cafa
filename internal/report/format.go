package report

import (
	"strconv"
)

// FormatFloat formats a dashboard value: 4 decimals below 1, otherwise 2
func FormatFloat(v float64) string {
	if v < 1 {
		return strconv.FormatFloat(v, 'f', 4, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatMoney formats an amount with 2 decimals
func FormatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatPercent formats a ratio as a percentage with 2 decimals (0.1234 → "12.34%")
func FormatPercent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 2, 64) + "%"
}

// FormatUnits formats a share count without decimals
func FormatUnits(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}
