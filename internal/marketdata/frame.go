package marketdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
)

// Row is one raw provider record keyed by column name
// ⭐ SSOT: 제공자 응답 → PriceBar 변환 전 중간 형식
type Row struct {
	StockID string
	Date    time.Time
	Values  map[string]float64
}

// Value returns a column value and whether the column is present
func (r Row) Value(column string) (float64, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Columns returns the sorted column names of the row
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r.Values))
	for k := range r.Values {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// BuildBars projects raw rows onto the core input format.
// Both columns must exist on every row. The result is validated with
// contracts.ValidateBars.
func BuildBars(rows []Row, closeColumn, dividendColumn string) ([]contracts.PriceBar, error) {
	if len(rows) == 0 {
		return nil, &contracts.InputError{Field: "bars", Reason: "empty price series"}
	}

	bars := make([]contracts.PriceBar, 0, len(rows))
	for _, r := range rows {
		closePrice, ok := r.Value(closeColumn)
		if !ok {
			return nil, &contracts.InputError{
				Field:  closeColumn,
				Reason: fmt.Sprintf("column missing on %s", r.Date.Format(contracts.DateLayout)),
			}
		}
		dividend, ok := r.Value(dividendColumn)
		if !ok {
			return nil, &contracts.InputError{
				Field:  dividendColumn,
				Reason: fmt.Sprintf("column missing on %s", r.Date.Format(contracts.DateLayout)),
			}
		}
		bars = append(bars, contracts.PriceBar{
			StockID:  r.StockID,
			Date:     r.Date,
			Close:    closePrice,
			Dividend: dividend,
		})
	}

	if err := contracts.ValidateBars(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// MergeRows concatenates two row sets, sorts by date and keeps the fresh row
// when both carry the same date.
func MergeRows(existing, fresh []Row) []Row {
	seen := make(map[int64]Row, len(existing)+len(fresh))
	for _, r := range existing {
		seen[dayKey(r.Date)] = r
	}
	for _, r := range fresh {
		seen[dayKey(r.Date)] = r
	}

	merged := make([]Row, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})
	return merged
}

// MergeDividends copies the dividend column onto price rows by date.
// Price rows without a dividend get 0. A dividend dated on a non-trading day
// moves to the next trading day; one after the last price row is dropped.
// Several dividends landing on one row are summed.
func MergeDividends(prices, dividends []Row, column string) []Row {
	out := make([]Row, len(prices))
	for i, p := range prices {
		values := make(map[string]float64, len(p.Values)+1)
		for k, v := range p.Values {
			values[k] = v
		}
		values[column] = 0
		out[i] = Row{StockID: p.StockID, Date: p.Date, Values: values}
	}
	if len(out) == 0 {
		return out
	}

	for _, d := range dividends {
		amount, ok := d.Value(column)
		if !ok || amount == 0 {
			continue
		}
		day := truncateDay(d.Date)
		idx := sort.Search(len(out), func(i int) bool {
			return !truncateDay(out[i].Date).Before(day)
		})
		if idx == len(out) {
			continue
		}
		out[idx].Values[column] += amount
	}
	return out
}

// FilterFrom drops rows dated before start
func FilterFrom(rows []Row, start time.Time) []Row {
	if start.IsZero() {
		return rows
	}
	day := truncateDay(start)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !truncateDay(r.Date).Before(day) {
			out = append(out, r)
		}
	}
	return out
}

// ListingStart returns the later of the listing date and the floor.
// Stocks listed after the profile start date are fetched from their listing day.
func ListingStart(listed, floor time.Time) time.Time {
	if listed.After(floor) {
		return listed
	}
	return floor
}

func dayKey(t time.Time) int64 {
	return truncateDay(t).Unix()
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
