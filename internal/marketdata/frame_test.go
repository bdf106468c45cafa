package marketdata

import (
	"errors"
	"testing"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func priceRow(date time.Time, px float64) Row {
	return Row{StockID: "0056", Date: date, Values: map[string]float64{"close": px}}
}

func TestBuildBars(t *testing.T) {
	rows := []Row{
		{StockID: "0056", Date: day(2024, 1, 2), Values: map[string]float64{"close": 35.1, "div": 0}},
		{StockID: "0056", Date: day(2024, 1, 3), Values: map[string]float64{"close": 35.4, "div": 1.1}},
	}

	bars, err := BuildBars(rows, "close", "div")
	if err != nil {
		t.Fatalf("BuildBars failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(bars))
	}
	if bars[1].Close != 35.4 || bars[1].Dividend != 1.1 {
		t.Errorf("unexpected bar: %+v", bars[1])
	}
}

func TestBuildBarsErrors(t *testing.T) {
	tests := []struct {
		name      string
		rows      []Row
		wantField string
	}{
		{
			name:      "empty",
			rows:      nil,
			wantField: "bars",
		},
		{
			name: "missing close column",
			rows: []Row{
				{Date: day(2024, 1, 2), Values: map[string]float64{"adjClose": 1, "div": 0}},
			},
			wantField: "close",
		},
		{
			name: "missing dividend column",
			rows: []Row{
				{Date: day(2024, 1, 2), Values: map[string]float64{"close": 1}},
			},
			wantField: "div",
		},
		{
			name: "unsorted",
			rows: []Row{
				{Date: day(2024, 1, 3), Values: map[string]float64{"close": 1, "div": 0}},
				{Date: day(2024, 1, 2), Values: map[string]float64{"close": 1, "div": 0}},
			},
			wantField: "date",
		},
		{
			name: "non-positive close",
			rows: []Row{
				{Date: day(2024, 1, 2), Values: map[string]float64{"close": 0, "div": 0}},
			},
			wantField: "close",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildBars(tt.rows, "close", "div")
			var inputErr *contracts.InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("Expected InputError, got %v", err)
			}
			if inputErr.Field != tt.wantField {
				t.Errorf("Expected field %q, got %q", tt.wantField, inputErr.Field)
			}
		})
	}
}

func TestMergeRows(t *testing.T) {
	existing := []Row{
		priceRow(day(2024, 1, 3), 10),
		priceRow(day(2024, 1, 2), 9),
	}
	fresh := []Row{
		priceRow(day(2024, 1, 3), 11),
		priceRow(day(2024, 1, 4), 12),
	}

	merged := MergeRows(existing, fresh)
	if len(merged) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(merged))
	}

	want := []float64{9, 11, 12}
	for i, w := range want {
		if merged[i].Values["close"] != w {
			t.Errorf("row %d: expected close %v, got %v", i, w, merged[i].Values["close"])
		}
	}
}

func TestMergeDividends(t *testing.T) {
	prices := []Row{
		priceRow(day(2024, 7, 15), 38),
		priceRow(day(2024, 7, 16), 38.5),
		priceRow(day(2024, 7, 18), 39),
	}
	dividends := []Row{
		{Date: day(2024, 7, 16), Values: map[string]float64{"stock_and_cache_dividend": 2.2}},
		{Date: day(2024, 7, 17), Values: map[string]float64{"stock_and_cache_dividend": 0.5}}, // holiday
		{Date: day(2024, 7, 30), Values: map[string]float64{"stock_and_cache_dividend": 9}},   // after last bar
	}

	merged := MergeDividends(prices, dividends, "stock_and_cache_dividend")

	want := []float64{0, 2.2, 0.5}
	for i, w := range want {
		if got := merged[i].Values["stock_and_cache_dividend"]; got != w {
			t.Errorf("row %d: expected dividend %v, got %v", i, w, got)
		}
		if merged[i].Values["close"] != prices[i].Values["close"] {
			t.Errorf("row %d: close changed", i)
		}
	}

	if _, ok := prices[0].Values["stock_and_cache_dividend"]; ok {
		t.Error("MergeDividends mutated its input")
	}
}

func TestFilterFrom(t *testing.T) {
	rows := []Row{
		priceRow(day(2019, 12, 31), 1),
		priceRow(day(2020, 1, 2), 2),
	}

	got := FilterFrom(rows, day(2020, 1, 1))
	if len(got) != 1 || got[0].Values["close"] != 2 {
		t.Errorf("unexpected rows: %+v", got)
	}

	if len(FilterFrom(rows, time.Time{})) != 2 {
		t.Error("zero start should keep every row")
	}
}

func TestListingStart(t *testing.T) {
	floor := day(2020, 1, 1)

	tests := []struct {
		name   string
		listed time.Time
		want   time.Time
	}{
		{"listed before floor", day(2007, 12, 26), floor},
		{"listed after floor", day(2023, 3, 14), day(2023, 3, 14)},
		{"same day", floor, floor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ListingStart(tt.listed, floor); !got.Equal(tt.want) {
				t.Errorf("ListingStart = %v, want %v", got, tt.want)
			}
		})
	}
}
