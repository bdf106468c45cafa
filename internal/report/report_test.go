package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0.12345, "0.1235"},
		{0.5, "0.5000"},
		{-0.2, "-0.2000"},
		{1, "1.00"},
		{123456.789, "123456.79"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatFloat(tt.input); got != tt.want {
				t.Errorf("FormatFloat(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0.1234, "12.34%"},
		{0, "0.00%"},
		{-0.05, "-5.00%"},
		{1.5, "150.00%"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatPercent(tt.input); got != tt.want {
				t.Errorf("FormatPercent(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func sampleLedger() []contracts.TradeLedgerRow {
	return []contracts.TradeLedgerRow{
		{
			StockID: "0056", Date: day(2024, 7, 16), Method: contracts.MethodDividendTriggered,
			PositionSize: 5000, PositionPrice: 30.12, PositionValue: 150600,
			DateClosedPrice: 36.1, BrokerDividend: 4400, AssetValue: 184900,
		},
	}
}

func TestWriteLedgerCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLedgerCSV(&buf, sampleLedger()); err != nil {
		t.Fatalf("WriteLedgerCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected header + 1 row, got %d", len(records))
	}
	if records[0][0] != "stock_id" || len(records[0]) != len(records[1]) {
		t.Errorf("unexpected header %v", records[0])
	}

	row := records[1]
	if row[1] != "2024-07-16" || row[2] != "bt_dividend" || row[3] != "5000" || row[8] != "184900" {
		t.Errorf("unexpected row %v", row)
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	rows := []contracts.SummaryRow{{
		StockID: "VOO", Date: day(2024, 10, 1), Method: contracts.MethodIndicatorTriggered,
		Close: 520.5, PositionValue: 3000, BrokerDividend: 40.12, AssetValue: 3640.12, ROI: 0.2134, IRR: 0.0712,
	}}

	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, rows); err != nil {
		t.Fatalf("WriteSummaryCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[1] != "VOO,2024-10-01,bt_signals,520.5,3000,40.12,3640.12,0.2134,0.0712" {
		t.Errorf("unexpected summary line %q", lines[1])
	}
}

func TestWriteSummaryTable(t *testing.T) {
	rows := []contracts.SummaryRow{
		{StockID: "0050", Date: day(2024, 10, 1), Close: 190.5, AssetValue: 250000, ROI: 0.25, IRR: 0.0833},
	}

	var buf bytes.Buffer
	if err := WriteSummaryTable(&buf, rows); err != nil {
		t.Fatalf("WriteSummaryTable failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Stock ID", "0050", "25.00%", "8.33%", "250000.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWriteLedgerTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLedgerTable(&buf, sampleLedger()); err != nil {
		t.Fatalf("WriteLedgerTable failed: %v", err)
	}
	if !strings.Contains(buf.String(), "2024-07-16") || !strings.Contains(buf.String(), "30.12") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}

func TestRecentMessage(t *testing.T) {
	from, to := RecentWindow(time.Date(2024, 7, 20, 18, 30, 0, 0, time.UTC), RecentDays)
	if !from.Equal(day(2024, 7, 6)) || !to.Equal(day(2024, 7, 20)) {
		t.Fatalf("unexpected window %v - %v", from, to)
	}

	msg := RecentMessage("tw", sampleLedger(), from, to)
	if !strings.Contains(msg, "[TW]") || !strings.Contains(msg, "Stock: 0056, Date: 2024-07-16, Close: 36.10, Method: bt_dividend") {
		t.Errorf("unexpected message:\n%s", msg)
	}

	empty := RecentMessage("us", nil, from, to)
	if !strings.HasPrefix(empty, "[US] No transactions") {
		t.Errorf("unexpected empty message %q", empty)
	}
}
