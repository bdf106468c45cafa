package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wonny/divbt/backend/internal/contracts"
)

var ledgerHeader = []string{
	"stock_id", "date", "method",
	"position_size", "position_price", "position_value",
	"date_closed_price", "broker_dividend", "asset_value",
}

var summaryHeader = []string{
	"stock_id", "date", "method",
	"close", "position_value", "broker_dividend", "asset_value",
	"roi", "irr",
}

// WriteLedgerCSV writes ledger rows with a header line
func WriteLedgerCSV(w io.Writer, rows []contracts.TradeLedgerRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledgerHeader); err != nil {
		return err
	}

	for _, r := range rows {
		rec := []string{
			r.StockID,
			r.Date.Format(contracts.DateLayout),
			r.Method.String(),
			fmtFloat(r.PositionSize),
			fmtFloat(r.PositionPrice),
			fmtFloat(r.PositionValue),
			fmtFloat(r.DateClosedPrice),
			fmtFloat(r.BrokerDividend),
			fmtFloat(r.AssetValue),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes summary rows with a header line
func WriteSummaryCSV(w io.Writer, rows []contracts.SummaryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}

	for _, r := range rows {
		rec := []string{
			r.StockID,
			r.Date.Format(contracts.DateLayout),
			r.Method.String(),
			fmtFloat(r.Close),
			fmtFloat(r.PositionValue),
			fmtFloat(r.BrokerDividend),
			fmtFloat(r.AssetValue),
			fmtFloat(r.ROI),
			fmtFloat(r.IRR),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteLedgerFile writes the ledger CSV to <dir>/<stock>_<method>.csv and returns the path
func WriteLedgerFile(dir string, rows []contracts.TradeLedgerRow) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("empty ledger")
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", rows[0].StockID, rows[0].Method))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteLedgerCSV(f, rows); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
