package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
)

// RecentDays is the default look-back of the recent transactions message
const RecentDays = 14

// WriteSummaryTable writes summaries as an aligned text table with ROI and IRR in percent
func WriteSummaryTable(w io.Writer, rows []contracts.SummaryRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "Stock ID\tDate\tClose\tPosition Value\tBroker Dividend\tAsset Value\tROI\tIRR\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.StockID,
			r.Date.Format(contracts.DateLayout),
			FormatMoney(r.Close),
			FormatMoney(r.PositionValue),
			FormatMoney(r.BrokerDividend),
			FormatMoney(r.AssetValue),
			FormatPercent(r.ROI),
			FormatPercent(r.IRR),
		)
	}
	return tw.Flush()
}

// WriteLedgerTable writes the ledger of one run as an aligned text table
func WriteLedgerTable(w io.Writer, rows []contracts.TradeLedgerRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "Date\tClose\tPosition Size\tPosition Price\tPosition Value\tBroker Dividend\tAsset Value\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Date.Format(contracts.DateLayout),
			FormatMoney(r.DateClosedPrice),
			FormatUnits(r.PositionSize),
			FormatMoney(r.PositionPrice),
			FormatMoney(r.PositionValue),
			FormatMoney(r.BrokerDividend),
			FormatMoney(r.AssetValue),
		)
	}
	return tw.Flush()
}

// RecentMessage renders the recent transactions notification text.
// An empty ledger gives the "no recent transactions" line.
func RecentMessage(market string, rows []contracts.TradeLedgerRow, from, to time.Time) string {
	var b strings.Builder

	if len(rows) == 0 {
		fmt.Fprintf(&b, "[%s] No transactions between %s and %s\n",
			strings.ToUpper(market), from.Format(contracts.DateLayout), to.Format(contracts.DateLayout))
		return b.String()
	}

	fmt.Fprintf(&b, "[%s] Transactions between %s and %s:\n\n",
		strings.ToUpper(market), from.Format(contracts.DateLayout), to.Format(contracts.DateLayout))
	for _, r := range rows {
		fmt.Fprintf(&b, "Stock: %s, Date: %s, Close: %s, Method: %s\n",
			r.StockID, r.Date.Format(contracts.DateLayout), FormatMoney(r.DateClosedPrice), r.Method)
	}
	return b.String()
}

// RecentWindow returns the [from, to] calendar window ending on now
func RecentWindow(now time.Time, days int) (time.Time, time.Time) {
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return to.AddDate(0, 0, -days), to
}
