package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/report"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "백테스트 결과 조회",
	Long: `저장된 백테스트 결과를 표 또는 CSV로 출력합니다.

Subcommands:
  summary  - 종목×전략 요약 (ROI 내림차순)
  ledger   - 한 종목×전략의 거래 원장

Example:
  go run ./cmd/divbt report summary --market tw
  go run ./cmd/divbt report summary --market us --best
  go run ./cmd/divbt report ledger --market tw --stock 0056 --method bt_dividend --csv`,
}

var (
	reportSummaryCmd = &cobra.Command{
		Use:   "summary",
		Short: "요약 테이블",
		RunE:  runReportSummary,
	}

	reportLedgerCmd = &cobra.Command{
		Use:   "ledger",
		Short: "거래 원장",
		RunE:  runReportLedger,
	}

	// Flags
	reportMarket string
	reportMethod string
	reportStock  string
	reportBest   bool
	reportCSV    bool
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportSummaryCmd)
	reportCmd.AddCommand(reportLedgerCmd)

	reportCmd.PersistentFlags().StringVar(&reportMarket, "market", "", "시장 (tw | us)")
	reportCmd.PersistentFlags().StringVar(&reportMethod, "method", "", "전략 (bt_dividend | bt_signals)")
	reportCmd.PersistentFlags().BoolVar(&reportCSV, "csv", false, "CSV로 출력")
	reportSummaryCmd.Flags().BoolVar(&reportBest, "best", false, "종목별 최고 자산 전략만")
	reportLedgerCmd.Flags().StringVar(&reportStock, "stock", "", "종목")

	_ = reportCmd.MarkPersistentFlagRequired("market")
	_ = reportLedgerCmd.MarkFlagRequired("stock")
	_ = reportLedgerCmd.MarkFlagRequired("method")
}

func runReportSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var rows []contracts.SummaryRow
	if reportBest {
		rows, err = a.store.BestSummaries(ctx, reportMarket)
	} else {
		var method contracts.Method
		if reportMethod != "" {
			if method, err = contracts.ParseMethod(reportMethod); err != nil {
				return err
			}
		}
		rows, err = a.store.Summaries(ctx, reportMarket, method)
	}
	if err != nil {
		return fmt.Errorf("read summaries: %w", err)
	}

	return writeSummaries(os.Stdout, rows, reportCSV)
}

func runReportLedger(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	method, err := contracts.ParseMethod(reportMethod)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.store.TransactionLogs(ctx, reportMarket, reportStock, method)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	if len(rows) == 0 {
		PrintWarning(fmt.Sprintf("No ledger for %s %s in %s", reportStock, method, reportMarket))
		return nil
	}

	if reportCSV {
		return report.WriteLedgerCSV(os.Stdout, rows)
	}
	return report.WriteLedgerTable(os.Stdout, rows)
}

// writeSummaries prints summaries as a table or CSV
func writeSummaries(w io.Writer, rows []contracts.SummaryRow, asCSV bool) error {
	if asCSV {
		return report.WriteSummaryCSV(w, rows)
	}
	if len(rows) == 0 {
		PrintWarning("No summaries stored")
		return nil
	}
	return report.WriteSummaryTable(w, rows)
}
