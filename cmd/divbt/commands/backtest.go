package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/divbt/backend/internal/backtest"
	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/report"
	"github.com/wonny/divbt/backend/internal/scheduler/jobs"
	"github.com/wonny/divbt/backend/internal/strategyconfig"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "백테스트 실행",
	Long: `시장 프로필의 종목별 백테스트를 실행합니다.

각 종목의 가격 이력은 한 번만 불러오고,
설정된 전략(bt_dividend, bt_signals)마다 독립된 상태로 시뮬레이션합니다.

Subcommands:
  run       - 프로필 백테스트 실행
  validate  - 전략 파일 검증

Example:
  go run ./cmd/divbt backtest run --market tw
  go run ./cmd/divbt backtest run --market us --stock VOO,QQQ --method bt_signals
  go run ./cmd/divbt backtest run --market tw --dry-run --csv out/`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "프로필 백테스트 실행",
		Long: `지정된 시장 프로필로 백테스트를 실행하고 결과를 저장합니다.

Flags:
  --market    시장 (tw | us, 필수)
  --stock     쉼표로 구분된 종목 (기본: 프로필 전체)
  --method    전략 하나만 실행 (bt_dividend | bt_signals)
  --dry-run   메모리 저장소 사용 (DB에 쓰지 않음)
  --csv       종목×전략별 거래 원장 CSV 출력 디렉토리`,
		RunE: runBacktest,
	}

	backtestValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "전략 파일 검증",
		RunE:  validateStrategies,
	}

	// Flags
	backtestMarket string
	backtestStocks string
	backtestMethod string
	backtestDryRun bool
	backtestCSVDir string
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestValidateCmd)

	// Flags
	backtestRunCmd.Flags().StringVar(&backtestMarket, "market", "", "시장 (tw | us)")
	backtestRunCmd.Flags().StringVar(&backtestStocks, "stock", "", "종목 (쉼표 구분)")
	backtestRunCmd.Flags().StringVar(&backtestMethod, "method", "", "전략 (bt_dividend | bt_signals)")
	backtestRunCmd.Flags().BoolVar(&backtestDryRun, "dry-run", false, "메모리 저장소 사용")
	backtestRunCmd.Flags().StringVar(&backtestCSVDir, "csv", "", "거래 원장 CSV 출력 디렉토리")

	_ = backtestRunCmd.MarkFlagRequired("market")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, backtestDryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := selectProfile(a.strategies, backtestMarket, backtestStocks, backtestMethod)
	if err != nil {
		return err
	}

	snapshot, err := strategyconfig.NewRunSnapshot(a.strategies, profile.Market)
	if err != nil {
		return fmt.Errorf("snapshot strategies: %w", err)
	}
	a.log.WithFields(map[string]interface{}{
		"market":      snapshot.Market,
		"config_hash": snapshot.ConfigHash,
		"version":     snapshot.Version,
		"dry_run":     backtestDryRun,
	}).Info("Backtest requested")

	PrintRunHeader(RunHeader{
		Title:   "divbt Backtest",
		Market:  profile.Market,
		Start:   profile.StartDate,
		Methods: contracts.MethodStrings(profile.MethodList()),
		Stocks:  profile.StockIDs(),
	})

	loader, err := a.newLoader(ctx, profile)
	if err != nil {
		return err
	}

	started := time.Now()
	reports, err := a.newRunner().RunProfile(ctx, profile, loader)
	if err != nil {
		return fmt.Errorf("run profile: %w", err)
	}

	failed := printRunReports(reports)

	if backtestCSVDir != "" {
		if err := exportLedgers(backtestCSVDir, reports); err != nil {
			return err
		}
	}

	if err := a.cache().Delete(ctx, jobs.StaleKeys(profile, reports)...); err != nil {
		a.log.WithError(err).Warn("Failed to invalidate result cache")
	}

	PrintSeparator()
	summaries, err := a.store.Summaries(ctx, profile.Market, "")
	if err != nil {
		return fmt.Errorf("read summaries: %w", err)
	}
	if err := report.WriteSummaryTable(os.Stdout, summaries); err != nil {
		return err
	}

	PrintRunCompletion(len(reports), failed, time.Since(started))
	if len(reports) > 0 && failed == len(reports) {
		return fmt.Errorf("all %d runs failed", failed)
	}
	return nil
}

// printRunReports prints one line per (stock, method) and returns the failure count
func printRunReports(reports []backtest.RunReport) int {
	failed := 0
	for i, rep := range reports {
		label := fmt.Sprintf("%s %s", rep.StockID, rep.Method)
		switch {
		case rep.Err != nil:
			failed++
			PrintProgress("Backtest", label+": "+rep.Err.Error(), i+1, len(reports))
		case rep.Result != nil:
			PrintProgress("Backtest", fmt.Sprintf("%s: %s, %d ledger rows", label, rep.Result.Outcome, len(rep.Result.Ledger)), i+1, len(reports))
		}
	}
	return failed
}

// exportLedgers writes one CSV per run that produced a ledger
func exportLedgers(dir string, reports []backtest.RunReport) error {
	for _, rep := range reports {
		if rep.Result == nil || len(rep.Result.Ledger) == 0 {
			continue
		}
		path, err := report.WriteLedgerFile(dir, rep.Result.Ledger)
		if err != nil {
			return fmt.Errorf("export %s %s: %w", rep.StockID, rep.Method, err)
		}
		PrintInfo("Ledger written to " + path)
	}
	return nil
}

func validateStrategies(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	sc, _, err := strategyconfig.Load(cfg.StrategyFile)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	hash, err := strategyconfig.Hash(sc)
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s is valid (version %s)", cfg.StrategyFile, sc.Meta.Version))
	PrintKeyValue("hash", hash, 8)
	for _, p := range sc.Profiles {
		PrintKeyValue(p.Market, fmt.Sprintf("%s, %d stocks, from %s", p.Provider, len(p.Stocks), p.StartDate), 8)
	}

	for _, w := range strategyconfig.Warn(sc) {
		log.WithField("code", w.Code).Warn(w.Message)
		PrintWarning(w.Code + ": " + w.Message)
	}
	return nil
}
