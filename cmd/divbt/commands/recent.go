package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/divbt/backend/internal/report"
)

// recentCmd represents the recent command
var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "최근 매수 내역",
	Long: `최근 N일(기본 14일) 동안의 매수 내역을 알림 메시지 형식으로 출력합니다.

Example:
  go run ./cmd/divbt recent --market tw
  go run ./cmd/divbt recent --market us --days 30`,
	RunE: runRecent,
}

var (
	recentMarket string
	recentDays   int
)

func init() {
	rootCmd.AddCommand(recentCmd)

	recentCmd.Flags().StringVar(&recentMarket, "market", "", "시장 (tw | us)")
	recentCmd.Flags().IntVar(&recentDays, "days", report.RecentDays, "조회 기간 (일)")

	_ = recentCmd.MarkFlagRequired("market")
}

func runRecent(cmd *cobra.Command, args []string) error {
	if recentDays < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	ctx := context.Background()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	from, to := report.RecentWindow(time.Now(), recentDays)
	rows, err := a.store.RecentTransactions(ctx, recentMarket, from, to)
	if err != nil {
		return fmt.Errorf("read recent transactions: %w", err)
	}

	fmt.Print(report.RecentMessage(recentMarket, rows, from, to))
	return nil
}
