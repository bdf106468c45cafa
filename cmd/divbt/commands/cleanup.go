package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "데이터 정리 도구",
	Long: `저장된 결과나 가격 아카이브를 정리합니다.

Example:
  divbt cleanup results --market tw
  divbt cleanup archive --market us`,
}

var (
	cleanupResultsCmd = &cobra.Command{
		Use:   "results",
		Short: "시장의 거래 원장과 요약 삭제",
		RunE:  runCleanupResults,
	}

	cleanupArchiveCmd = &cobra.Command{
		Use:   "archive",
		Short: "시장의 가격 아카이브(parquet) 삭제",
		Long: `DATA_DIR/<market> 아래의 가격 아카이브를 삭제합니다.
다음 백테스트에서 전체 이력을 다시 수집합니다.`,
		RunE: runCleanupArchive,
	}

	cleanupMarket string
)

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.AddCommand(cleanupResultsCmd)
	cleanupCmd.AddCommand(cleanupArchiveCmd)

	cleanupCmd.PersistentFlags().StringVar(&cleanupMarket, "market", "", "시장 (tw | us)")
	_ = cleanupCmd.MarkPersistentFlagRequired("market")
}

func runCleanupResults(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Backtest Results Cleanup ===")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	before, err := a.store.Summaries(ctx, cleanupMarket, "")
	if err != nil {
		return fmt.Errorf("❌ Failed to count summaries: %w", err)
	}
	fmt.Printf("📊 Found %d summaries in %s\n", len(before), cleanupMarket)

	if err := a.store.ClearTables(ctx, cleanupMarket); err != nil {
		return fmt.Errorf("❌ Failed to clear tables: %w", err)
	}

	if err := a.cache().Delete(ctx, staleMarketKeys(cleanupMarket)...); err != nil {
		a.log.WithError(err).Warn("Failed to invalidate result cache")
	}

	fmt.Println("\n✅ Cleanup complete!")
	return nil
}

func runCleanupArchive(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Price Archive Cleanup ===")

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	dir := filepath.Join(cfg.DataDir, cleanupMarket)
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return fmt.Errorf("❌ Failed to list archive: %w", err)
	}
	fmt.Printf("📊 Found %d archive files in %s\n", len(files), dir)

	removed := 0
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			PrintError(err.Error())
			continue
		}
		removed++
	}

	fmt.Printf("✅ Deleted %d files\n", removed)
	return nil
}
