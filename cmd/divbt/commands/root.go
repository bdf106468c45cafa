package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	env          string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "divbt",
	Short: "divbt - 배당/지표 기반 정기 매수 백테스터",
	Long: `divbt Unified CLI

배당 발생일 매수(bt_dividend)와 MACD+RSI 신호 매수(bt_signals)를
대만(tw)과 미국(us) 시장 종목에 대해 백테스트합니다.

Usage:
  go run ./cmd/divbt [command]

Examples:
  go run ./cmd/divbt backtest run --market tw
  go run ./cmd/divbt report summary --market us --best
  go run ./cmd/divbt recent --market tw
  go run ./cmd/divbt api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategies", "", "strategy profile file (default is STRATEGY_FILE)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
