package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/divbt/backend/internal/api"
	"github.com/wonny/divbt/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "결과 조회 API 서버 시작",
	Long: `대시보드용 읽기 전용 REST API 서버를 시작합니다.

Endpoints:
  GET /health                                  - Health check
  GET /api/{market}/summaries?method=          - 요약 테이블 (ROI 내림차순)
  GET /api/{market}/summaries/best             - 종목별 최고 자산 전략
  GET /api/{market}/ledger/{stock}/{method}    - 거래 원장
  GET /api/{market}/transactions/recent?days=  - 최근 매수 내역

Example:
  go run ./cmd/divbt api
  go run ./cmd/divbt api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== divbt API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	results := handlers.NewResultsHandler(a.store, a.cache(), a.strategies.Markets(), a.log)
	health := handlers.NewHealthHandler(a.store, a.redis)
	router := api.NewRouter(results, health, a.cfg.CORSOrigins, a.log)
	server := api.New(a.cfg, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
