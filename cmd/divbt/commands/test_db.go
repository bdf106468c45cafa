package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/divbt/backend/pkg/config"
	"github.com/wonny/divbt/backend/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "결과 저장소 연결 테스트",
	Long: `STORE_DRIVER 에 따라 PostgreSQL 또는 SQLite 연결을 테스트합니다.

이 명령어는:
- config에서 STORE_DRIVER / DATABASE_URL / SQLITE_PATH 로드
- 데이터베이스 연결 생성
- Health Check 실행
- Connection Pool 통계 표시 (PostgreSQL)

Example:
  go run ./cmd/divbt test-db
  STORE_DRIVER=postgres go run ./cmd/divbt test-db`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== divbt Store Connection Test ===")

	fmt.Println("Loading configuration...")
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s, STORE_DRIVER: %s)\n", cfg.Env, cfg.StoreDriver)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var status *database.HealthStatus
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))
		db, err := database.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("❌ Failed to connect to database: %w", err)
		}
		defer db.Close()
		status, err = db.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("❌ Health check failed: %w", err)
		}
	case config.StoreDriverSQLite:
		fmt.Printf("   SQLite path: %s\n\n", cfg.SQLitePath)
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("❌ Failed to open sqlite: %w", err)
		}
		defer db.Close()
		status, err = database.SQLiteHealthCheck(ctx, db)
		if err != nil {
			return fmt.Errorf("❌ Health check failed: %w", err)
		}
	default:
		PrintInfo("memory store needs no connection")
		return nil
	}

	fmt.Println("✅ Health Check Results:")
	fmt.Printf("   Driver: %s\n", status.Driver)
	fmt.Printf("   Healthy: %v\n", status.Healthy)
	fmt.Printf("   Response Time: %v\n", status.ResponseTime)
	fmt.Printf("   Timestamp: %v\n", status.Timestamp.Format(time.RFC3339))
	if status.Driver == config.StoreDriverPostgres {
		fmt.Printf("   Total Connections: %d\n", status.TotalConns)
		fmt.Printf("   Idle Connections: %d\n", status.IdleConns)
	}

	fmt.Println("\n✅ All tests passed!")
	return nil
}
