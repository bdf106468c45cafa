package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/pkg/config"
	"github.com/wonny/divbt/backend/pkg/database"
	"github.com/wonny/divbt/backend/pkg/logger"
)

// Store persists backtest results and the listed company table
// ⭐ SSOT: 백테스트 결과 저장/조회는 여기서만
type Store interface {
	contracts.ResultSink

	// EnsureSchema creates missing tables and indexes
	EnsureSchema(ctx context.Context) error
	// ClearTables deletes every ledger and summary row of a market
	ClearTables(ctx context.Context, market string) error

	// Summaries returns summaries ordered by ROI descending. An empty method returns all methods.
	Summaries(ctx context.Context, market string, method contracts.Method) ([]contracts.SummaryRow, error)
	// BestSummaries returns, per stock, the summary with the highest asset value
	BestSummaries(ctx context.Context, market string) ([]contracts.SummaryRow, error)
	// TransactionLogs returns the ledger of one run key in date order
	TransactionLogs(ctx context.Context, market, stockID string, method contracts.Method) ([]contracts.TradeLedgerRow, error)
	// RecentTransactions returns ledger rows dated within [from, to]
	RecentTransactions(ctx context.Context, market string, from, to time.Time) ([]contracts.TradeLedgerRow, error)

	// SaveListedCompanies replaces the listed companies of a market
	SaveListedCompanies(ctx context.Context, market string, companies []contracts.ListedCompany) error
	// ListedCompanies returns the listed companies of a market ordered by code
	ListedCompanies(ctx context.Context, market string) ([]contracts.ListedCompany, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open creates the store selected by STORE_DRIVER and ensures its schema
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (Store, error) {
	var (
		s   Store
		err error
	)

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, dbErr := database.New(ctx, cfg)
		if dbErr != nil {
			return nil, dbErr
		}
		s = NewPostgres(db)
	case config.StoreDriverSQLite:
		s, err = NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
	case config.StoreDriverMemory:
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	log.WithField("driver", cfg.StoreDriver).Info("Result store ready")
	return s, nil
}

// runKey returns the (stock, method) a SaveRun call belongs to
func runKey(ledger []contracts.TradeLedgerRow, summary *contracts.SummaryRow) (string, contracts.Method, bool) {
	if len(ledger) > 0 {
		return ledger[0].StockID, ledger[0].Method, true
	}
	if summary != nil {
		return summary.StockID, summary.Method, true
	}
	return "", "", false
}

// pickBest keeps the highest asset value summary per stock, ordered by ROI descending.
// Equal asset values keep the smaller method name.
func pickBest(rows []contracts.SummaryRow) []contracts.SummaryRow {
	best := make(map[string]contracts.SummaryRow, len(rows))
	for _, r := range rows {
		cur, ok := best[r.StockID]
		if !ok || r.AssetValue > cur.AssetValue ||
			(r.AssetValue == cur.AssetValue && r.Method < cur.Method) {
			best[r.StockID] = r
		}
	}

	out := make([]contracts.SummaryRow, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sortByROI(out)
	return out
}

func sortByROI(rows []contracts.SummaryRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ROI != rows[j].ROI {
			return rows[i].ROI > rows[j].ROI
		}
		if rows[i].StockID != rows[j].StockID {
			return rows[i].StockID < rows[j].StockID
		}
		return rows[i].Method < rows[j].Method
	})
}
