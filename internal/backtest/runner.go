package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/strategyconfig"
	"github.com/wonny/divbt/backend/pkg/logger"
)

// BarLoader supplies the merged, date-sorted bars of one stock
type BarLoader interface {
	LoadBars(ctx context.Context, stockID string, start time.Time) ([]contracts.PriceBar, error)
}

// TableClearer empties a market's result tables before a full re-run
type TableClearer interface {
	ClearTables(ctx context.Context, market string) error
}

// Runner fans a market profile out over a worker pool
// ⭐ SSOT: 종목 단위 병렬 실행은 여기서만
type Runner struct {
	engine  *Engine
	clearer TableClearer
	logger  *logger.Logger
	workers int
}

// RunReport is the result of one (stock, method) pair within a profile run
type RunReport struct {
	StockID string
	Method  contracts.Method
	Result  *RunResult
	Err     error
}

// NewRunner creates a runner. clearer may be nil when tables are never cleared.
func NewRunner(engine *Engine, clearer TableClearer, log *logger.Logger, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		engine:  engine,
		clearer: clearer,
		logger:  log.WithField("module", "runner"),
		workers: workers,
	}
}

// RunProfile backtests every stock of the profile with every configured method.
// Each stock's bars are loaded once; each method runs on its own state.
// Per-stock failures are reported, not returned.
func (r *Runner) RunProfile(ctx context.Context, profile *strategyconfig.Profile, loader BarLoader) ([]RunReport, error) {
	if profile.ClearBeforeRun && r.clearer != nil {
		if err := r.clearer.ClearTables(ctx, profile.Market); err != nil {
			return nil, fmt.Errorf("clear %s tables: %w", profile.Market, err)
		}
	}

	stocks := profile.StockIDs()
	methods := profile.MethodList()

	r.logger.WithFields(map[string]interface{}{
		"market":      profile.Market,
		"stock_count": len(stocks),
		"methods":     contracts.MethodStrings(methods),
		"start_date":  profile.StartDate,
		"workers":     r.workers,
	}).Info("Starting profile backtest")

	reportCh := make(chan []RunReport, len(stocks))
	stockCh := make(chan string, len(stocks))

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.worker(ctx, workerID, profile, methods, loader, stockCh, reportCh)
		}(i)
	}

	for _, s := range stocks {
		stockCh <- s
	}
	close(stockCh)

	go func() {
		wg.Wait()
		close(reportCh)
	}()

	byStock := make(map[string][]RunReport, len(stocks))
	failCount := 0
	for reports := range reportCh {
		for _, rep := range reports {
			if rep.Err != nil {
				failCount++
			}
		}
		if len(reports) > 0 {
			byStock[reports[0].StockID] = reports
		}
	}

	// profile order, not completion order
	results := make([]RunReport, 0, len(stocks)*len(methods))
	for _, s := range stocks {
		results = append(results, byStock[s]...)
	}

	r.logger.WithFields(map[string]interface{}{
		"market": profile.Market,
		"runs":   len(results),
		"failed": failCount,
	}).Info("Profile backtest completed")

	return results, ctx.Err()
}

func (r *Runner) worker(
	ctx context.Context,
	workerID int,
	profile *strategyconfig.Profile,
	methods []contracts.Method,
	loader BarLoader,
	stockCh <-chan string,
	reportCh chan<- []RunReport,
) {
	for stockID := range stockCh {
		reports := make([]RunReport, 0, len(methods))

		select {
		case <-ctx.Done():
			for _, m := range methods {
				reports = append(reports, RunReport{StockID: stockID, Method: m, Err: ctx.Err()})
			}
			reportCh <- reports
			continue
		default:
		}

		bars, err := loader.LoadBars(ctx, stockID, profile.Start())
		if err != nil {
			r.logger.WithError(err).WithFields(map[string]interface{}{
				"worker":   workerID,
				"stock_id": stockID,
			}).Error("Failed to load bars")
			for _, m := range methods {
				reports = append(reports, RunReport{StockID: stockID, Method: m, Err: err})
			}
			reportCh <- reports
			continue
		}

		for _, m := range methods {
			res, err := r.engine.Run(ctx, RunRequest{
				Market:  profile.Market,
				StockID: stockID,
				Method:  m,
				Bars:    bars,
				Config:  profile.Strategy,
			})
			reports = append(reports, RunReport{StockID: stockID, Method: m, Result: res, Err: err})
		}
		reportCh <- reports
	}
}
