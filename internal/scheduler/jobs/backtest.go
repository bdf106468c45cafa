package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/divbt/backend/internal/backtest"
	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/strategyconfig"
	"github.com/wonny/divbt/backend/pkg/logger"
	"github.com/wonny/divbt/backend/pkg/redis"
)

// DefaultBacktestSchedule runs on weekday evenings when a profile sets none
const DefaultBacktestSchedule = "0 30 18 * * 1-5"

// ProfileRunner runs every (stock, method) pair of a profile
type ProfileRunner interface {
	RunProfile(ctx context.Context, profile *strategyconfig.Profile, loader backtest.BarLoader) ([]backtest.RunReport, error)
}

// LoaderFactory builds the bar loader of a run. It is called once per run so
// listing dates can be refreshed between runs.
type LoaderFactory func(ctx context.Context) (backtest.BarLoader, error)

// BacktestJob re-runs a market profile and drops the cached results of that market
// ⭐ SSOT: 시장별 백테스트 재실행 스케줄은 이 Job에서만
type BacktestJob struct {
	profile   *strategyconfig.Profile
	runner    ProfileRunner
	newLoader LoaderFactory
	cache     *redis.Cache
	logger    *logger.Logger
}

// NewBacktestJob creates a new backtest job for one profile
func NewBacktestJob(
	profile *strategyconfig.Profile,
	runner ProfileRunner,
	newLoader LoaderFactory,
	cache *redis.Cache,
	log *logger.Logger,
) *BacktestJob {
	return &BacktestJob{
		profile:   profile,
		runner:    runner,
		newLoader: newLoader,
		cache:     cache,
		logger:    log.WithField("market", profile.Market),
	}
}

// Name returns the job name
func (j *BacktestJob) Name() string {
	return "backtest_" + j.profile.Market
}

// Schedule returns the profile schedule
func (j *BacktestJob) Schedule() string {
	if j.profile.Schedule != "" {
		return j.profile.Schedule
	}
	return DefaultBacktestSchedule
}

// Run executes the profile backtest. It fails only when the run could not
// start or every (stock, method) pair failed.
func (j *BacktestJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled backtest")

	loader, err := j.newLoader(ctx)
	if err != nil {
		return fmt.Errorf("build loader: %w", err)
	}

	reports, err := j.runner.RunProfile(ctx, j.profile, loader)
	if err != nil {
		return fmt.Errorf("run profile %s: %w", j.profile.Market, err)
	}

	counts := map[contracts.Outcome]int{}
	failed := 0
	for _, rep := range reports {
		switch {
		case rep.Err != nil:
			failed++
		case rep.Result != nil:
			counts[rep.Result.Outcome]++
		}
	}

	if err := j.cache.Delete(ctx, StaleKeys(j.profile, reports)...); err != nil {
		j.logger.WithError(err).Warn("Failed to invalidate result cache")
	}

	j.logger.WithFields(map[string]interface{}{
		"runs":          len(reports),
		"failed":        failed,
		"completed":     counts[contracts.OutcomeCompleted],
		"no_signals":    counts[contracts.OutcomeNoSignals],
		"short_history": counts[contracts.OutcomeShortHistory],
	}).Info("Scheduled backtest finished")

	if len(reports) > 0 && failed == len(reports) {
		return fmt.Errorf("all %d runs of %s failed", failed, j.profile.Market)
	}
	return nil
}

// StaleKeys lists the cached API responses a profile re-run makes stale
func StaleKeys(profile *strategyconfig.Profile, reports []backtest.RunReport) []string {
	methods := append(contracts.MethodStrings(profile.MethodList()), "all")
	keys := redis.MarketKeys(profile.Market, methods)
	for _, rep := range reports {
		keys = append(keys, redis.LedgerKey(profile.Market, rep.StockID, rep.Method.String()))
	}
	return keys
}
