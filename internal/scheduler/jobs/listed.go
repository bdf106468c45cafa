package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/pkg/logger"
)

// ListedFetcher returns the current listed company table
type ListedFetcher interface {
	FetchListedCompanies(ctx context.Context) ([]contracts.ListedCompany, error)
}

// ListedSaver replaces the listed companies of a market
type ListedSaver interface {
	SaveListedCompanies(ctx context.Context, market string, companies []contracts.ListedCompany) error
}

// ListedCompaniesJob refreshes the listed company table weekly
// ⭐ SSOT: 상장 종목 갱신 스케줄은 이 Job에서만
type ListedCompaniesJob struct {
	market  string
	fetcher ListedFetcher
	saver   ListedSaver
	logger  *logger.Logger
}

// NewListedCompaniesJob creates a new listed companies job
func NewListedCompaniesJob(market string, fetcher ListedFetcher, saver ListedSaver, log *logger.Logger) *ListedCompaniesJob {
	return &ListedCompaniesJob{
		market:  market,
		fetcher: fetcher,
		saver:   saver,
		logger:  log.WithField("market", market),
	}
}

// Name returns the job name
func (j *ListedCompaniesJob) Name() string {
	return "listed_companies"
}

// Schedule returns the cron schedule (Mondays at 6 AM)
func (j *ListedCompaniesJob) Schedule() string {
	return "0 0 6 * * 1"
}

// Run fetches and stores the listed companies. An empty fetch keeps the old table.
func (j *ListedCompaniesJob) Run(ctx context.Context) error {
	j.logger.Info("Starting listed companies refresh")

	companies, err := j.fetcher.FetchListedCompanies(ctx)
	if err != nil {
		return fmt.Errorf("fetch listed companies: %w", err)
	}
	if len(companies) == 0 {
		return fmt.Errorf("fetch listed companies: empty table")
	}

	if err := j.saver.SaveListedCompanies(ctx, j.market, companies); err != nil {
		return fmt.Errorf("save listed companies: %w", err)
	}

	j.logger.WithField("count", len(companies)).Info("Listed companies refreshed")
	return nil
}
