package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/pkg/logger"
)

// Source fetches the daily rows of one stock from start onwards
type Source interface {
	FetchDaily(ctx context.Context, stockID string, start time.Time) ([]Row, error)
}

// Loader turns a Source into backtest bars using the profile's column names
type Loader struct {
	source         Source
	closeColumn    string
	dividendColumn string
	listings       map[string]time.Time
	logger         *logger.Logger
}

// NewLoader creates a loader reading closeColumn and dividendColumn from source rows
func NewLoader(source Source, closeColumn, dividendColumn string, log *logger.Logger) *Loader {
	return &Loader{
		source:         source,
		closeColumn:    closeColumn,
		dividendColumn: dividendColumn,
		logger:         log.WithField("module", "marketdata"),
	}
}

// WithListings sets per-stock listing dates. A stock listed after the
// requested start is loaded from its listing date.
func (l *Loader) WithListings(companies []contracts.ListedCompany) *Loader {
	l.listings = make(map[string]time.Time, len(companies))
	for _, c := range companies {
		l.listings[c.Code] = c.StartDate
	}
	return l
}

// LoadBars fetches, normalizes and validates the bars of one stock
func (l *Loader) LoadBars(ctx context.Context, stockID string, start time.Time) ([]contracts.PriceBar, error) {
	if listed, ok := l.listings[stockID]; ok {
		start = ListingStart(listed, start)
	}

	rows, err := l.source.FetchDaily(ctx, stockID, start)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", stockID, err)
	}

	rows = FilterFrom(MergeRows(nil, rows), start)
	for i := range rows {
		if rows[i].StockID == "" {
			rows[i].StockID = stockID
		}
	}

	bars, err := BuildBars(rows, l.closeColumn, l.dividendColumn)
	if err != nil {
		return nil, fmt.Errorf("build bars %s: %w", stockID, err)
	}

	l.logger.WithFields(map[string]interface{}{
		"stock_id": stockID,
		"bars":     len(bars),
		"first":    bars[0].Date.Format(contracts.DateLayout),
		"last":     bars[len(bars)-1].Date.Format(contracts.DateLayout),
	}).Debug("Bars loaded")

	return bars, nil
}
