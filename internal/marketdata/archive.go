package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/wonny/divbt/backend/pkg/logger"
)

// Compile-time interface check
var _ Source = (*Archive)(nil)

// Archive caches a Source in one Parquet file per stock:
//
//	<DataDir>/<market>/<STOCK>.parquet
//
// A missing file is fetched and written. A file older than MaxAge is
// refetched and merged with what is on disk. Otherwise the file is read.
type Archive struct {
	source Source
	dir    string
	maxAge time.Duration
	logger *logger.Logger
	now    func() time.Time
}

// rowRecord is the Parquet schema of an archived row, one record per column
type rowRecord struct {
	StockID string  `parquet:"stock_id"`
	Date    int64   `parquet:"date"` // Unix ms
	Column  string  `parquet:"column"`
	Value   float64 `parquet:"value"`
}

// NewArchive creates an archive for one market under dataDir
func NewArchive(source Source, dataDir, market string, maxAge time.Duration, log *logger.Logger) *Archive {
	return &Archive{
		source: source,
		dir:    filepath.Join(dataDir, market),
		maxAge: maxAge,
		logger: log.WithFields(map[string]interface{}{"module": "archive", "market": market}),
		now:    time.Now,
	}
}

// WithClock overrides the clock used for the staleness check
func (a *Archive) WithClock(now func() time.Time) *Archive {
	a.now = now
	return a
}

// Path returns the archive file of one stock
func (a *Archive) Path(stockID string) string {
	return filepath.Join(a.dir, stockID+".parquet")
}

// FetchDaily serves rows from the archive, refreshing it from the source when needed
func (a *Archive) FetchDaily(ctx context.Context, stockID string, start time.Time) ([]Row, error) {
	path := a.Path(stockID)
	log := a.logger.WithField("stock_id", stockID)

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		rows, err := a.source.FetchDaily(ctx, stockID, start)
		if err != nil {
			return nil, err
		}
		if err := a.write(path, stockID, rows); err != nil {
			log.WithError(err).Warn("Failed to write archive")
		}
		log.WithField("rows", len(rows)).Info("Archive created")
		return FilterFrom(MergeRows(nil, rows), start), nil

	case err != nil:
		return nil, fmt.Errorf("stat archive %s: %w", path, err)
	}

	existing, readErr := a.read(path)
	if readErr != nil {
		log.WithError(readErr).Warn("Archive unreadable, refetching")
	}

	if readErr == nil && a.now().Sub(info.ModTime()) <= a.maxAge {
		return FilterFrom(existing, start), nil
	}

	fresh, err := a.source.FetchDaily(ctx, stockID, start)
	if err != nil {
		if readErr == nil && len(existing) > 0 {
			log.WithError(err).Warn("Refresh failed, serving stale archive")
			return FilterFrom(existing, start), nil
		}
		return nil, err
	}

	merged := MergeRows(existing, fresh)
	if err := a.write(path, stockID, merged); err != nil {
		log.WithError(err).Warn("Failed to write archive")
	}
	log.WithFields(map[string]interface{}{
		"fresh":  len(fresh),
		"merged": len(merged),
	}).Info("Archive refreshed")

	return FilterFrom(merged, start), nil
}

func (a *Archive) read(path string) ([]Row, error) {
	records, err := readParquetFile[rowRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}
	return recordsToRows(records), nil
}

func (a *Archive) write(path, stockID string, rows []Row) error {
	if err := writeParquetFile(path, rowsToRecords(stockID, rows)); err != nil {
		return fmt.Errorf("write archive %s: %w", path, err)
	}
	return nil
}

func rowsToRecords(stockID string, rows []Row) []rowRecord {
	records := make([]rowRecord, 0, len(rows)*2)
	for _, r := range rows {
		id := r.StockID
		if id == "" {
			id = stockID
		}
		ts := r.Date.UnixMilli()
		for _, col := range r.Columns() {
			records = append(records, rowRecord{
				StockID: id,
				Date:    ts,
				Column:  col,
				Value:   r.Values[col],
			})
		}
	}
	return records
}

func recordsToRows(records []rowRecord) []Row {
	byDate := make(map[int64]*Row)
	for _, rec := range records {
		row, ok := byDate[rec.Date]
		if !ok {
			row = &Row{
				StockID: rec.StockID,
				Date:    time.UnixMilli(rec.Date).UTC(),
				Values:  make(map[string]float64),
			}
			byDate[rec.Date] = row
		}
		row.Values[rec.Column] = rec.Value
	}

	rows := make([]Row, 0, len(byDate))
	for _, r := range byDate {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}
