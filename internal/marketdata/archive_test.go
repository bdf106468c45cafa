package marketdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/pkg/logger"
)

type fakeSource struct {
	rows  []Row
	err   error
	calls int
}

func (f *fakeSource) FetchDaily(_ context.Context, _ string, _ time.Time) ([]Row, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func sampleRows() []Row {
	return []Row{
		{StockID: "VOO", Date: day(2024, 3, 1), Values: map[string]float64{"adjClose": 470.1, "divCash": 0}},
		{StockID: "VOO", Date: day(2024, 3, 4), Values: map[string]float64{"adjClose": 471.2, "divCash": 0}},
		{StockID: "VOO", Date: day(2024, 3, 5), Values: map[string]float64{"adjClose": 468.9, "divCash": 1.54}},
	}
}

func TestArchiveCreatesFile(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{rows: sampleRows()}
	archive := NewArchive(src, dir, "us", time.Hour, logger.Nop())

	rows, err := archive.FetchDaily(context.Background(), "VOO", day(2024, 1, 1))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, filepath.Join(dir, "us", "VOO.parquet"), archive.Path("VOO"))

	_, err = os.Stat(archive.Path("VOO"))
	require.NoError(t, err)
}

func TestArchiveServesFreshFile(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{rows: sampleRows()}
	archive := NewArchive(src, dir, "us", time.Hour, logger.Nop())

	_, err := archive.FetchDaily(context.Background(), "VOO", day(2024, 1, 1))
	require.NoError(t, err)

	rows, err := archive.FetchDaily(context.Background(), "VOO", day(2024, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "fresh archive must not hit the source")
	require.Len(t, rows, 2)

	assert.True(t, rows[0].Date.Equal(day(2024, 3, 4)))
	assert.Equal(t, 1.54, rows[1].Values["divCash"])
	assert.Equal(t, 468.9, rows[1].Values["adjClose"])
	assert.Equal(t, "VOO", rows[1].StockID)
}

func TestArchiveRefreshesStaleFile(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{rows: sampleRows()}
	archive := NewArchive(src, dir, "us", time.Hour, logger.Nop())

	_, err := archive.FetchDaily(context.Background(), "VOO", day(2024, 1, 1))
	require.NoError(t, err)

	src.rows = []Row{
		{StockID: "VOO", Date: day(2024, 3, 5), Values: map[string]float64{"adjClose": 469.0, "divCash": 1.54}},
		{StockID: "VOO", Date: day(2024, 3, 6), Values: map[string]float64{"adjClose": 472.3, "divCash": 0}},
	}
	archive.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	rows, err := archive.FetchDaily(context.Background(), "VOO", day(2024, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	require.Len(t, rows, 4)
	assert.Equal(t, 469.0, rows[2].Values["adjClose"], "fresh row wins")
	assert.True(t, rows[3].Date.Equal(day(2024, 3, 6)))
}

func TestArchiveServesStaleOnFetchError(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{rows: sampleRows()}
	archive := NewArchive(src, dir, "us", time.Hour, logger.Nop())

	_, err := archive.FetchDaily(context.Background(), "VOO", day(2024, 1, 1))
	require.NoError(t, err)

	src.err = errors.New("provider down")
	archive.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	rows, err := archive.FetchDaily(context.Background(), "VOO", day(2024, 1, 1))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestArchiveFetchErrorWithoutFile(t *testing.T) {
	src := &fakeSource{err: errors.New("provider down")}
	archive := NewArchive(src, t.TempDir(), "tw", time.Hour, logger.Nop())

	_, err := archive.FetchDaily(context.Background(), "0050", day(2024, 1, 1))
	assert.Error(t, err)
}

func TestLoaderLoadBars(t *testing.T) {
	rows := sampleRows()
	rows[0].StockID = ""
	// provider returned rows out of order with a duplicate
	src := &fakeSource{rows: []Row{rows[2], rows[0], rows[1], rows[0]}}

	loader := NewLoader(src, "adjClose", "divCash", logger.Nop())
	bars, err := loader.LoadBars(context.Background(), "VOO", day(2024, 1, 1))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, "VOO", bars[0].StockID)
	assert.True(t, bars[0].Date.Before(bars[1].Date))
	assert.Equal(t, 1.54, bars[2].Dividend)
	assert.Equal(t, 468.9, bars[2].Close)
}

func TestLoaderMissingColumn(t *testing.T) {
	src := &fakeSource{rows: sampleRows()}
	loader := NewLoader(src, "close", "divCash", logger.Nop())

	_, err := loader.LoadBars(context.Background(), "VOO", day(2024, 1, 1))
	assert.Error(t, err)
}

func TestLoaderWithListings(t *testing.T) {
	src := &fakeSource{rows: sampleRows()}
	loader := NewLoader(src, "adjClose", "divCash", logger.Nop()).WithListings([]contracts.ListedCompany{
		{Code: "VOO", StartDate: day(2024, 3, 4)},
	})

	bars, err := loader.LoadBars(context.Background(), "VOO", day(2020, 1, 1))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Date.Equal(day(2024, 3, 4)))
}
