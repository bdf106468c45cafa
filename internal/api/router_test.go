package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/divbt/backend/internal/api/handlers"
	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/store"
	"github.com/wonny/divbt/backend/pkg/logger"
	"github.com/wonny/divbt/backend/pkg/redis"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seededStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemory()
	ctx := context.Background()

	div := contracts.MethodDividendTriggered
	sig := contracts.MethodIndicatorTriggered

	save := func(stockID string, method contracts.Method, date time.Time, asset, roi float64) {
		ledger := []contracts.TradeLedgerRow{{
			StockID: stockID, Date: date, Method: method,
			PositionSize: 2000, PositionPrice: 30, PositionValue: 60000,
			DateClosedPrice: 31, AssetValue: asset,
		}}
		summary := &contracts.SummaryRow{
			StockID: stockID, Date: day(2024, 7, 20), Method: method,
			Close: 31, PositionValue: 60000, AssetValue: asset, ROI: roi, IRR: roi / 2,
		}
		require.NoError(t, s.SaveRun(ctx, "tw", ledger, summary))
	}

	save("0050", div, day(2024, 7, 10), 80000, 0.33)
	save("0050", sig, day(2024, 7, 1), 90000, 0.5)
	save("0056", div, day(2024, 5, 1), 70000, 0.16)
	return s
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	rc := redis.Disabled()

	s := seededStore(t)
	results := handlers.NewResultsHandler(s, redis.NewCache(rc, "divbt"), []string{"tw", "us"}, logger.Nop()).
		WithClock(func() time.Time { return time.Date(2024, 7, 20, 12, 0, 0, 0, time.UTC) })
	health := handlers.NewHealthHandler(s, rc)

	return NewRouter(results, health, []string{"*"}, logger.Nop())
}

func get(t *testing.T, h http.Handler, path string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	var body handlers.HealthResponse
	assert.Equal(t, http.StatusOK, get(t, router, "/health", &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "disabled", body.Checks["redis"])
}

func TestSummaries(t *testing.T) {
	router := newTestRouter(t)

	var body handlers.SummariesResponse
	require.Equal(t, http.StatusOK, get(t, router, "/api/tw/summaries?method=bt_dividend", &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "0050", body.Summaries[0].StockID)
	assert.Equal(t, "33.00%", body.Summaries[0].ROIText)

	var all handlers.SummariesResponse
	require.Equal(t, http.StatusOK, get(t, router, "/api/tw/summaries", &all))
	assert.Equal(t, 3, all.Count)

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/tw/summaries?method=bt_moon", nil))
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/jp/summaries", nil))
}

func TestBestSummaries(t *testing.T) {
	router := newTestRouter(t)

	var body handlers.SummariesResponse
	require.Equal(t, http.StatusOK, get(t, router, "/api/tw/summaries/best", &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, contracts.MethodIndicatorTriggered, body.Summaries[0].Method)

	var empty handlers.SummariesResponse
	require.Equal(t, http.StatusOK, get(t, router, "/api/us/summaries/best", &empty))
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Summaries)
}

func TestLedger(t *testing.T) {
	router := newTestRouter(t)

	var body handlers.LedgerResponse
	require.Equal(t, http.StatusOK, get(t, router, "/api/tw/ledger/0050/bt_signals", &body))
	assert.Equal(t, 1, body.Count)
	assert.True(t, body.Rows[0].Date.Equal(day(2024, 7, 1)))

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/tw/ledger/2330/bt_signals", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/tw/ledger/0050/unknown", nil))
}

func TestRecentTransactions(t *testing.T) {
	router := newTestRouter(t)

	var body handlers.RecentResponse
	require.Equal(t, http.StatusOK, get(t, router, "/api/tw/transactions/recent", &body))
	assert.Equal(t, "2024-07-06", body.From)
	assert.Equal(t, "2024-07-20", body.To)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "0050", body.Rows[0].StockID)
	assert.Contains(t, body.Message, "bt_dividend")

	var wide handlers.RecentResponse
	require.Equal(t, http.StatusOK, get(t, router, "/api/tw/transactions/recent?days=30", &wide))
	assert.Equal(t, 2, wide.Count)

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/tw/transactions/recent?days=0", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/tw/transactions/recent?days=abc", nil))
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/tw/summaries", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFound(t *testing.T) {
	router := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/nope", nil))
}
