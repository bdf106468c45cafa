package finmind

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wonny/divbt/backend/pkg/config"
	"github.com/wonny/divbt/backend/pkg/httputil"
	"github.com/wonny/divbt/backend/pkg/logger"
)

const priceJSON = `{"msg":"success","status":200,"data":[
 {"date":"2024-07-15","stock_id":"0056","Trading_Volume":31234567,"open":38.1,"max":38.5,"min":37.9,"close":38.2,"spread":0.1},
 {"date":"2024-07-16","stock_id":"0056","Trading_Volume":29234567,"open":38.2,"max":38.4,"min":36.0,"close":36.1,"spread":-2.1},
 {"date":"2024-07-17","stock_id":"0056","Trading_Volume":28234567,"open":36.1,"max":36.6,"min":36.0,"close":36.5,"spread":0.4}
]}`

const dividendJSON = `{"msg":"success","status":200,"data":[
 {"date":"2024-07-16","stock_id":"0056","before_price":38.2,"after_price":36.0,"stock_and_cache_dividend":2.2,"stock_or_cache_dividend":"除息"}
]}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("data_id") != "0056" || q.Get("start_date") != "2024-01-01" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		switch q.Get("dataset") {
		case DatasetStockPrice:
			w.Write([]byte(priceJSON))
		case DatasetDividendResult:
			w.Write([]byte(dividendJSON))
		default:
			w.Write([]byte(`{"msg":"dataset not found","status":400,"data":[]}`))
		}
	}))
}

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{Provider: config.ProviderConfig{Timeout: 5 * time.Second}}
	hc := httputil.New(cfg, logger.Nop()).DisableRetry()
	return NewClient(hc, config.FinMindConfig{BaseURL: baseURL}, logger.Nop())
}

func TestFetchDaily(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := newTestClient(server.URL)
	rows, err := client.FetchDaily(context.Background(), "0056", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchDaily failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	wantDiv := []float64{0, 2.2, 0}
	wantClose := []float64{38.2, 36.1, 36.5}
	for i := range rows {
		if rows[i].Values[DividendColumn] != wantDiv[i] {
			t.Errorf("row %d: expected dividend %v, got %v", i, wantDiv[i], rows[i].Values[DividendColumn])
		}
		if rows[i].Values["close"] != wantClose[i] {
			t.Errorf("row %d: expected close %v, got %v", i, wantClose[i], rows[i].Values["close"])
		}
	}
}

func TestFetchDatasetStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"msg":"Your level is register. Please update your user level.","status":402}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.FetchPrices(context.Background(), "0056", time.Now()); err == nil {
		t.Error("expected error for non-200 envelope status")
	}
}

func TestToRowsInvalidDate(t *testing.T) {
	_, err := toRows("0056", []map[string]interface{}{{"date": "2024/07/16", "close": 1.0}})
	if err == nil {
		t.Error("expected invalid date error")
	}
}
