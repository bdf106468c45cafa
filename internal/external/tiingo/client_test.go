package tiingo

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

const pricesJSON = `[
 {"date":"2024-03-14T00:00:00.000Z","close":465.3,"high":470.1,"low":463.0,"open":469.9,"volume":5012345,
  "adjClose":463.12,"adjHigh":467.9,"adjLow":460.8,"adjOpen":467.7,"adjVolume":5012345,"divCash":0.0,"splitFactor":1.0},
 {"date":"2024-03-15T00:00:00.000Z","close":467.2,"high":468.0,"low":464.5,"open":465.1,"volume":4812345,
  "adjClose":465.01,"adjHigh":465.8,"adjLow":462.3,"adjOpen":462.9,"adjVolume":4812345,"divCash":1.5429,"splitFactor":1.0}
]`

func newTestClient(baseURL, token string) *Client {
	cfg := &config.Config{Provider: config.ProviderConfig{Timeout: 5 * time.Second}}
	hc := httputil.New(cfg, logger.Nop()).DisableRetry()
	return NewClient(hc, config.TiingoConfig{Token: token, BaseURL: baseURL}, logger.Nop())
}

func TestFetchDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tiingo/daily/VOO/prices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("startDate"); got != "2024-01-01" {
			t.Errorf("Expected startDate=2024-01-01, got %s", got)
		}
		if got := r.URL.Query().Get("token"); got != "secret" {
			t.Errorf("Expected token=secret, got %s", got)
		}
		w.Write([]byte(pricesJSON))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "secret")
	rows, err := client.FetchDaily(context.Background(), "VOO", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchDaily failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	second := rows[1]
	if !second.Date.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", second.Date)
	}
	if second.Values["adjClose"] != 465.01 {
		t.Errorf("Expected adjClose 465.01, got %v", second.Values["adjClose"])
	}
	if second.Values["divCash"] != 1.5429 {
		t.Errorf("Expected divCash 1.5429, got %v", second.Values["divCash"])
	}
	if _, ok := second.Values["date"]; ok {
		t.Error("date must not be a numeric column")
	}
	if second.StockID != "VOO" {
		t.Errorf("Expected stock id VOO, got %s", second.StockID)
	}
}

func TestFetchDailyWithoutToken(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0", "")
	if _, err := client.FetchDaily(context.Background(), "VOO", time.Now()); err == nil {
		t.Error("expected error without token")
	}
}

func TestFetchDailyNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Error: Ticker 'NOPE' not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "secret")
	if _, err := client.FetchDaily(context.Background(), "NOPE", time.Now()); err == nil {
		t.Error("expected error for unknown ticker")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"2024-03-15T00:00:00.000Z", false},
		{"2024-03-15", false},
		{"2024/03/15", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
