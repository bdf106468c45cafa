package tiingo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/marketdata"
	"github.com/wonny/divbt/backend/pkg/config"
	"github.com/wonny/divbt/backend/pkg/httputil"
	"github.com/wonny/divbt/backend/pkg/logger"
)

// Compile-time interface check
var _ marketdata.Source = (*Client)(nil)

// Client fetches US end-of-day prices from Tiingo
// ⭐ SSOT: Tiingo API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	token      string
}

// NewClient creates a new Tiingo client
func NewClient(httpClient *httputil.Client, cfg config.TiingoConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("provider", "tiingo"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
	}
}

// FetchDaily fetches daily prices of a ticker from start onwards.
// Every numeric field of the response (adjClose, divCash, close...) becomes a row column.
func (c *Client) FetchDaily(ctx context.Context, ticker string, start time.Time) ([]marketdata.Row, error) {
	if c.token == "" {
		return nil, fmt.Errorf("tiingo: TIINGO_TOKEN is not set")
	}

	params := url.Values{}
	params.Set("startDate", start.Format(contracts.DateLayout))
	params.Set("token", c.token)
	fullURL := fmt.Sprintf("%s/tiingo/daily/%s/prices?%s", c.baseURL, url.PathEscape(ticker), params.Encode())

	body, err := c.httpClient.GetBody(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("tiingo %s: %w", ticker, err)
	}

	rows, err := parsePrices(ticker, body)
	if err != nil {
		return nil, fmt.Errorf("tiingo %s: %w", ticker, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"count":  len(rows),
	}).Debug("Fetched prices")
	return rows, nil
}

// parsePrices decodes the prices array response
func parsePrices(ticker string, body []byte) ([]marketdata.Row, error) {
	var raw []map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}

	rows := make([]marketdata.Row, 0, len(raw))
	for _, item := range raw {
		dateStr, _ := item["date"].(string)
		date, err := parseDate(dateStr)
		if err != nil {
			return nil, err
		}

		values := make(map[string]float64, len(item))
		for k, v := range item {
			if f, ok := v.(float64); ok {
				values[k] = f
			}
		}

		rows = append(rows, marketdata.Row{
			StockID: ticker,
			Date:    date,
			Values:  values,
		})
	}
	return rows, nil
}

// parseDate accepts "2024-03-01T00:00:00.000Z" and "2024-03-01"
func parseDate(s string) (time.Time, error) {
	if len(s) < len(contracts.DateLayout) {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	t, err := time.Parse(contracts.DateLayout, s[:len(contracts.DateLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
