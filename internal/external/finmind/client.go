package finmind

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/marketdata"
	"github.com/wonny/divbt/backend/pkg/config"
	"github.com/wonny/divbt/backend/pkg/httputil"
	"github.com/wonny/divbt/backend/pkg/logger"
)

// Datasets of the FinMind v4 data API
const (
	DatasetStockPrice     = "TaiwanStockPrice"
	DatasetDividendResult = "TaiwanStockDividendResult"
)

// DividendColumn is the per-share cash plus stock dividend column
const DividendColumn = "stock_and_cache_dividend"

// Compile-time interface check
var _ marketdata.Source = (*Client)(nil)

// Client fetches TW prices and dividend results from FinMind
// ⭐ SSOT: FinMind API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	token      string
}

// response is the v4 data envelope
type response struct {
	Msg    string                   `json:"msg"`
	Status int                      `json:"status"`
	Data   []map[string]interface{} `json:"data"`
}

// NewClient creates a new FinMind client. The token is optional.
func NewClient(httpClient *httputil.Client, cfg config.FinMindConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("provider", "finmind"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
	}
}

// FetchDaily returns price rows with the dividend column merged in (0 on non-dividend days)
func (c *Client) FetchDaily(ctx context.Context, stockID string, start time.Time) ([]marketdata.Row, error) {
	prices, err := c.FetchPrices(ctx, stockID, start)
	if err != nil {
		return nil, err
	}

	dividends, err := c.FetchDividends(ctx, stockID, start)
	if err != nil {
		return nil, err
	}

	rows := marketdata.MergeDividends(prices, dividends, DividendColumn)

	c.logger.WithFields(map[string]interface{}{
		"stock_id":  stockID,
		"prices":    len(prices),
		"dividends": len(dividends),
	}).Debug("Fetched daily rows")
	return rows, nil
}

// FetchPrices fetches the TaiwanStockPrice dataset
func (c *Client) FetchPrices(ctx context.Context, stockID string, start time.Time) ([]marketdata.Row, error) {
	return c.fetchDataset(ctx, DatasetStockPrice, stockID, start)
}

// FetchDividends fetches the TaiwanStockDividendResult dataset (ex-dividend events)
func (c *Client) FetchDividends(ctx context.Context, stockID string, start time.Time) ([]marketdata.Row, error) {
	return c.fetchDataset(ctx, DatasetDividendResult, stockID, start)
}

func (c *Client) fetchDataset(ctx context.Context, dataset, stockID string, start time.Time) ([]marketdata.Row, error) {
	params := url.Values{}
	params.Set("dataset", dataset)
	params.Set("data_id", stockID)
	params.Set("start_date", start.Format(contracts.DateLayout))
	if c.token != "" {
		params.Set("token", c.token)
	}
	fullURL := fmt.Sprintf("%s/data?%s", c.baseURL, params.Encode())

	var resp response
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		return nil, fmt.Errorf("finmind %s %s: %w", dataset, stockID, err)
	}
	if resp.Status != 0 && resp.Status != http.StatusOK {
		return nil, fmt.Errorf("finmind %s %s: status %d: %s", dataset, stockID, resp.Status, resp.Msg)
	}

	rows, err := toRows(stockID, resp.Data)
	if err != nil {
		return nil, fmt.Errorf("finmind %s %s: %w", dataset, stockID, err)
	}
	return rows, nil
}

// toRows keeps the numeric fields of each record as row columns
func toRows(stockID string, data []map[string]interface{}) ([]marketdata.Row, error) {
	rows := make([]marketdata.Row, 0, len(data))
	for _, item := range data {
		dateStr, _ := item["date"].(string)
		date, err := time.Parse(contracts.DateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", dateStr, err)
		}

		values := make(map[string]float64, len(item))
		for k, v := range item {
			if f, ok := v.(float64); ok {
				values[k] = f
			}
		}

		rows = append(rows, marketdata.Row{
			StockID: stockID,
			Date:    date,
			Values:  values,
		})
	}
	return rows, nil
}
