package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/report"
	"github.com/wonny/divbt/backend/internal/store"
	"github.com/wonny/divbt/backend/pkg/logger"
	"github.com/wonny/divbt/backend/pkg/redis"
)

// maxRecentDays bounds the recent transactions window
const maxRecentDays = 366

// ResultsHandler serves backtest results to the dashboard
// ⭐ SSOT: 결과 조회 API 핸들러는 이 구조체에서만
type ResultsHandler struct {
	store   store.Store
	cache   *redis.Cache
	markets map[string]bool
	logger  *logger.Logger
	now     func() time.Time
}

// SummaryView is a summary row with its dashboard strings
type SummaryView struct {
	contracts.SummaryRow
	ROIText   string `json:"roi_text"`
	IRRText   string `json:"irr_text"`
	AssetText string `json:"asset_text"`
}

// SummariesResponse is the body of the summary endpoints
type SummariesResponse struct {
	Market    string        `json:"market"`
	Method    string        `json:"method,omitempty"`
	Count     int           `json:"count"`
	Summaries []SummaryView `json:"summaries"`
}

// LedgerResponse is the body of the ledger endpoint
type LedgerResponse struct {
	Market  string                     `json:"market"`
	StockID string                     `json:"stock_id"`
	Method  string                     `json:"method"`
	Count   int                        `json:"count"`
	Rows    []contracts.TradeLedgerRow `json:"rows"`
}

// RecentResponse is the body of the recent transactions endpoint
type RecentResponse struct {
	Market  string                     `json:"market"`
	From    string                     `json:"from"`
	To      string                     `json:"to"`
	Count   int                        `json:"count"`
	Rows    []contracts.TradeLedgerRow `json:"rows"`
	Message string                     `json:"message"`
}

// NewResultsHandler creates a new results handler for the given markets.
// cache may wrap a disabled redis client.
func NewResultsHandler(s store.Store, cache *redis.Cache, markets []string, log *logger.Logger) *ResultsHandler {
	known := make(map[string]bool, len(markets))
	for _, m := range markets {
		known[m] = true
	}
	return &ResultsHandler{
		store:   s,
		cache:   cache,
		markets: known,
		logger:  log.WithField("module", "api"),
		now:     time.Now,
	}
}

// WithClock overrides the clock used for the recent window
func (h *ResultsHandler) WithClock(now func() time.Time) *ResultsHandler {
	h.now = now
	return h
}

// market resolves the {market} path variable or writes a 404
func (h *ResultsHandler) market(w http.ResponseWriter, r *http.Request) (string, bool) {
	market := mux.Vars(r)["market"]
	if !h.markets[market] {
		respondError(w, http.StatusNotFound, "Unknown market: "+market)
		return "", false
	}
	return market, true
}

// GetSummaries returns the summary table of a market
// GET /api/{market}/summaries?method=bt_dividend
func (h *ResultsHandler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	market, ok := h.market(w, r)
	if !ok {
		return
	}

	var method contracts.Method
	if raw := r.URL.Query().Get("method"); raw != "" {
		m, err := contracts.ParseMethod(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		method = m
	}

	cacheMethod := method.String()
	if cacheMethod == "" {
		cacheMethod = "all"
	}

	var rows []contracts.SummaryRow
	err := h.cache.GetOrSet(r.Context(), redis.SummariesKey(market, cacheMethod), &rows, redis.TTLMedium, func() (interface{}, error) {
		return h.store.Summaries(r.Context(), market, method)
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to get summaries")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve summaries")
		return
	}

	respondJSON(w, http.StatusOK, SummariesResponse{
		Market:    market,
		Method:    method.String(),
		Count:     len(rows),
		Summaries: summaryViews(rows),
	})
}

// GetBestSummaries returns the best method per stock of a market
// GET /api/{market}/summaries/best
func (h *ResultsHandler) GetBestSummaries(w http.ResponseWriter, r *http.Request) {
	market, ok := h.market(w, r)
	if !ok {
		return
	}

	var rows []contracts.SummaryRow
	err := h.cache.GetOrSet(r.Context(), redis.BestSummariesKey(market), &rows, redis.TTLMedium, func() (interface{}, error) {
		return h.store.BestSummaries(r.Context(), market)
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to get best summaries")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve best summaries")
		return
	}

	respondJSON(w, http.StatusOK, SummariesResponse{
		Market:    market,
		Count:     len(rows),
		Summaries: summaryViews(rows),
	})
}

// GetLedger returns the trade ledger of one (stock, method)
// GET /api/{market}/ledger/{stock}/{method}
func (h *ResultsHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	market, ok := h.market(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	stockID := vars["stock"]
	method, err := contracts.ParseMethod(vars["method"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var rows []contracts.TradeLedgerRow
	err = h.cache.GetOrSet(r.Context(), redis.LedgerKey(market, stockID, method.String()), &rows, redis.TTLMedium, func() (interface{}, error) {
		return h.store.TransactionLogs(r.Context(), market, stockID, method)
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to get ledger")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve ledger")
		return
	}

	if len(rows) == 0 {
		respondError(w, http.StatusNotFound, "No ledger for "+stockID+"/"+method.String())
		return
	}

	respondJSON(w, http.StatusOK, LedgerResponse{
		Market:  market,
		StockID: stockID,
		Method:  method.String(),
		Count:   len(rows),
		Rows:    rows,
	})
}

// GetRecentTransactions returns ledger rows of the last N days
// GET /api/{market}/transactions/recent?days=14
func (h *ResultsHandler) GetRecentTransactions(w http.ResponseWriter, r *http.Request) {
	market, ok := h.market(w, r)
	if !ok {
		return
	}

	days := report.RecentDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRecentDays {
			respondError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}

	from, to := report.RecentWindow(h.now(), days)
	rows, err := h.store.RecentTransactions(r.Context(), market, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recent transactions")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve recent transactions")
		return
	}
	if rows == nil {
		rows = []contracts.TradeLedgerRow{}
	}

	respondJSON(w, http.StatusOK, RecentResponse{
		Market:  market,
		From:    from.Format(contracts.DateLayout),
		To:      to.Format(contracts.DateLayout),
		Count:   len(rows),
		Rows:    rows,
		Message: report.RecentMessage(market, rows, from, to),
	})
}

func summaryViews(rows []contracts.SummaryRow) []SummaryView {
	views := make([]SummaryView, 0, len(rows))
	for _, r := range rows {
		views = append(views, SummaryView{
			SummaryRow: r,
			ROIText:    report.FormatPercent(r.ROI),
			IRRText:    report.FormatPercent(r.IRR),
			AssetText:  report.FormatFloat(r.AssetValue),
		})
	}
	return views
}
