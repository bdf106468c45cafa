package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
)

// Compile-time interface check
var _ Store = (*Memory)(nil)

// Memory implements Store in process memory. Used for dry runs and tests.
type Memory struct {
	mu        sync.RWMutex
	ledgers   map[memKey][]contracts.TradeLedgerRow
	summaries map[memKey]contracts.SummaryRow
	listed    map[string][]contracts.ListedCompany
}

type memKey struct {
	market  string
	stockID string
	method  contracts.Method
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		ledgers:   make(map[memKey][]contracts.TradeLedgerRow),
		summaries: make(map[memKey]contracts.SummaryRow),
		listed:    make(map[string][]contracts.ListedCompany),
	}
}

// EnsureSchema is a no-op
func (m *Memory) EnsureSchema(_ context.Context) error { return nil }

// SaveRun replaces the rows of one run key
func (m *Memory) SaveRun(_ context.Context, market string, ledger []contracts.TradeLedgerRow, summary *contracts.SummaryRow) error {
	stockID, method, ok := runKey(ledger, summary)
	if !ok {
		return nil
	}
	key := memKey{market: market, stockID: stockID, method: method}

	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]contracts.TradeLedgerRow, len(ledger))
	copy(rows, ledger)
	m.ledgers[key] = rows

	if summary != nil {
		m.summaries[key] = *summary
	} else {
		delete(m.summaries, key)
	}
	return nil
}

// ClearRun deletes the rows of one run key
func (m *Memory) ClearRun(_ context.Context, market, stockID string, method contracts.Method) error {
	key := memKey{market: market, stockID: stockID, method: method}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.ledgers, key)
	delete(m.summaries, key)
	return nil
}

// ClearTables deletes every ledger and summary row of a market
func (m *Memory) ClearTables(_ context.Context, market string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.ledgers {
		if k.market == market {
			delete(m.ledgers, k)
		}
	}
	for k := range m.summaries {
		if k.market == market {
			delete(m.summaries, k)
		}
	}
	return nil
}

// Summaries returns summaries ordered by ROI descending
func (m *Memory) Summaries(_ context.Context, market string, method contracts.Method) ([]contracts.SummaryRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []contracts.SummaryRow
	for k, s := range m.summaries {
		if k.market != market || (method != "" && k.method != method) {
			continue
		}
		out = append(out, s)
	}
	sortByROI(out)
	return out, nil
}

// BestSummaries returns the highest asset value summary per stock
func (m *Memory) BestSummaries(ctx context.Context, market string) ([]contracts.SummaryRow, error) {
	all, err := m.Summaries(ctx, market, "")
	if err != nil {
		return nil, err
	}
	return pickBest(all), nil
}

// TransactionLogs returns the ledger of one run key in date order
func (m *Memory) TransactionLogs(_ context.Context, market, stockID string, method contracts.Method) ([]contracts.TradeLedgerRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.ledgers[memKey{market: market, stockID: stockID, method: method}]
	out := make([]contracts.TradeLedgerRow, len(rows))
	copy(out, rows)
	return out, nil
}

// RecentTransactions returns ledger rows dated within [from, to]
func (m *Memory) RecentTransactions(_ context.Context, market string, from, to time.Time) ([]contracts.TradeLedgerRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lo, hi := formatDate(from), formatDate(to)
	var out []contracts.TradeLedgerRow
	for k, rows := range m.ledgers {
		if k.market != market {
			continue
		}
		for _, r := range rows {
			d := formatDate(r.Date)
			if d >= lo && d <= hi {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].StockID != out[j].StockID {
			return out[i].StockID < out[j].StockID
		}
		return out[i].Method < out[j].Method
	})
	return out, nil
}

// SaveListedCompanies replaces the listed companies of a market
func (m *Memory) SaveListedCompanies(_ context.Context, market string, companies []contracts.ListedCompany) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byCode := make(map[string]contracts.ListedCompany, len(companies))
	for _, c := range companies {
		byCode[c.Code] = c
	}
	out := make([]contracts.ListedCompany, 0, len(byCode))
	for _, c := range byCode {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	m.listed[market] = out
	return nil
}

// ListedCompanies returns the listed companies of a market ordered by code
func (m *Memory) ListedCompanies(_ context.Context, market string) ([]contracts.ListedCompany, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]contracts.ListedCompany, len(m.listed[market]))
	copy(out, m.listed[market])
	return out, nil
}

// Ping always succeeds
func (m *Memory) Ping(_ context.Context) error { return nil }

// Close is a no-op
func (m *Memory) Close() error { return nil }
