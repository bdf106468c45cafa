package backtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/strategyconfig"
	"github.com/wonny/divbt/backend/pkg/logger"
)

type savedRun struct {
	market  string
	ledger  []contracts.TradeLedgerRow
	summary *contracts.SummaryRow
}

type recordingSink struct {
	mu       sync.Mutex
	runs     []savedRun
	err      error
	clear    []string
	cleared  []string
	clearErr error
}

func (s *recordingSink) SaveRun(_ context.Context, market string, ledger []contracts.TradeLedgerRow, summary *contracts.SummaryRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.runs = append(s.runs, savedRun{market: market, ledger: ledger, summary: summary})
	return nil
}

func (s *recordingSink) ClearRun(_ context.Context, market, stockID string, method contracts.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cleared = append(s.cleared, market+"/"+stockID+"/"+method.String())
	return nil
}

func (s *recordingSink) ClearTables(_ context.Context, market string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear = append(s.clear, market)
	return nil
}

func fixedClock() time.Time {
	return time.Date(2024, 7, 1, 15, 4, 5, 0, time.UTC)
}

func newTestEngine(sink contracts.ResultSink) *Engine {
	return NewEngine(sink, logger.Nop()).WithClock(fixedClock)
}

func threeBarRequest() RunRequest {
	return RunRequest{
		Market:  "tw",
		StockID: "0050",
		Method:  contracts.MethodDividendTriggered,
		Bars: []contracts.PriceBar{
			{Date: date(2021, 3, 1), Close: 100},
			{Date: date(2021, 3, 2), Close: 100, Dividend: 5},
			{Date: date(2021, 3, 3), Close: 100},
		},
		Config: testConfig(1200),
	}
}

func TestEngineRunCompleted(t *testing.T) {
	sink := &recordingSink{}
	req := threeBarRequest()

	res, err := newTestEngine(sink).Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, contracts.OutcomeCompleted, res.Outcome)
	require.Len(t, sink.runs, 1)

	saved := sink.runs[0]
	assert.Equal(t, "tw", saved.market)
	require.Len(t, saved.ledger, 1)
	assert.Equal(t, "0050", saved.ledger[0].StockID)
	require.NotNil(t, saved.summary)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), saved.summary.Date)
	assert.Equal(t, contracts.MethodDividendTriggered, saved.summary.Method)

	// caller's bars are left untouched
	assert.Empty(t, req.Bars[0].StockID)
}

func TestEngineRunNoSignalsClearsKey(t *testing.T) {
	sink := &recordingSink{}
	req := threeBarRequest()
	req.Bars[1].Dividend = 0

	res, err := newTestEngine(sink).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeNoSignals, res.Outcome)
	assert.Empty(t, sink.runs)
	assert.Equal(t, []string{"tw/0050/bt_dividend"}, sink.cleared)
}

func TestEngineRunNoSignalsClearError(t *testing.T) {
	sink := &recordingSink{clearErr: errors.New("db down")}
	req := threeBarRequest()
	req.Bars[1].Dividend = 0

	res, err := newTestEngine(sink).Run(context.Background(), req)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, contracts.OutcomeNoSignals, res.Outcome)
}

func TestEngineRunShortHistoryPersistsLedgerOnly(t *testing.T) {
	sink := &recordingSink{}
	req := threeBarRequest()
	req.Bars = req.Bars[:2]

	res, err := newTestEngine(sink).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeShortHistory, res.Outcome)
	require.Len(t, sink.runs, 1)
	assert.Len(t, sink.runs[0].ledger, 1)
	assert.Nil(t, sink.runs[0].summary)
}

func TestEngineRunInputError(t *testing.T) {
	sink := &recordingSink{}
	req := threeBarRequest()
	req.Bars = nil

	res, err := newTestEngine(sink).Run(context.Background(), req)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, contracts.ErrInput)
	assert.Empty(t, sink.runs)
}

func TestEngineRunSinkError(t *testing.T) {
	boom := errors.New("disk full")
	sink := &recordingSink{err: boom}

	res, err := newTestEngine(sink).Run(context.Background(), threeBarRequest())
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.Len(t, res.Ledger, 1)
}

func TestEngineRunDryRun(t *testing.T) {
	res, err := newTestEngine(nil).Run(context.Background(), threeBarRequest())
	require.NoError(t, err)
	assert.NotNil(t, res.Summary)
}

func TestEngineRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(nil).Run(ctx, threeBarRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

type mapLoader struct {
	bars map[string][]contracts.PriceBar
	err  map[string]error
}

func (l *mapLoader) LoadBars(_ context.Context, stockID string, _ time.Time) ([]contracts.PriceBar, error) {
	if err, ok := l.err[stockID]; ok {
		return nil, err
	}
	return l.bars[stockID], nil
}

func TestRunnerRunProfile(t *testing.T) {
	sink := &recordingSink{}
	engine := newTestEngine(sink)
	runner := NewRunner(engine, sink, logger.Nop(), 3)

	good := threeBarRequest().Bars
	loader := &mapLoader{
		bars: map[string][]contracts.PriceBar{"0050": good, "0056": good},
		err:  map[string]error{"00878": errors.New("provider down")},
	}

	profile := &strategyconfig.Profile{
		Market:         "tw",
		StartDate:      "2021-01-01",
		ClearBeforeRun: true,
		Strategy:       testConfig(1200),
		Stocks:         []strategyconfig.Stock{{ID: "0050"}, {ID: "00878"}, {ID: "0056"}},
	}

	reports, err := runner.RunProfile(context.Background(), profile, loader)
	require.NoError(t, err)

	assert.Equal(t, []string{"tw"}, sink.clear)
	require.Len(t, reports, 6)

	wantOrder := []string{"0050", "0050", "00878", "00878", "0056", "0056"}
	for i, rep := range reports {
		assert.Equal(t, wantOrder[i], rep.StockID)
	}

	assert.Error(t, reports[2].Err)
	assert.Error(t, reports[3].Err)
	assert.NoError(t, reports[0].Err)
	assert.Equal(t, contracts.OutcomeCompleted, reports[0].Result.Outcome)

	// dividend runs for the two good stocks persist; the flat 3-bar series
	// never triggers the indicator policy
	assert.Len(t, sink.runs, 2)
	assert.Equal(t, contracts.OutcomeNoSignals, reports[1].Result.Outcome)
}

func TestRunnerSkipsClearWhenDisabled(t *testing.T) {
	sink := &recordingSink{}
	runner := NewRunner(newTestEngine(sink), sink, logger.Nop(), 0)

	profile := &strategyconfig.Profile{
		Market:    "us",
		StartDate: "2021-01-01",
		Methods:   []string{"bt_dividend"},
		Strategy:  testConfig(3500),
	}

	reports, err := runner.RunProfile(context.Background(), profile, &mapLoader{})
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Empty(t, sink.clear)
}
