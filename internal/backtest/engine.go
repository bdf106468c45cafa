package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/pkg/logger"
)

// Engine runs single backtests and hands their rows to a sink
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	sink   contracts.ResultSink
	logger *logger.Logger
	now    func() time.Time
}

// RunRequest identifies one (stock, method) run and carries its inputs
type RunRequest struct {
	Market  string
	StockID string
	Method  contracts.Method
	Bars    []contracts.PriceBar
	Config  contracts.StrategyConfig
}

// RunResult is the outcome of one run
type RunResult struct {
	RunID           string
	Market          string
	StockID         string
	Method          contracts.Method
	Outcome         contracts.Outcome
	Ledger          []contracts.TradeLedgerRow
	Summary         *contracts.SummaryRow
	TotalInvestment float64
	Duration        time.Duration
}

// NewEngine creates a new backtest engine. A nil sink makes every run a dry run.
func NewEngine(sink contracts.ResultSink, log *logger.Logger) *Engine {
	return &Engine{
		sink:   sink,
		logger: log.WithField("module", "backtest"),
		now:    time.Now,
	}
}

// WithClock overrides the clock used for the summary run date
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Run executes one backtest and persists its ledger and summary.
//
// No-signal runs persist nothing and remove the earlier rows of the run key.
// Short-history runs persist the ledger only.
// An undefined annualized return persists the ledger only and returns the
// InvalidStateError together with the partial result.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := e.logger.ForRun(req.StockID, req.Method.String())
	start := e.now()
	runDate := truncateDay(start)

	bars := make([]contracts.PriceBar, len(req.Bars))
	copy(bars, req.Bars)
	for i := range bars {
		if bars[i].StockID == "" {
			bars[i].StockID = req.StockID
		}
	}

	out, err := Backtest(bars, req.Method, req.Config, runDate)
	if out == nil {
		log.WithError(err).Warn("Backtest rejected input")
		return nil, fmt.Errorf("backtest %s/%s: %w", req.StockID, req.Method, err)
	}

	result := &RunResult{
		RunID:           uuid.NewString(),
		Market:          req.Market,
		StockID:         req.StockID,
		Method:          req.Method,
		Outcome:         out.Outcome,
		Ledger:          out.Ledger,
		Summary:         out.Summary,
		TotalInvestment: out.TotalInvestment,
	}
	log = log.WithField("run_id", result.RunID)

	if out.Outcome == contracts.OutcomeNoSignals {
		if e.sink != nil {
			if clearErr := e.sink.ClearRun(ctx, req.Market, req.StockID, req.Method); clearErr != nil {
				log.WithError(clearErr).Error("Failed to clear previous result")
				return result, fmt.Errorf("clear %s/%s: %w", req.StockID, req.Method, clearErr)
			}
		}
		result.Duration = time.Since(start)
		log.Info("No buy signals, previous result cleared")
		return result, nil
	}

	if e.sink != nil {
		if saveErr := e.sink.SaveRun(ctx, req.Market, out.Ledger, out.Summary); saveErr != nil {
			log.WithError(saveErr).Error("Failed to save backtest result")
			return result, fmt.Errorf("save %s/%s: %w", req.StockID, req.Method, saveErr)
		}
	}
	result.Duration = time.Since(start)

	var stateErr *contracts.InvalidStateError
	if errors.As(err, &stateErr) {
		log.WithError(err).Warn("Summary undefined, ledger kept")
		return result, fmt.Errorf("backtest %s/%s: %w", req.StockID, req.Method, err)
	}

	fields := map[string]interface{}{
		"outcome":          string(result.Outcome),
		"trades":           len(result.Ledger),
		"total_investment": result.TotalInvestment,
	}
	if result.Summary != nil {
		fields["asset_value"] = result.Summary.AssetValue
		fields["roi"] = result.Summary.ROI
		fields["irr"] = result.Summary.IRR
	}
	log.WithFields(fields).Info("Backtest completed")

	return result, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
