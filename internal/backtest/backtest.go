package backtest

import (
	"errors"
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/signals"
)

// Output is everything a single run produces, before persistence
type Output struct {
	Outcome         contracts.Outcome
	Signals         []contracts.SignalBar
	Ledger          []contracts.TradeLedgerRow
	Summary         *contracts.SummaryRow
	Performance     Performance
	Final           PositionState
	TotalInvestment float64
}

// Backtest runs SignalGenerator → PositionSimulator → PerformanceCalculator for
// one stock and method. It performs no I/O; runDate only stamps the summary.
//
// Input problems return an InputError and no output. An undefined annualized
// return returns the ledger-only Output together with the InvalidStateError.
func Backtest(bars []contracts.PriceBar, method contracts.Method, cfg contracts.StrategyConfig, runDate time.Time) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := contracts.ValidateBars(bars); err != nil {
		return nil, err
	}

	series, err := signals.Generate(bars, method)
	if err != nil {
		return nil, err
	}

	if contracts.CountSignals(series) == 0 {
		return &Output{Outcome: contracts.OutcomeNoSignals, Signals: series}, nil
	}

	sim, err := Simulate(series, method, cfg)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Signals:         series,
		Ledger:          sim.Ledger,
		Final:           sim.State,
		TotalInvestment: sim.TotalInvestment,
	}

	perf, err := Evaluate(sim, series)
	out.Performance = perf
	if err != nil {
		var stateErr *contracts.InvalidStateError
		if errors.As(err, &stateErr) {
			out.Outcome = contracts.OutcomeInvalidState
			return out, err
		}
		return nil, err
	}

	if !perf.Annualized {
		out.Outcome = contracts.OutcomeShortHistory
		return out, nil
	}

	out.Outcome = contracts.OutcomeCompleted
	out.Summary = &contracts.SummaryRow{
		StockID:        bars[0].StockID,
		Date:           runDate,
		Method:         method,
		Close:          perf.LastClose,
		PositionValue:  sim.State.PositionValue,
		BrokerDividend: sim.State.BrokerDividend,
		AssetValue:     perf.AssetValue,
		ROI:            perf.ROI,
		IRR:            perf.IRR,
	}
	return out, nil
}
