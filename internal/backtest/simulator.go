package backtest

import (
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
)

// PositionState is the private state of one (stock, method) run.
// It is created per run and never shared.
type PositionState struct {
	PositionSize   float64
	PositionPrice  float64
	PositionValue  float64
	BrokerDividend float64
	CurrentYear    int
	// LastDivDate is nil until the first dividend attribution; nil means
	// "attribute from series start".
	LastDivDate *time.Time
}

// NewPositionState seeds a run from the strategy configuration
func NewPositionState(cfg contracts.StrategyConfig) PositionState {
	return PositionState{
		PositionSize:   cfg.InitialPositionSize,
		PositionPrice:  cfg.InitialPositionPrice,
		PositionValue:  RoundMoney(cfg.InitialPositionSize * cfg.InitialPositionPrice),
		BrokerDividend: cfg.InitialDividend,
		CurrentYear:    cfg.StartYear,
	}
}

// Simulation is the output of one walk over a signal series
type Simulation struct {
	Ledger          []contracts.TradeLedgerRow
	State           PositionState
	TotalInvestment float64
}

// Simulate walks the signal series once in date order and emits one ledger
// row per buy-signal bar.
// ⭐ SSOT: 포지션/현금 계산은 여기서만
func Simulate(series []contracts.SignalBar, method contracts.Method, cfg contracts.StrategyConfig) (*Simulation, error) {
	if len(series) == 0 {
		return nil, &contracts.InputError{Field: "bars", Reason: "empty price series"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	state := NewPositionState(cfg)
	ledger := make([]contracts.TradeLedgerRow, 0, contracts.CountSignals(series))
	totalInvestment := 0.0

	for i, bar := range series {
		if year := bar.Date.Year(); year != state.CurrentYear {
			state.CurrentYear = year
		}

		if !bar.BuySignal {
			continue
		}

		if state.PositionSize > 0 {
			attributeDividend(&state, series, i)
		}

		buyTimes := buyTimesInYear(series, state.CurrentYear)
		perTradeCash := cfg.AnnualCashBudget / float64(buyTimes)
		units := RoundUnits(perTradeCash / bar.Close)

		denominator := state.PositionSize + units
		if denominator != 0 {
			state.PositionPrice = RoundMoney((state.PositionPrice*state.PositionSize + bar.Close*units) / denominator)
		} else {
			state.PositionPrice = 0
		}

		state.PositionSize += units
		state.PositionValue = RoundMoney(state.PositionPrice * state.PositionSize)

		closed := RoundMoney(bar.Close)
		ledger = append(ledger, contracts.TradeLedgerRow{
			StockID:         bar.StockID,
			Date:            bar.Date,
			Method:          method,
			PositionSize:    state.PositionSize,
			PositionPrice:   state.PositionPrice,
			PositionValue:   state.PositionValue,
			DateClosedPrice: closed,
			BrokerDividend:  state.BrokerDividend,
			AssetValue:      RoundMoney(state.PositionSize*closed + state.BrokerDividend),
		})

		totalInvestment += perTradeCash
	}

	return &Simulation{
		Ledger:          ledger,
		State:           state,
		TotalInvestment: totalInvestment,
	}, nil
}

// attributeDividend credits the most recent dividend strictly between the
// last attribution date and the bar at index i.
func attributeDividend(state *PositionState, series []contracts.SignalBar, i int) {
	current := series[i].Date

	for j := i - 1; j >= 0; j-- {
		d := series[j]
		if state.LastDivDate != nil && !d.Date.After(*state.LastDivDate) {
			return
		}
		if d.Dividend > 0 && d.Date.Before(current) {
			state.BrokerDividend += RoundMoney(state.PositionSize * d.Dividend)
			date := d.Date
			state.LastDivDate = &date
			return
		}
	}
}

// buyTimesInYear counts every buy-signal bar of the calendar year across the
// whole series, including bars after the current one. It is evaluated per
// buy event against the final signal series.
func buyTimesInYear(series []contracts.SignalBar, year int) int {
	n := 0
	for _, b := range series {
		if b.BuySignal && b.Date.Year() == year {
			n++
		}
	}
	return n
}
