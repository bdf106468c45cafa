package contracts

import "strings"

// StrategyConfig is the per-run configuration record supplied by the caller.
// Every run copies these values into its own private state.
type StrategyConfig struct {
	InitialPositionSize  float64 `json:"initial_position_size" yaml:"initial_position_size"`
	InitialPositionPrice float64 `json:"initial_position_price" yaml:"initial_position_price"`
	InitialDividend      float64 `json:"initial_dividend" yaml:"initial_dividend"`
	StartYear            int     `json:"start_year" yaml:"start_year"`
	AnnualCashBudget     float64 `json:"annual_cash_budget" yaml:"annual_cash_budget"`
	DividendColumn       string  `json:"dividend_column" yaml:"dividend_column"`
	CloseColumn          string  `json:"close_price_column" yaml:"close_price_column"`
}

// Validate checks the configuration before any simulation step
func (c StrategyConfig) Validate() error {
	if c.AnnualCashBudget <= 0 {
		return &InputError{Field: "annual_cash_budget", Reason: "must be positive"}
	}
	if c.InitialPositionSize < 0 {
		return &InputError{Field: "initial_position_size", Reason: "must not be negative"}
	}
	if c.InitialPositionPrice < 0 {
		return &InputError{Field: "initial_position_price", Reason: "must not be negative"}
	}
	if c.InitialDividend < 0 {
		return &InputError{Field: "initial_dividend", Reason: "must not be negative"}
	}
	if strings.TrimSpace(c.DividendColumn) == "" {
		return &InputError{Field: "dividend_column", Reason: "required"}
	}
	if strings.TrimSpace(c.CloseColumn) == "" {
		return &InputError{Field: "close_price_column", Reason: "required"}
	}
	return nil
}
