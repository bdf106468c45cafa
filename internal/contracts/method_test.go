package contracts

import (
	"errors"
	"testing"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    Method
		wantErr bool
	}{
		{"bt_dividend", MethodDividendTriggered, false},
		{"bt_signals", MethodIndicatorTriggered, false},
		{"bt_momentum", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMethod(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMethod(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInput) {
				t.Errorf("expected ErrInput, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMethod(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAllMethods(t *testing.T) {
	methods := AllMethods()
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(methods))
	}
	for _, m := range methods {
		if m.Description() == "알 수 없음" {
			t.Errorf("method %s has no description", m)
		}
	}

	names := MethodStrings(methods)
	if names[0] != "bt_dividend" || names[1] != "bt_signals" {
		t.Errorf("MethodStrings() = %v", names)
	}
}

func TestStrategyConfigValidate(t *testing.T) {
	valid := StrategyConfig{
		StartYear:        2000,
		AnnualCashBudget: 100000,
		DividendColumn:   "stock_and_cache_dividend",
		CloseColumn:      "close",
	}

	tests := []struct {
		name      string
		mutate    func(c *StrategyConfig)
		wantField string
	}{
		{"valid", func(c *StrategyConfig) {}, ""},
		{"zero budget", func(c *StrategyConfig) { c.AnnualCashBudget = 0 }, "annual_cash_budget"},
		{"negative size", func(c *StrategyConfig) { c.InitialPositionSize = -1 }, "initial_position_size"},
		{"negative price", func(c *StrategyConfig) { c.InitialPositionPrice = -1 }, "initial_position_price"},
		{"negative dividend", func(c *StrategyConfig) { c.InitialDividend = -1 }, "initial_dividend"},
		{"blank dividend column", func(c *StrategyConfig) { c.DividendColumn = " " }, "dividend_column"},
		{"blank close column", func(c *StrategyConfig) { c.CloseColumn = "" }, "close_price_column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var inputErr *InputError
			if !errors.As(err, &inputErr) || inputErr.Field != tt.wantField {
				t.Errorf("expected InputError on %s, got %v", tt.wantField, err)
			}
		})
	}
}
