package strategyconfig

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	_ "time/tzdata" // meta.timezone 검증용

	"github.com/robfig/cron/v3"

	"github.com/wonny/divbt/backend/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var (
	marketPattern = regexp.MustCompile(`^[a-z]{2,8}$`)
	cronParser    = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	if len(cfg.Profiles) == 0 {
		return ValidationError{"profiles", "at least one profile is required"}
	}

	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	seen := make(map[string]bool, len(cfg.Profiles))
	for i, p := range cfg.Profiles {
		prefix := fmt.Sprintf("profiles[%d]", i)

		if !marketPattern.MatchString(p.Market) {
			return ValidationError{prefix + ".market", "must be lowercase letters"}
		}
		if seen[p.Market] {
			return ValidationError{prefix + ".market", "duplicate market " + p.Market}
		}
		seen[p.Market] = true

		if p.Provider != ProviderFinMind && p.Provider != ProviderTiingo {
			return ValidationError{prefix + ".provider", "must be finmind or tiingo"}
		}
		if err := validateDate(p.StartDate); err != nil {
			return ValidationError{prefix + ".start_date", err.Error()}
		}
		if p.Schedule != "" {
			if _, err := cronParser.Parse(p.Schedule); err != nil {
				return ValidationError{prefix + ".schedule", err.Error()}
			}
		}
		for _, m := range p.Methods {
			if !contracts.IsValidMethod(m) {
				return ValidationError{prefix + ".methods", "unknown method " + m}
			}
		}
		if err := p.Strategy.Validate(); err != nil {
			var inputErr *contracts.InputError
			if errors.As(err, &inputErr) {
				return ValidationError{prefix + ".strategy." + inputErr.Field, inputErr.Reason}
			}
			return ValidationError{prefix + ".strategy", err.Error()}
		}

		ids := make(map[string]bool, len(p.Stocks))
		for j, s := range p.Stocks {
			if s.ID == "" {
				return ValidationError{fmt.Sprintf("%s.stocks[%d].id", prefix, j), "required"}
			}
			if ids[s.ID] {
				return ValidationError{fmt.Sprintf("%s.stocks[%d].id", prefix, j), "duplicate stock " + s.ID}
			}
			ids[s.ID] = true
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	for _, p := range cfg.Profiles {
		if len(p.Stocks) == 0 {
			warnings = append(warnings, Warning{
				Code:    "NO_STOCKS",
				Message: p.Market + ": 종목이 없어 실행 결과가 비어 있음",
			})
		}

		// start_year 가 start_date 보다 늦으면 연도 카운터가 첫 bar 에서 역행
		if p.Strategy.StartYear > p.Start().Year() {
			warnings = append(warnings, Warning{
				Code:    "START_YEAR_AFTER_START_DATE",
				Message: fmt.Sprintf("%s: start_year %d > start_date %s", p.Market, p.Strategy.StartYear, p.StartDate),
			})
		}

		// MACD/RSI 는 최소 26 bar 이상 필요
		if time.Since(p.Start()) < 60*24*time.Hour {
			warnings = append(warnings, Warning{
				Code:    "SHORT_HISTORY",
				Message: p.Market + ": start_date 가 60일 이내라 bt_signals 가 거의 발생하지 않음",
			})
		}
	}

	return warnings
}

// === Helper Functions ===

func validateDate(s string) error {
	if s == "" {
		return errors.New("required")
	}
	if _, err := time.Parse(contracts.DateLayout, s); err != nil {
		return errors.New("must be YYYY-MM-DD format")
	}
	return nil
}
