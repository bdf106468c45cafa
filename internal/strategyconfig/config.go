package strategyconfig

import (
	"time"

	"github.com/wonny/divbt/backend/internal/contracts"
)

// Config는 시장별 백테스트 프로필 전체 설정
type Config struct {
	Meta     Meta      `yaml:"meta" json:"meta"`
	Profiles []Profile `yaml:"profiles" json:"profiles"`
}

// Meta 메타 정보
type Meta struct {
	Version  string `yaml:"version" json:"version"`
	Timezone string `yaml:"timezone" json:"timezone"`
}

// Profile 한 시장의 백테스트 실행 단위
type Profile struct {
	Market         string                   `yaml:"market" json:"market"`     // tw | us
	Provider       string                   `yaml:"provider" json:"provider"` // finmind | tiingo
	StartDate      string                   `yaml:"start_date" json:"start_date"`
	Schedule       string                   `yaml:"schedule" json:"schedule"` // cron (초 포함)
	ClearBeforeRun bool                     `yaml:"clear_before_run" json:"clear_before_run"`
	Methods        []string                 `yaml:"methods" json:"methods"`
	Strategy       contracts.StrategyConfig `yaml:"strategy" json:"strategy"`
	Stocks         []Stock                  `yaml:"stocks" json:"stocks"`
}

// Stock 백테스트 대상 종목
type Stock struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Provider names
const (
	ProviderFinMind = "finmind"
	ProviderTiingo  = "tiingo"
)

// Start returns the parsed start date (validated on load)
func (p Profile) Start() time.Time {
	t, _ := time.Parse(contracts.DateLayout, p.StartDate)
	return t
}

// MethodList returns the configured methods, all methods when none are listed
func (p Profile) MethodList() []contracts.Method {
	if len(p.Methods) == 0 {
		return contracts.AllMethods()
	}
	out := make([]contracts.Method, 0, len(p.Methods))
	for _, m := range p.Methods {
		out = append(out, contracts.Method(m))
	}
	return out
}

// StockIDs returns the configured stock identifiers in order
func (p Profile) StockIDs() []string {
	ids := make([]string, len(p.Stocks))
	for i, s := range p.Stocks {
		ids[i] = s.ID
	}
	return ids
}

// Profile returns the profile of a market
func (c *Config) Profile(market string) (*Profile, error) {
	for i := range c.Profiles {
		if c.Profiles[i].Market == market {
			return &c.Profiles[i], nil
		}
	}
	return nil, ValidationError{"profiles", "no profile for market " + market}
}

// Markets lists configured markets in file order
func (c *Config) Markets() []string {
	out := make([]string, len(c.Profiles))
	for i, p := range c.Profiles {
		out[i] = p.Market
	}
	return out
}

// RunSnapshot 실행 시점 설정 스냅샷 (재현성용)
type RunSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	Market     string    `json:"market"`
	Version    string    `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}

// twStrategy 대만 시장 기본값 (연간 예산 TWD 100,000)
func twStrategy() contracts.StrategyConfig {
	return contracts.StrategyConfig{
		StartYear:        2000,
		AnnualCashBudget: 100000,
		DividendColumn:   "stock_and_cache_dividend",
		CloseColumn:      "close",
	}
}

// usStrategy 미국 시장 기본값 (연간 예산 USD 3,500, 수정주가 기준)
func usStrategy() contracts.StrategyConfig {
	return contracts.StrategyConfig{
		StartYear:        2000,
		AnnualCashBudget: 3500,
		DividendColumn:   "divCash",
		CloseColumn:      "adjClose",
	}
}
