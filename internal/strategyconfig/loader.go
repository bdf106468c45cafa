package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read strategy file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes and validates YAML bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode strategy yaml: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewRunSnapshot records which configuration a market run used
func NewRunSnapshot(cfg *Config, market string) (*RunSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &RunSnapshot{
		ConfigHash: hash,
		Market:     market,
		Version:    cfg.Meta.Version,
		CreatedAt:  time.Now(),
	}, nil
}

// Default returns the built-in profiles used when no strategy file exists
func Default() *Config {
	return &Config{
		Meta: Meta{Version: "1", Timezone: "Asia/Taipei"},
		Profiles: []Profile{
			{
				Market:         "tw",
				Provider:       ProviderFinMind,
				StartDate:      "2020-01-01",
				Schedule:       "0 30 18 * * 1-5",
				ClearBeforeRun: true,
				Methods:        []string{"bt_dividend", "bt_signals"},
				Strategy:       twStrategy(),
				Stocks: []Stock{
					{ID: "0050", Name: "元大台灣50"},
					{ID: "00692", Name: "富邦公司治理"},
					{ID: "006208", Name: "富邦台50"},
					{ID: "00733", Name: "富邦臺灣中小"},
					{ID: "0056", Name: "元大高股息"},
					{ID: "00878", Name: "國泰永續高股息"},
					{ID: "00915", Name: "凱基優選高股息30"},
					{ID: "00713", Name: "元大台灣高息低波"},
					{ID: "00919", Name: "群益台灣精選高息"},
					{ID: "00929", Name: "復華台灣科技優息"},
				},
			},
			{
				Market:         "us",
				Provider:       ProviderTiingo,
				StartDate:      "2020-01-01",
				Schedule:       "0 0 7 * * 2-6",
				ClearBeforeRun: true,
				Methods:        []string{"bt_dividend", "bt_signals"},
				Strategy:       usStrategy(),
				Stocks: []Stock{
					{ID: "VOO"}, {ID: "QQQ"}, {ID: "VT"}, {ID: "VTI"},
					{ID: "XLF"}, {ID: "XLP"}, {ID: "XLV"},
					{ID: "IJH"}, {ID: "IJR"}, {ID: "IWM"}, {ID: "NVDA"},
				},
			},
		},
	}
}
