package contracts

import "time"

// TradeLedgerRow is one buy event with the position snapshot after the trade.
// Rows are append-only; nothing mutates a row after it is emitted.
// ⭐ SSOT: transaction_logs 테이블 스키마와 1:1
type TradeLedgerRow struct {
	StockID         string    `json:"stock_id"`
	Date            time.Time `json:"date"`
	Method          Method    `json:"method"`
	PositionSize    float64   `json:"position_size"`     // 보유 수량
	PositionPrice   float64   `json:"position_price"`    // 평균 단가
	PositionValue   float64   `json:"position_value"`    // 보유 원가 (수량 × 평균 단가)
	DateClosedPrice float64   `json:"date_closed_price"` // 당일 종가
	BrokerDividend  float64   `json:"broker_dividend"`   // 누적 배당금
	AssetValue      float64   `json:"asset_value"`       // 수량 × 종가 + 누적 배당금
}

// SummaryRow is the performance of one (stock, method) run
// ⭐ SSOT: bt_summaries 테이블 스키마와 1:1
type SummaryRow struct {
	StockID        string    `json:"stock_id"`
	Date           time.Time `json:"date"` // 백테스트 실행일
	Method         Method    `json:"method"`
	Close          float64   `json:"close"` // 마지막 종가
	PositionValue  float64   `json:"position_value"`
	BrokerDividend float64   `json:"broker_dividend"`
	AssetValue     float64   `json:"asset_value"`
	ROI            float64   `json:"roi"`
	IRR            float64   `json:"irr"` // 연환산 수익률
}

// ListedCompany is one row of the exchange's listed securities page
type ListedCompany struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"` // 상장일
	Category  string    `json:"category"`
	CFICode   string    `json:"cfi_code"`
}
