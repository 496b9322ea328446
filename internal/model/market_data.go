package model

import "github.com/shopspring/decimal"

// MarketData holds optional valuation metrics for a pair. A nil field means
// the value was not available upstream.
type MarketData struct {
	PriceUSD    *decimal.Decimal `json:"price_usd,omitempty"`
	PriceNative *decimal.Decimal `json:"price_native,omitempty"`
	FDVUSD      *decimal.Decimal `json:"fdv_usd,omitempty"`
}

// Empty reports whether no metric is present.
func (m MarketData) Empty() bool {
	return m.PriceUSD == nil && m.PriceNative == nil && m.FDVUSD == nil
}
