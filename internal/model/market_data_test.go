package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMarketDataEmpty(t *testing.T) {
	if !(MarketData{}).Empty() {
		t.Fatalf("zero value should be empty")
	}

	price := decimal.RequireFromString("1.23")
	if (MarketData{PriceUSD: &price}).Empty() {
		t.Fatalf("market data with price should not be empty")
	}
}

func TestMarketDataJSONOmitsAbsentFields(t *testing.T) {
	fdv := decimal.RequireFromString("100000")
	data, err := json.Marshal(MarketData{FDVUSD: &fdv})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := decoded["price_usd"]; ok {
		t.Fatalf("price_usd should be omitted")
	}
	if _, ok := decoded["price_native"]; ok {
		t.Fatalf("price_native should be omitted")
	}
	if v, ok := decoded["fdv_usd"].(string); !ok || v != "100000" {
		t.Fatalf("fdv_usd mismatch: %v", decoded["fdv_usd"])
	}
}
