package model

import "time"

// PairRecord is a discovered pair enriched for notification.
type PairRecord struct {
	Event   PairEvent  `json:"event"`
	Symbol0 string     `json:"symbol0"`
	Symbol1 string     `json:"symbol1"`
	Market  MarketData `json:"market"`
}

// Discovery is the archived outcome of processing one claimed pair.
type Discovery struct {
	ID            string     `json:"id"`
	DiscoveredAt  time.Time  `json:"discovered_at"`
	Record        PairRecord `json:"record"`
	Dispatched    bool       `json:"dispatched"`
	DispatchError string     `json:"dispatch_error,omitempty"`
}
