// Package domain defines core data structures used throughout the paper trader.
package domain

import "github.com/shopspring/decimal"

// Quote is an ephemeral market snapshot for a single instrument. Quotes are
// sourced from the market data client and never persisted by the ledger.
type Quote struct {
	// ID stable provider identifier, distinct from the display symbol.
	ID string `json:"id"`
	// Name display name, e.g. "Bitcoin".
	Name string `json:"name"`
	// Symbol ticker symbol in upper case, e.g. "BTC".
	Symbol string `json:"symbol"`
	// Price last price in USD.
	Price decimal.Decimal `json:"price"`
	// Change24h 24h price change in percent.
	Change24h decimal.Decimal `json:"change"`
	MarketCap decimal.Decimal `json:"market_cap"`
	Volume    decimal.Decimal `json:"volume"`
	High24h   decimal.Decimal `json:"high_24h"`
	Low24h    decimal.Decimal `json:"low_24h"`
	// Image URL of the instrument logo, display only.
	Image string `json:"image"`
}

// LivePrice is the simplified quote returned by the live-price endpoint.
type LivePrice struct {
	Price     decimal.Decimal `json:"price"`
	Change    decimal.Decimal `json:"change"`
	MarketCap decimal.Decimal `json:"market_cap"`
}
