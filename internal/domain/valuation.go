package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValuedHolding joins a holding with its live quote.
type ValuedHolding struct {
	Quote
	Amount     decimal.Decimal `json:"amount"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	// Value current market value, price * amount.
	Value decimal.Decimal `json:"value"`
	// Profit unrealized P/L against the cost basis.
	Profit decimal.Decimal `json:"profit"`
	// ProfitPercent profit relative to the cost basis, zero when the cost
	// basis is zero.
	ProfitPercent decimal.Decimal `json:"profit_percent"`
	// Momentum optional RSI(14) over the recent poll history, nil until
	// enough samples accumulated.
	Momentum *decimal.Decimal `json:"momentum,omitempty"`
	// Trend optional EMA(10) over the same history, nil until enough
	// samples accumulated.
	Trend *decimal.Decimal `json:"trend,omitempty"`
}

// PortfolioValuation is one mark-to-market pass over the whole holding set.
// Holdings with no resolvable price data are dropped, not zeroed.
type PortfolioValuation struct {
	Holdings           []ValuedHolding `json:"holdings"`
	TotalValue         decimal.Decimal `json:"total_value"`
	TotalProfit        decimal.Decimal `json:"total_profit"`
	TotalProfitPercent decimal.Decimal `json:"total_profit_percent"`
	// Stale true when the underlying market data came from a fallback path.
	Stale bool      `json:"stale"`
	At    time.Time `json:"at"`
}
