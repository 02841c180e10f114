// Package pricer resolves the execution price for a trade. The default
// implementation reads the market data client's live prices; the Binance and
// Bybit implementations quote the exchange ticker directly for users who
// prefer an exchange reference rate over the aggregator's.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/chiptrader/internal/domain"
)

// Pricer returns the unit price a trade executes at.
type Pricer interface {
	GetPrice(ctx context.Context, quote domain.Quote) (decimal.Decimal, error)
}
