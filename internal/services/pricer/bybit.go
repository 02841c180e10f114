package pricer

import (
	"context"
	"fmt"
	"strings"

	"github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/chiptrader/internal/domain"
)

// BybitPricer quotes the exchange spot ticker. Instruments map to the
// SYMBOL+USDT pair; USDT itself is pegged to 1.
type BybitPricer struct {
	client *bybit.Client
}

func NewBybitPricer(client *bybit.Client) *BybitPricer {
	return &BybitPricer{client: client}
}

func (p *BybitPricer) GetPrice(ctx context.Context, quote domain.Quote) (decimal.Decimal, error) {
	upper := strings.ToUpper(quote.Symbol)
	if upper == "USDT" {
		return decimal.NewFromInt(1), nil
	}
	symbol := bybit.SymbolV5(upper + "USDT")

	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: "spot",
		Symbol:   &symbol,
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(result.Result.Spot.List) == 0 {
		return decimal.Decimal{}, fmt.Errorf("bybit API returned empty prices for %s", quote.ID)
	}

	return decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
}

var _ Pricer = (*BybitPricer)(nil)
