package pricer

import (
	"context"
	"fmt"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/chiptrader/internal/domain"
)

// BinancePricer quotes the exchange spot ticker. Instruments map to the
// SYMBOL+USDT pair; USDT itself is pegged to 1.
type BinancePricer struct {
	client *binance.Client
}

func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client}
}

func (p *BinancePricer) GetPrice(ctx context.Context, quote domain.Quote) (decimal.Decimal, error) {
	symbol := strings.ToUpper(quote.Symbol)
	if symbol == "USDT" {
		return decimal.NewFromInt(1), nil
	}

	prices, err := p.client.NewListPricesService().Symbol(symbol + "USDT").Do(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, fmt.Errorf("binance API returned empty prices for %s", quote.ID)
	}

	return decimal.NewFromString(prices[0].Price)
}

var _ Pricer = (*BinancePricer)(nil)
