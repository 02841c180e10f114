package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/chiptrader/internal/domain"
)

// LivePriceSource is the slice of the market data client the pricer needs.
type LivePriceSource interface {
	GetLivePrices(ctx context.Context, coinIDs []string) (map[string]domain.LivePrice, error)
}

// CoinGeckoPricer executes trades at the aggregator's live price. This is
// the default: it shares the cache, cooldown and fallback chain with the
// rest of the market data layer.
type CoinGeckoPricer struct {
	source LivePriceSource
}

func NewCoinGeckoPricer(source LivePriceSource) *CoinGeckoPricer {
	return &CoinGeckoPricer{source: source}
}

func (p *CoinGeckoPricer) GetPrice(ctx context.Context, quote domain.Quote) (decimal.Decimal, error) {
	prices, err := p.source.GetLivePrices(ctx, []string{quote.ID})
	if err != nil {
		return decimal.Decimal{}, err
	}

	lp, ok := prices[quote.ID]
	if !ok || !lp.Price.IsPositive() {
		// the quote itself carries the listing price; better than refusing
		// the trade when the live endpoint has no data for the id
		if quote.Price.IsPositive() {
			return quote.Price, nil
		}
		return decimal.Decimal{}, errors.Wrapf(domain.ErrNotFound, "no live price for %s", quote.ID)
	}
	return lp.Price, nil
}
