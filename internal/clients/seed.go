package clients

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/chiptrader/internal/domain"
)

// SeededQuotes is the fixed fallback set served when both the network and
// the cache come up empty: five well-known instruments with plausible static
// figures, enough to keep the demo usable offline.
func SeededQuotes() []domain.Quote {
	return []domain.Quote{
		{
			ID:        "bitcoin",
			Name:      "Bitcoin",
			Symbol:    "BTC",
			Price:     decimal.NewFromInt(65000),
			Change24h: decimal.NewFromFloat(1.5),
			MarketCap: decimal.NewFromFloat(1.2e12),
			Volume:    decimal.NewFromFloat(3.2e10),
			Image:     "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
		},
		{
			ID:        "ethereum",
			Name:      "Ethereum",
			Symbol:    "ETH",
			Price:     decimal.NewFromInt(3200),
			Change24h: decimal.NewFromFloat(2.1),
			MarketCap: decimal.NewFromFloat(3.8e11),
			Volume:    decimal.NewFromFloat(1.5e10),
			Image:     "https://assets.coingecko.com/coins/images/279/large/ethereum.png",
		},
		{
			ID:        "tether",
			Name:      "Tether",
			Symbol:    "USDT",
			Price:     decimal.NewFromInt(1),
			Change24h: decimal.NewFromFloat(0.01),
			MarketCap: decimal.NewFromFloat(1.1e11),
			Volume:    decimal.NewFromFloat(4e10),
			Image:     "https://assets.coingecko.com/coins/images/325/large/Tether-logo.png",
		},
		{
			ID:        "binancecoin",
			Name:      "BNB",
			Symbol:    "BNB",
			Price:     decimal.NewFromInt(550),
			Change24h: decimal.NewFromFloat(-0.5),
			MarketCap: decimal.NewFromFloat(8.5e10),
			Volume:    decimal.NewFromFloat(2.2e9),
			Image:     "https://assets.coingecko.com/coins/images/825/large/binance-coin-logo.png",
		},
		{
			ID:        "solana",
			Name:      "Solana",
			Symbol:    "SOL",
			Price:     decimal.NewFromInt(145),
			Change24h: decimal.NewFromFloat(3.4),
			MarketCap: decimal.NewFromFloat(6.8e10),
			Volume:    decimal.NewFromFloat(3.8e9),
			Image:     "https://assets.coingecko.com/coins/images/4128/large/solana.png",
		},
	}
}
