package valuation

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/chiptrader/internal/domain"
	"go.uber.org/zap"
)

type fakeMarket struct {
	quotes   []domain.Quote
	degraded bool
	calls    int
	gotIDs   []string
}

func (f *fakeMarket) GetMany(_ context.Context, coinIDs []string) ([]domain.Quote, error) {
	f.calls++
	f.gotIDs = coinIDs
	return f.quotes, nil
}

func (f *fakeMarket) Degraded() bool { return f.degraded }

type fakeLedger struct {
	holdings []domain.Holding
	changes  chan struct{}
}

func (f *fakeLedger) Holdings() []domain.Holding { return f.holdings }
func (f *fakeLedger) Changes() <-chan struct{}   { return f.changes }

func holding(coinID string, amount, entry int64) domain.Holding {
	return domain.Holding{
		CoinID:     coinID,
		Name:       coinID,
		Symbol:     coinID,
		Amount:     decimal.NewFromInt(amount),
		EntryPrice: decimal.NewFromInt(entry),
	}
}

func quote(coinID string, price int64) domain.Quote {
	return domain.Quote{ID: coinID, Price: decimal.NewFromInt(price)}
}

func TestValuate_EmptyPortfolioSkipsNetwork(t *testing.T) {
	market := &fakeMarket{}
	v := New(market, &fakeLedger{}, zap.NewNop())

	result, err := v.Valuate(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Holdings)
	assert.True(t, result.TotalValue.IsZero())
	assert.True(t, result.TotalProfit.IsZero())
	assert.True(t, result.TotalProfitPercent.IsZero())
	assert.Equal(t, 0, market.calls, "an empty holding set needs no market data")

	// the zeroed result is still published for the web layer
	latest, seq := v.Latest()
	assert.Equal(t, uint64(1), seq)
	assert.True(t, latest.TotalValue.IsZero())
}

func TestValuate_MarksToMarket(t *testing.T) {
	market := &fakeMarket{quotes: []domain.Quote{
		quote("bitcoin", 200),
		quote("ethereum", 90),
	}}
	ledger := &fakeLedger{holdings: []domain.Holding{
		holding("bitcoin", 2, 150),  // value 400, entry 300, profit +100
		holding("ethereum", 5, 100), // value 450, entry 500, profit -50
	}}
	v := New(market, ledger, zap.NewNop())

	result, err := v.Valuate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"bitcoin", "ethereum"}, market.gotIDs)
	require.Len(t, result.Holdings, 2)

	btc := result.Holdings[0]
	assert.True(t, btc.Value.Equal(decimal.NewFromInt(400)))
	assert.True(t, btc.Profit.Equal(decimal.NewFromInt(100)))
	assert.True(t, btc.ProfitPercent.Round(4).Equal(decimal.NewFromFloat(33.3333)),
		"profit percent = %s", btc.ProfitPercent)

	assert.True(t, result.TotalValue.Equal(decimal.NewFromInt(850)))
	assert.True(t, result.TotalProfit.Equal(decimal.NewFromInt(50)))
	// +50 profit on 800 entry
	assert.True(t, result.TotalProfitPercent.Equal(decimal.NewFromFloat(6.25)),
		"total profit percent = %s", result.TotalProfitPercent)
	assert.False(t, result.Stale)
}

func TestValuate_DropsUnpricedHoldings(t *testing.T) {
	market := &fakeMarket{quotes: []domain.Quote{quote("bitcoin", 200)}}
	ledger := &fakeLedger{holdings: []domain.Holding{
		holding("bitcoin", 1, 150),
		holding("delisted-coin", 3, 10),
	}}
	v := New(market, ledger, zap.NewNop())

	result, err := v.Valuate(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Holdings, 1)
	assert.Equal(t, "bitcoin", result.Holdings[0].ID)
	assert.True(t, result.TotalValue.Equal(decimal.NewFromInt(200)))
}

func TestValuate_SurfacesDegradedMarketAsStale(t *testing.T) {
	market := &fakeMarket{
		quotes:   []domain.Quote{quote("bitcoin", 200)},
		degraded: true,
	}
	ledger := &fakeLedger{holdings: []domain.Holding{holding("bitcoin", 1, 150)}}
	v := New(market, ledger, zap.NewNop())

	result, err := v.Valuate(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Stale)
}

func TestValuate_SequenceAdvancesPerPass(t *testing.T) {
	market := &fakeMarket{quotes: []domain.Quote{quote("bitcoin", 200)}}
	ledger := &fakeLedger{holdings: []domain.Holding{holding("bitcoin", 1, 150)}}
	v := New(market, ledger, zap.NewNop())

	_, err := v.Valuate(context.Background())
	require.NoError(t, err)
	_, seq1 := v.Latest()

	_, err = v.Valuate(context.Background())
	require.NoError(t, err)
	_, seq2 := v.Latest()

	assert.Greater(t, seq2, seq1)
}

func TestIndicators_NeedEnoughHistory(t *testing.T) {
	market := &fakeMarket{quotes: []domain.Quote{quote("bitcoin", 200)}}
	ledger := &fakeLedger{holdings: []domain.Holding{holding("bitcoin", 1, 150)}}
	v := New(market, ledger, zap.NewNop())

	result, err := v.Valuate(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Holdings, 1)
	assert.Nil(t, result.Holdings[0].Momentum, "one observation is not enough for RSI")
	assert.Nil(t, result.Holdings[0].Trend, "one observation is not enough for EMA")
}

func TestIndicators_TrendWarmsUpBeforeMomentum(t *testing.T) {
	market := &fakeMarket{quotes: []domain.Quote{quote("bitcoin", 200)}}
	ledger := &fakeLedger{holdings: []domain.Holding{holding("bitcoin", 1, 150)}}
	v := New(market, ledger, zap.NewNop())

	// 12 polls: enough for EMA(10), not yet for RSI(14)
	var result domain.PortfolioValuation
	for i := 0; i < 12; i++ {
		var err error
		result, err = v.Valuate(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, result.Holdings, 1)
	trend := result.Holdings[0].Trend
	require.NotNil(t, trend)
	assert.True(t, trend.Equal(decimal.NewFromInt(200)),
		"EMA of a flat series must equal the price, got %s", trend)
	assert.Nil(t, result.Holdings[0].Momentum)
}
