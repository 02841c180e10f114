// Package valuation marks the holding set to market: it joins ledger
// holdings with live quotes and keeps the result fresh on a polling cycle.
package valuation

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/chiptrader/internal/domain"
	"github.com/vadiminshakov/chiptrader/pkg/indicators"
	"go.uber.org/zap"
)

const (
	// historyCap bounds the per-coin price history kept for the indicators.
	historyCap = 50
	rsiPeriod  = 14
	emaPeriod  = 10

	hundred = 100
)

// MarketData is the slice of the market data client the valuator needs.
type MarketData interface {
	GetMany(ctx context.Context, coinIDs []string) ([]domain.Quote, error)
	Degraded() bool
}

// HoldingSource is the slice of the ledger the valuator needs.
type HoldingSource interface {
	Holdings() []domain.Holding
	Changes() <-chan struct{}
}

// Valuator computes portfolio valuations and caches the latest one for the
// web layer. Run keeps it current on a fixed interval and immediately after
// every ledger mutation.
type Valuator struct {
	market MarketData
	ledger HoldingSource
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	history map[string][]decimal.Decimal
	latest  domain.PortfolioValuation
	seq     uint64
}

// New creates a valuator.
func New(market MarketData, ledger HoldingSource, logger *zap.Logger) *Valuator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Valuator{
		market:  market,
		ledger:  ledger,
		logger:  logger,
		now:     time.Now,
		history: make(map[string][]decimal.Decimal),
	}
}

// Valuate prices the current holding set. An empty set returns zeroed totals
// without touching the network. Holdings whose instrument cannot be priced
// are dropped from the result: a stale position with no market data cannot
// be valued.
func (v *Valuator) Valuate(ctx context.Context) (domain.PortfolioValuation, error) {
	holdings := v.ledger.Holdings()

	result := domain.PortfolioValuation{
		Holdings:           []domain.ValuedHolding{},
		TotalValue:         decimal.Zero,
		TotalProfit:        decimal.Zero,
		TotalProfitPercent: decimal.Zero,
		At:                 v.now(),
	}
	if len(holdings) == 0 {
		v.publish(result)
		return result, nil
	}

	ids := make([]string, 0, len(holdings))
	byID := make(map[string]domain.Holding, len(holdings))
	for _, h := range holdings {
		ids = append(ids, h.CoinID)
		byID[h.CoinID] = h
	}

	quotes, err := v.market.GetMany(ctx, ids)
	if err != nil {
		return domain.PortfolioValuation{}, err
	}
	result.Stale = v.market.Degraded()

	totalEntry := decimal.Zero
	for _, q := range quotes {
		h, ok := byID[q.ID]
		if !ok {
			continue
		}

		value := q.Price.Mul(h.Amount)
		entryValue := h.EntryValue()
		profit := value.Sub(entryValue)
		profitPercent := decimal.Zero
		if entryValue.IsPositive() {
			profitPercent = profit.Div(entryValue).Mul(decimal.NewFromInt(hundred))
		}

		momentum, trend := v.observe(q.ID, q.Price)
		vh := domain.ValuedHolding{
			Quote:         q,
			Amount:        h.Amount,
			EntryPrice:    h.EntryPrice,
			Value:         value,
			Profit:        profit,
			ProfitPercent: profitPercent,
			Momentum:      momentum,
			Trend:         trend,
		}
		result.Holdings = append(result.Holdings, vh)
		result.TotalValue = result.TotalValue.Add(value)
		result.TotalProfit = result.TotalProfit.Add(profit)
		totalEntry = totalEntry.Add(entryValue)
	}

	if totalEntry.IsPositive() {
		result.TotalProfitPercent = result.TotalProfit.Div(totalEntry).Mul(decimal.NewFromInt(hundred))
	}

	v.publish(result)
	return result, nil
}

// Run re-valuates on every tick and immediately after ledger mutations,
// until the context is cancelled.
func (v *Valuator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	v.logger.Info("valuation poller started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			v.logger.Info("valuation poller stopped")
			return ctx.Err()
		case <-ticker.C:
		case <-v.ledger.Changes():
		}

		if _, err := v.Valuate(ctx); err != nil {
			v.logger.Warn("valuation pass failed", zap.Error(err))
		}
	}
}

// Latest returns the most recent valuation and its sequence number. The
// sequence increases on every publish, letting the SSE stream detect new
// snapshots without re-serializing unchanged data.
func (v *Valuator) Latest() (domain.PortfolioValuation, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest, v.seq
}

func (v *Valuator) publish(result domain.PortfolioValuation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.latest = result
	v.seq++
}

// observe appends the observed price to the coin's poll history and computes
// RSI and EMA over it. Either result is nil until its indicator has enough
// samples; the EMA warms up before the RSI does.
func (v *Valuator) observe(coinID string, price decimal.Decimal) (momentum, trend *decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()

	history := append(v.history[coinID], price)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	v.history[coinID] = history

	if rsi, err := indicators.CalculateRSI(history, rsiPeriod); err == nil && len(rsi) > 0 {
		last := rsi[len(rsi)-1]
		momentum = &last
	}
	if ema, err := indicators.CalculateEMA(history, emaPeriod); err == nil && len(ema) > 0 {
		last := ema[len(ema)-1]
		trend = &last
	}
	return momentum, trend
}
