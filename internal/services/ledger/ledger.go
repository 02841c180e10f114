// Package ledger owns the three persisted trading entities: the chips
// balance, the holding set and the transaction log. No other component
// writes them; every mutation goes through Buy or Sell and commits as a
// single snapshot.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/chiptrader/internal/domain"
	"github.com/vadiminshakov/chiptrader/internal/storage/ledgerstate"
	"go.uber.org/zap"
)

// InitialChips is the virtual balance granted on first use.
var InitialChips = decimal.NewFromInt(100000)

// Store persists ledger snapshots.
type Store interface {
	Save(state ledgerstate.State) error
	Load() (*ledgerstate.State, error)
}

// Ledger is the single owner of balance, holdings and transaction history.
// Operations validate first and commit only after the snapshot is persisted,
// so a failed trade leaves no trace.
type Ledger struct {
	mu           sync.Mutex
	chips        decimal.Decimal
	holdings     []*domain.Holding
	transactions []domain.Transaction

	store  Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	changes chan struct{}
}

// Option configures the Ledger.
type Option func(*Ledger)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator injects the transaction id source.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// New creates the ledger, restoring persisted state or initializing the
// starting balance on first use.
func New(store Store, logger *zap.Logger, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Ledger{
		chips:   InitialChips,
		store:   store,
		logger:  logger,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.restore(); err != nil {
		return nil, errors.Wrap(err, "restore ledger state")
	}

	logger.Info("ledger ready",
		zap.String("chips", l.chips.String()),
		zap.Int("holdings", len(l.holdings)),
		zap.Int("transactions", len(l.transactions)))
	return l, nil
}

// Buy debits amount*price chips and folds the purchase into the holding for
// the instrument, recomputing the weighted-average entry price. Returns the
// new balance.
func (l *Ledger) Buy(quote domain.Quote, amount, price decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.Errorf("buy amount must be positive, got %s", amount.String())
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.Errorf("buy price must be positive, got %s", price.String())
	}

	cost := amount.Mul(price)
	if l.chips.LessThan(cost) {
		return decimal.Zero, errors.Wrapf(domain.ErrInsufficientBalance,
			"have %s need %s", l.chips.String(), cost.String())
	}

	holdings := cloneHoldings(l.holdings)
	upserted := false
	for _, h := range holdings {
		if h.CoinID == quote.ID {
			h.AddLot(amount, price)
			upserted = true
			break
		}
	}
	if !upserted {
		h, err := domain.NewHolding(quote, amount, price)
		if err != nil {
			return decimal.Zero, err
		}
		holdings = append(holdings, h)
	}

	chips := l.chips.Sub(cost)
	txs := prependCapped(l.transactions, domain.Transaction{
		ID:         l.newID(),
		Kind:       domain.TransactionBuy,
		Coin:       quote.Name,
		Symbol:     quote.Symbol,
		Amount:     amount,
		Price:      price,
		TotalValue: cost,
		Profit:     decimal.Zero,
		CreatedAt:  l.now(),
	})

	if err := l.persist(chips, holdings, txs); err != nil {
		return decimal.Zero, err
	}
	l.chips, l.holdings, l.transactions = chips, holdings, txs
	l.notifyChange()

	l.logger.Info("buy executed",
		zap.String("coin", quote.ID),
		zap.String("amount", amount.String()),
		zap.String("price", price.String()),
		zap.String("chips", chips.String()))
	return chips, nil
}

// Sell credits amount*price chips, reduces the holding (removing it entirely
// on full liquidation) and returns the realized profit against the
// weighted-average entry price.
func (l *Ledger) Sell(quote domain.Quote, amount, price decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.Errorf("sell amount must be positive, got %s", amount.String())
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.Errorf("sell price must be positive, got %s", price.String())
	}

	holdings := cloneHoldings(l.holdings)
	var held *domain.Holding
	heldAt := -1
	for i, h := range holdings {
		if h.CoinID == quote.ID {
			held, heldAt = h, i
			break
		}
	}
	if held == nil {
		return decimal.Zero, errors.Wrapf(domain.ErrInsufficientHolding,
			"no position in %s", quote.ID)
	}
	if held.Amount.LessThan(amount) {
		return decimal.Zero, errors.Wrapf(domain.ErrInsufficientHolding,
			"have %s want to sell %s", held.Amount.String(), amount.String())
	}

	totalValue := amount.Mul(price)
	profit := totalValue.Sub(held.EntryPrice.Mul(amount))

	if liquidated := held.Reduce(amount); liquidated {
		holdings = append(holdings[:heldAt], holdings[heldAt+1:]...)
	}

	chips := l.chips.Add(totalValue)
	txs := prependCapped(l.transactions, domain.Transaction{
		ID:         l.newID(),
		Kind:       domain.TransactionSell,
		Coin:       quote.Name,
		Symbol:     quote.Symbol,
		Amount:     amount,
		Price:      price,
		TotalValue: totalValue,
		Profit:     profit,
		CreatedAt:  l.now(),
	})

	if err := l.persist(chips, holdings, txs); err != nil {
		return decimal.Zero, err
	}
	l.chips, l.holdings, l.transactions = chips, holdings, txs
	l.notifyChange()

	l.logger.Info("sell executed",
		zap.String("coin", quote.ID),
		zap.String("amount", amount.String()),
		zap.String("price", price.String()),
		zap.String("profit", profit.String()),
		zap.String("chips", chips.String()))
	return profit, nil
}

// Balance returns the current chips balance.
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chips
}

// Holdings returns a copy of the current holding set.
func (l *Ledger) Holdings() []domain.Holding {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Holding, 0, len(l.holdings))
	for _, h := range l.holdings {
		out = append(out, *h)
	}
	return out
}

// Holding returns the position for one instrument, or nil when none is open.
func (l *Ledger) Holding(coinID string) *domain.Holding {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, h := range l.holdings {
		if h.CoinID == coinID {
			clone := *h
			return &clone
		}
	}
	return nil
}

// Transactions returns a copy of the transaction log, newest first.
func (l *Ledger) Transactions() []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// Changes signals after every committed mutation so the valuation poller can
// re-valuate without waiting for the next tick.
func (l *Ledger) Changes() <-chan struct{} {
	return l.changes
}

func (l *Ledger) notifyChange() {
	select {
	case l.changes <- struct{}{}:
	default:
	}
}

func (l *Ledger) persist(chips decimal.Decimal, holdings []*domain.Holding, txs []domain.Transaction) error {
	state := ledgerstate.State{
		Chips:        chips.String(),
		Holdings:     make([]ledgerstate.StoredHolding, 0, len(holdings)),
		Transactions: make([]ledgerstate.StoredTransaction, 0, len(txs)),
	}
	for _, h := range holdings {
		state.Holdings = append(state.Holdings, ledgerstate.NewStoredHolding(h))
	}
	for _, tx := range txs {
		state.Transactions = append(state.Transactions, ledgerstate.NewStoredTransaction(tx))
	}

	return errors.Wrap(l.store.Save(state), "persist ledger state")
}

func (l *Ledger) restore() error {
	state, err := l.store.Load()
	if err != nil {
		return err
	}
	if state == nil {
		// first use: write the starting balance so restarts agree on it
		return l.persist(l.chips, nil, nil)
	}

	chips, err := decimal.NewFromString(state.Chips)
	if err != nil {
		return errors.Wrap(err, "decode chips balance")
	}
	l.chips = chips

	l.holdings = make([]*domain.Holding, 0, len(state.Holdings))
	for _, sh := range state.Holdings {
		h, err := sh.ToHolding()
		if err != nil {
			return err
		}
		l.holdings = append(l.holdings, h)
	}

	l.transactions = make([]domain.Transaction, 0, len(state.Transactions))
	for _, st := range state.Transactions {
		tx, err := st.ToTransaction()
		if err != nil {
			return err
		}
		l.transactions = append(l.transactions, tx)
	}

	return nil
}

func cloneHoldings(holdings []*domain.Holding) []*domain.Holding {
	out := make([]*domain.Holding, 0, len(holdings))
	for _, h := range holdings {
		clone := *h
		out = append(out, &clone)
	}
	return out
}

func prependCapped(txs []domain.Transaction, tx domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs)+1)
	out = append(out, tx)
	out = append(out, txs...)
	if len(out) > domain.TransactionLogCap {
		out = out[:domain.TransactionLogCap]
	}
	return out
}
