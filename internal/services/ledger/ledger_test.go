package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/chiptrader/internal/domain"
	"github.com/vadiminshakov/chiptrader/internal/storage/ledgerstate"
	"go.uber.org/zap"
)

// memStore keeps snapshots in memory and can be told to fail.
type memStore struct {
	state *ledgerstate.State
	saves int
	fail  bool
}

func (m *memStore) Save(state ledgerstate.State) error {
	if m.fail {
		return fmt.Errorf("disk full")
	}
	m.saves++
	m.state = &state
	return nil
}

func (m *memStore) Load() (*ledgerstate.State, error) {
	return m.state, nil
}

func newTestLedger(t *testing.T) (*Ledger, *memStore) {
	t.Helper()
	store := &memStore{}
	l, err := New(store, zap.NewNop())
	require.NoError(t, err)
	return l, store
}

func btcQuote() domain.Quote {
	return domain.Quote{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC"}
}

func TestLedger_InitialBalance(t *testing.T) {
	l, store := newTestLedger(t)
	assert.True(t, l.Balance().Equal(decimal.NewFromInt(100000)))
	// the starting balance is persisted so restarts agree on it
	require.NotNil(t, store.state)
	assert.Equal(t, "100000", store.state.Chips)
}

func TestLedger_Buy_WeightedAverageEntryPrice(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Buy(btcQuote(), decimal.NewFromInt(1), decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = l.Buy(btcQuote(), decimal.NewFromInt(1), decimal.NewFromInt(200))
	require.NoError(t, err)

	h := l.Holding("bitcoin")
	require.NotNil(t, h)
	assert.True(t, h.Amount.Equal(decimal.NewFromInt(2)), "amount = %s", h.Amount)
	assert.True(t, h.EntryPrice.Equal(decimal.NewFromInt(150)), "entry price = %s", h.EntryPrice)
}

func TestLedger_Buy_DebitsBalance(t *testing.T) {
	l, _ := newTestLedger(t)

	balance, err := l.Buy(btcQuote(), decimal.NewFromInt(2), decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(98000)))
}

func TestLedger_Buy_InsufficientBalance(t *testing.T) {
	l, store := newTestLedger(t)
	savesBefore := store.saves

	_, err := l.Buy(btcQuote(), decimal.NewFromInt(3), decimal.NewFromInt(50000))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// nothing mutated, nothing persisted
	assert.True(t, l.Balance().Equal(decimal.NewFromInt(100000)))
	assert.Empty(t, l.Holdings())
	assert.Empty(t, l.Transactions())
	assert.Equal(t, savesBefore, store.saves)
}

func TestLedger_Sell_RealizedProfit(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Buy(btcQuote(), decimal.NewFromInt(1), decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = l.Buy(btcQuote(), decimal.NewFromInt(1), decimal.NewFromInt(200))
	require.NoError(t, err)

	// entry 150, sell 1 @ 180 => profit 30
	profit, err := l.Sell(btcQuote(), decimal.NewFromInt(1), decimal.NewFromInt(180))
	require.NoError(t, err)
	assert.True(t, profit.Equal(decimal.NewFromInt(30)), "profit = %s", profit)
}

func TestLedger_Sell_PartialPreservesEntryPrice(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Buy(btcQuote(), decimal.NewFromInt(4), decimal.NewFromInt(150))
	require.NoError(t, err)

	_, err = l.Sell(btcQuote(), decimal.NewFromInt(1), decimal.NewFromInt(180))
	require.NoError(t, err)

	h := l.Holding("bitcoin")
	require.NotNil(t, h)
	assert.True(t, h.Amount.Equal(decimal.NewFromInt(3)))
	assert.True(t, h.EntryPrice.Equal(decimal.NewFromInt(150)))
}

func TestLedger_Sell_FullLiquidationRemovesHolding(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Buy(btcQuote(), decimal.NewFromInt(2), decimal.NewFromInt(150))
	require.NoError(t, err)
	_, err = l.Sell(btcQuote(), decimal.NewFromInt(2), decimal.NewFromInt(180))
	require.NoError(t, err)

	assert.Nil(t, l.Holding("bitcoin"))
	assert.Empty(t, l.Holdings())
}

func TestLedger_Sell_InsufficientHolding(t *testing.T) {
	l, store := newTestLedger(t)

	_, err := l.Buy(btcQuote(), decimal.NewFromInt(1), decimal.NewFromInt(100))
	require.NoError(t, err)
	savesBefore := store.saves
	balanceBefore := l.Balance()

	_, err = l.Sell(btcQuote(), decimal.NewFromInt(2), decimal.NewFromInt(100))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientHolding)

	h := l.Holding("bitcoin")
	require.NotNil(t, h)
	assert.True(t, h.Amount.Equal(decimal.NewFromInt(1)))
	assert.True(t, l.Balance().Equal(balanceBefore))
	assert.Equal(t, savesBefore, store.saves)
}

func TestLedger_Sell_UnknownInstrument(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Sell(domain.Quote{ID: "dogecoin", Name: "Dogecoin", Symbol: "DOGE"},
		decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientHolding)
}

func TestLedger_TransactionLog_CappedNewestFirst(t *testing.T) {
	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seq := 0
	l, err := New(&memStore{}, zap.NewNop(),
		WithClock(func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		}),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("tx-%d", seq)
		}),
	)
	require.NoError(t, err)

	total := domain.TransactionLogCap + 10
	for i := 0; i < total; i++ {
		_, err := l.Buy(btcQuote(), decimal.NewFromInt(1), decimal.NewFromInt(1))
		require.NoError(t, err)
	}

	txs := l.Transactions()
	require.Len(t, txs, domain.TransactionLogCap)
	assert.Equal(t, fmt.Sprintf("tx-%d", total), txs[0].ID, "newest entry first")
	for i := 1; i < len(txs); i++ {
		assert.True(t, !txs[i-1].CreatedAt.Before(txs[i].CreatedAt),
			"transactions must be ordered newest first")
	}
}

func TestLedger_PersistFailureLeavesStateUntouched(t *testing.T) {
	l, store := newTestLedger(t)
	store.fail = true

	_, err := l.Buy(btcQuote(), decimal.NewFromInt(1), decimal.NewFromInt(100))
	require.Error(t, err)

	assert.True(t, l.Balance().Equal(decimal.NewFromInt(100000)))
	assert.Empty(t, l.Holdings())
	assert.Empty(t, l.Transactions())
}

func TestLedger_RestoreFromSnapshot(t *testing.T) {
	store := &memStore{}
	first, err := New(store, zap.NewNop())
	require.NoError(t, err)

	_, err = first.Buy(btcQuote(), decimal.NewFromInt(2), decimal.NewFromInt(150))
	require.NoError(t, err)
	_, err = first.Sell(btcQuote(), decimal.NewFromInt(1), decimal.NewFromInt(180))
	require.NoError(t, err)

	second, err := New(store, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, second.Balance().Equal(first.Balance()))
	h := second.Holding("bitcoin")
	require.NotNil(t, h)
	assert.True(t, h.Amount.Equal(decimal.NewFromInt(1)))
	assert.True(t, h.EntryPrice.Equal(decimal.NewFromInt(150)))
	require.Len(t, second.Transactions(), 2)
	assert.Equal(t, domain.TransactionSell, second.Transactions()[0].Kind)
}

func TestLedger_ChangesSignalOnMutation(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Buy(btcQuote(), decimal.NewFromInt(1), decimal.NewFromInt(100))
	require.NoError(t, err)

	select {
	case <-l.Changes():
	default:
		t.Fatal("expected a change notification after buy")
	}
}
