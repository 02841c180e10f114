package ledgerstate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/chiptrader/internal/domain"
)

func TestWALStore_EmptyLoadReturnsNil(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	state, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestWALStore_LoadReturnsLatestSnapshot(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(State{Chips: "100000"}))
	require.NoError(t, store.Save(State{
		Chips: "98500",
		Holdings: []StoredHolding{
			{CoinID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Amount: "0.5", EntryPrice: "3000"},
		},
	}))
	require.NoError(t, store.Close())

	// reopen, replaying the log from disk
	store, err = NewWALStore(dir)
	require.NoError(t, err)
	defer store.Close()

	state, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "98500", state.Chips)
	require.Len(t, state.Holdings, 1)
	assert.Equal(t, "bitcoin", state.Holdings[0].CoinID)
}

func TestStoredHolding_RoundTrip(t *testing.T) {
	h := &domain.Holding{
		CoinID:     "ethereum",
		Name:       "Ethereum",
		Symbol:     "ETH",
		Amount:     decimal.RequireFromString("1.25"),
		EntryPrice: decimal.RequireFromString("3100.5"),
		Image:      "eth.png",
	}

	restored, err := NewStoredHolding(h).ToHolding()
	require.NoError(t, err)
	assert.Equal(t, h.CoinID, restored.CoinID)
	assert.True(t, restored.Amount.Equal(h.Amount))
	assert.True(t, restored.EntryPrice.Equal(h.EntryPrice))
}

func TestStoredHolding_RejectsCorruptAmount(t *testing.T) {
	_, err := StoredHolding{CoinID: "bitcoin", Amount: "not-a-number", EntryPrice: "1"}.ToHolding()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bitcoin")
}

func TestStoredTransaction_RoundTrip(t *testing.T) {
	tx := domain.Transaction{
		ID:         "tx-1",
		Kind:       domain.TransactionSell,
		Coin:       "Bitcoin",
		Symbol:     "BTC",
		Amount:     decimal.RequireFromString("0.1"),
		Price:      decimal.RequireFromString("64000"),
		TotalValue: decimal.RequireFromString("6400"),
		Profit:     decimal.RequireFromString("212.5"),
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	restored, err := NewStoredTransaction(tx).ToTransaction()
	require.NoError(t, err)
	assert.Equal(t, tx.ID, restored.ID)
	assert.Equal(t, tx.Kind, restored.Kind)
	assert.True(t, restored.Profit.Equal(tx.Profit))
	assert.True(t, restored.CreatedAt.Equal(tx.CreatedAt))
}

func TestStoredTransaction_EmptyProfitDefaultsToZero(t *testing.T) {
	restored, err := StoredTransaction{
		ID: "tx-2", Kind: "buy", Amount: "1", Price: "10", TotalValue: "10",
	}.ToTransaction()
	require.NoError(t, err)
	assert.True(t, restored.Profit.IsZero())
}
