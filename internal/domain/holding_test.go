package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHolding_Validation(t *testing.T) {
	quote := Quote{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC"}

	_, err := NewHolding(quote, decimal.Zero, decimal.NewFromInt(100))
	require.Error(t, err)

	_, err = NewHolding(quote, decimal.NewFromInt(1), decimal.NewFromInt(-5))
	require.Error(t, err)

	h, err := NewHolding(quote, decimal.NewFromInt(2), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", h.CoinID)
	assert.True(t, h.EntryValue().Equal(decimal.NewFromInt(200)))
}

func TestAddLot_WeightedAverage(t *testing.T) {
	cases := []struct {
		name      string
		lots      [][2]int64 // amount, price
		wantEntry string
	}{
		{"equal lots", [][2]int64{{1, 100}, {1, 200}}, "150"},
		{"weighted toward larger lot", [][2]int64{{3, 100}, {1, 200}}, "125"},
		{"three lots", [][2]int64{{1, 90}, {2, 120}, {1, 150}}, "120"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := NewHolding(Quote{ID: "bitcoin"},
				decimal.NewFromInt(tc.lots[0][0]), decimal.NewFromInt(tc.lots[0][1]))
			require.NoError(t, err)
			for _, lot := range tc.lots[1:] {
				h.AddLot(decimal.NewFromInt(lot[0]), decimal.NewFromInt(lot[1]))
			}
			assert.True(t, h.EntryPrice.Equal(decimal.RequireFromString(tc.wantEntry)),
				"entry price = %s", h.EntryPrice)
		})
	}
}

func TestReduce(t *testing.T) {
	h, err := NewHolding(Quote{ID: "bitcoin"}, decimal.NewFromInt(3), decimal.NewFromInt(100))
	require.NoError(t, err)

	liquidated := h.Reduce(decimal.NewFromInt(1))
	assert.False(t, liquidated)
	assert.True(t, h.Amount.Equal(decimal.NewFromInt(2)))
	assert.True(t, h.EntryPrice.Equal(decimal.NewFromInt(100)),
		"partial sale must not move the entry price")

	liquidated = h.Reduce(decimal.NewFromInt(2))
	assert.True(t, liquidated)
}

func TestPnL(t *testing.T) {
	h, err := NewHolding(Quote{ID: "bitcoin"}, decimal.NewFromInt(2), decimal.NewFromInt(150))
	require.NoError(t, err)

	assert.True(t, h.PnL(decimal.NewFromInt(180)).Equal(decimal.NewFromInt(60)))
	assert.True(t, h.PnL(decimal.NewFromInt(100)).Equal(decimal.NewFromInt(-100)))
}
