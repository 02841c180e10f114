package indicators

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(vals ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func TestCalculateEMA_FlatSeries(t *testing.T) {
	ema, err := CalculateEMA(series(100, 100, 100, 100, 100, 100), 3)
	require.NoError(t, err)
	require.NotEmpty(t, ema)
	for _, v := range ema {
		assert.True(t, v.Equal(decimal.NewFromInt(100)),
			"EMA of a flat series must equal the series value, got %s", v)
	}
}

func TestCalculateEMA_TracksRisingPrices(t *testing.T) {
	ema, err := CalculateEMA(series(10, 11, 12, 13, 14, 15, 16, 17, 18, 19), 3)
	require.NoError(t, err)
	require.NotEmpty(t, ema)

	first := ema[0]
	last := ema[len(ema)-1]
	assert.True(t, last.GreaterThan(first), "EMA must follow a rising series upward")
	assert.True(t, last.LessThanOrEqual(decimal.NewFromInt(19)),
		"EMA must lag the latest close, got %s", last)
}

func TestCalculateEMA_NotEnoughData(t *testing.T) {
	_, err := CalculateEMA(series(100, 101), 3)
	require.Error(t, err)
}

func TestCalculateRSI_RisingSeries(t *testing.T) {
	rsi, err := CalculateRSI(series(10, 11, 12, 13, 14, 15, 16, 17, 18, 19), 5)
	require.NoError(t, err)
	require.NotEmpty(t, rsi)
	last := rsi[len(rsi)-1]
	assert.True(t, last.GreaterThanOrEqual(decimal.NewFromInt(70)),
		"uninterrupted gains must read overbought, got %s", last)
}

func TestCalculateRSI_FallingSeries(t *testing.T) {
	rsi, err := CalculateRSI(series(19, 18, 17, 16, 15, 14, 13, 12, 11, 10), 5)
	require.NoError(t, err)
	require.NotEmpty(t, rsi)
	last := rsi[len(rsi)-1]
	assert.True(t, last.LessThanOrEqual(decimal.NewFromInt(30)),
		"uninterrupted losses must read oversold, got %s", last)
}

func TestCalculateRSI_NotEnoughData(t *testing.T) {
	_, err := CalculateRSI(series(10, 11, 12, 13, 14), 5)
	require.Error(t, err)
}
