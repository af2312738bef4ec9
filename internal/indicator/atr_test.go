package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCandles(n int, price float64) []Candle {
	out := make([]Candle, n)
	p := decimal.NewFromFloat(price)
	for i := range out {
		out[i] = Candle{Open: p, High: p, Low: p, Close: p, Volume: decimal.NewFromInt(1)}
	}
	return out
}

func TestATR_FlatSeriesReportsZeroATRAndNeutralRatio(t *testing.T) {
	candles := flatCandles(20, 100)
	atr, ratio, err := ATR(candles, 14)
	require.NoError(t, err)
	assert.True(t, atr.IsZero())
	assert.Equal(t, 1.0, ratio)
}

func TestATR_ConstantRangeYieldsRatioOfOne(t *testing.T) {
	candles := make([]Candle, 20)
	for i := range candles {
		close := decimal.NewFromFloat(100 + float64(i))
		candles[i] = Candle{
			Open:  close,
			High:  close.Add(decimal.NewFromInt(1)),
			Low:   close.Sub(decimal.NewFromInt(1)),
			Close: close,
		}
	}
	atr, ratio, err := ATR(candles, 14)
	require.NoError(t, err)
	assert.False(t, atr.IsZero())
	assert.InDelta(t, 1.0, ratio, 1e-9)
}

func TestATR_InsufficientDataErrors(t *testing.T) {
	_, _, err := ATR(flatCandles(5, 100), 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestATR_ZeroPeriodErrors(t *testing.T) {
	_, _, err := ATR(flatCandles(20, 100), 0)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
