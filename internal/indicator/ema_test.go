package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closesFromFloats(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func TestEMA_ConstantSeriesConvergesToTheConstant(t *testing.T) {
	closes := closesFromFloats(100, 100, 100, 100, 100, 100, 100, 100, 100, 100)
	ema, err := EMA(closes, 5)
	require.NoError(t, err)
	assert.True(t, ema.Equal(decimal.NewFromInt(100)))
}

func TestEMA_FirstValueSeedsTheRecurrence(t *testing.T) {
	closes := closesFromFloats(10)
	ema, err := EMA(closes, 1)
	require.NoError(t, err)
	assert.True(t, ema.Equal(decimal.NewFromInt(10)))
}

func TestEMA_InsufficientDataErrors(t *testing.T) {
	closes := closesFromFloats(1, 2, 3)
	_, err := EMA(closes, 5)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEMA_RisingSeriesStaysWithinRange(t *testing.T) {
	closes := closesFromFloats(10, 11, 12, 13, 14, 15, 16, 17, 18, 19)
	ema, err := EMA(closes, 4)
	require.NoError(t, err)
	f, _ := ema.Float64()
	assert.Greater(t, f, 10.0)
	assert.LessOrEqual(t, f, 19.0)
}

func TestEMA_ZeroPeriodErrors(t *testing.T) {
	closes := closesFromFloats(1, 2, 3)
	_, err := EMA(closes, 0)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
