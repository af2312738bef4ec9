package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candlesFromFloats(closes []float64) []Candle {
	out := make([]Candle, len(closes))
	for i, c := range closes {
		price := decimal.NewFromFloat(c)
		out[i] = Candle{Open: price, High: price, Low: price, Close: price, Volume: decimal.NewFromInt(1)}
	}
	return out
}

func TestVolatility_FlatSeriesIsNotHigh(t *testing.T) {
	closes := make([]float64, 61)
	for i := range closes {
		closes[i] = 100
	}
	report, err := Volatility(candlesFromFloats(closes), 1, DefaultVolatilityThresholds)
	require.NoError(t, err)
	assert.False(t, report.IsHigh)
}

func TestVolatility_ExceedingAnyThresholdMarksHigh(t *testing.T) {
	thresholds := VolatilityThresholds{ATRRatioMax: -1, BBWidthPctMax: 100, HistVolPctMax: 100}
	closes := make([]float64, 61)
	for i := range closes {
		closes[i] = 100
	}
	report, err := Volatility(candlesFromFloats(closes), 1, thresholds)
	require.NoError(t, err)
	assert.True(t, report.IsHigh)
}

func TestVolatility_InsufficientDataPropagatesError(t *testing.T) {
	_, err := Volatility(candlesFromFloats([]float64{1, 2, 3}), 1, DefaultVolatilityThresholds)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
