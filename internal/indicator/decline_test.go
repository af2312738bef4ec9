package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candlesFromCloses(closes []float64, volume float64) []Candle {
	out := make([]Candle, len(closes))
	for i, c := range closes {
		price := decimal.NewFromFloat(c)
		out[i] = Candle{Open: price, High: price, Low: price, Close: price, Volume: decimal.NewFromFloat(volume)}
	}
	return out
}

func TestDecline_FlatSeriesIsSlowAndSafe(t *testing.T) {
	closes := make([]float64, 31)
	for i := range closes {
		closes[i] = 100
	}
	report, err := Decline(candlesFromCloses(closes, 10))
	require.NoError(t, err)
	assert.Equal(t, Slow, report.Kind)
	assert.True(t, report.IsSafe)
	assert.False(t, report.IsDangerous)
}

func TestDecline_SharpDropClassifiesAsCrash(t *testing.T) {
	closes := make([]float64, 31)
	for i := 0; i < 26; i++ {
		closes[i] = 100
	}
	// last 5 bars fall 20% total, well past the crash threshold.
	closes[26] = 96
	closes[27] = 92
	closes[28] = 88
	closes[29] = 84
	closes[30] = 80

	report, err := Decline(candlesFromCloses(closes, 10))
	require.NoError(t, err)
	assert.Equal(t, Crash, report.Kind)
	assert.True(t, report.IsDangerous)
	assert.False(t, report.IsSafe)
}

func TestDecline_InsufficientDataErrors(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100
	}
	_, err := Decline(candlesFromCloses(closes, 10))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestDecline_VelocityScoreNeverExceedsOneHundred(t *testing.T) {
	closes := make([]float64, 31)
	start := 1000.0
	for i := range closes {
		closes[i] = start
		start *= 0.7 // an extreme, unrealistic collapse
	}
	report, err := Decline(candlesFromCloses(closes, 10))
	require.NoError(t, err)
	assert.LessOrEqual(t, report.VelocityScore, 100.0)
	assert.Equal(t, Crash, report.Kind)
}
