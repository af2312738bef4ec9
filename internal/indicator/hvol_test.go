package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoricalVolatilityPct_ConstantSeriesIsZero(t *testing.T) {
	closes := closesFromFloats(100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100)
	hvol, err := HistoricalVolatilityPct(closes, 20, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, hvol)
}

func TestHistoricalVolatilityPct_OscillatingSeriesIsPositive(t *testing.T) {
	closes := make([]float64, 21)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 95
		} else {
			closes[i] = 105
		}
	}
	hvol, err := HistoricalVolatilityPct(closesFromFloats(closes...), 20, 1)
	require.NoError(t, err)
	assert.Greater(t, hvol, 0.0)
}

func TestHistoricalVolatilityPct_InsufficientDataErrors(t *testing.T) {
	_, err := HistoricalVolatilityPct(closesFromFloats(1, 2, 3), 20, 1)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestHistoricalVolatilityPct_ShorterIntervalYieldsHigherAnnualization(t *testing.T) {
	closes := make([]float64, 21)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 95
		} else {
			closes[i] = 105
		}
	}
	series := closesFromFloats(closes...)

	oneMinute, err := HistoricalVolatilityPct(series, 20, 1)
	require.NoError(t, err)
	fifteenMinute, err := HistoricalVolatilityPct(series, 20, 15)
	require.NoError(t, err)

	assert.Greater(t, oneMinute, fifteenMinute)
}
