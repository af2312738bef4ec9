package indicator

import "github.com/shopspring/decimal"

// DefaultVolatilityThresholds are the contractual defaults from spec.md
// §4.2: atrRatio > 1.5 OR bbWidthPct > 8.0 OR historicalVolPct > 5.0.
var DefaultVolatilityThresholds = VolatilityThresholds{
	ATRRatioMax:   1.5,
	BBWidthPctMax: 8.0,
	HistVolPctMax: 5.0,
}

const (
	atrPeriod  = 14
	bbPeriod   = 20
	bbK        = 2.0
	hvolPeriod = 20
)

// Volatility composes ATR, Bollinger width, and historical volatility
// into a single report and classifies isHigh against the given
// thresholds (spec.md §3 "Volatility Report", §4.2 "is_high_volatility").
func Volatility(candles []Candle, intervalMinutes int, thresholds VolatilityThresholds) (VolatilityReport, error) {
	closes := closesOf(candles)

	atr, atrRatio, err := ATR(candles, atrPeriod)
	if err != nil {
		return VolatilityReport{}, err
	}
	bbWidthPct, err := BollingerWidthPct(closes, bbPeriod, bbK)
	if err != nil {
		return VolatilityReport{}, err
	}
	histVolPct, err := HistoricalVolatilityPct(closes, hvolPeriod, intervalMinutes)
	if err != nil {
		return VolatilityReport{}, err
	}

	isHigh := atrRatio > thresholds.ATRRatioMax ||
		bbWidthPct > thresholds.BBWidthPctMax ||
		histVolPct > thresholds.HistVolPctMax

	return VolatilityReport{
		ATR:              atr,
		ATRRatio:         atrRatio,
		BBWidthPct:       bbWidthPct,
		HistoricalVolPct: histVolPct,
		IsHigh:           isHigh,
	}, nil
}

func closesOf(candles []Candle) []decimal.Decimal {
	closes := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
