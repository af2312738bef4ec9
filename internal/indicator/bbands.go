package indicator

import (
	"math"

	"github.com/shopspring/decimal"
)

// BollingerWidthPct computes (upper-lower)/middle*100 over the last
// period closes, where middle is the SMA and upper/lower are middle ±
// k*stddev (spec.md §4.2).
func BollingerWidthPct(closes []decimal.Decimal, period int, k float64) (float64, error) {
	if period <= 0 || len(closes) < period {
		return 0, ErrInsufficientData
	}

	window := closes[len(closes)-period:]
	middle := meanDecimal(window)
	middleF, _ := middle.Float64()
	if middleF == 0 {
		return 0, nil
	}

	sigma := stddevDecimal(window, middle)
	upper := middleF + k*sigma
	lower := middleF - k*sigma

	return (upper - lower) / middleF * 100, nil
}

func stddevDecimal(values []decimal.Decimal, mean decimal.Decimal) float64 {
	meanF, _ := mean.Float64()
	sumSq := 0.0
	for _, v := range values {
		f, _ := v.Float64()
		d := f - meanF
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
