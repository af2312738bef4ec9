package indicator

import (
	"math"

	"github.com/shopspring/decimal"
)

const minutesPerDay = 24 * 60

// HistoricalVolatilityPct computes the standard deviation of log returns
// over the last period+1 closes, scaled to a daily-equivalent
// percentage by the square root of bars-per-day for the configured
// candle interval (spec.md §4.2).
func HistoricalVolatilityPct(closes []decimal.Decimal, period int, intervalMinutes int) (float64, error) {
	if period <= 0 || intervalMinutes <= 0 || len(closes) < period+1 {
		return 0, ErrInsufficientData
	}

	window := closes[len(closes)-period-1:]
	returns := make([]float64, 0, period)
	for i := 1; i < len(window); i++ {
		prev, _ := window[i-1].Float64()
		cur, _ := window[i].Float64()
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) == 0 {
		return 0, nil
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	sumSq := 0.0
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	stddev := math.Sqrt(sumSq / float64(len(returns)))

	barsPerDay := float64(minutesPerDay) / float64(intervalMinutes)
	return stddev * math.Sqrt(barsPerDay) * 100, nil
}
