package indicator

import "github.com/shopspring/decimal"

// EMA computes the standard exponential moving average recurrence
// (spec.md §4.1 "EMA derivation"): ema[0] = closes[0], ema[t] = alpha *
// closes[t] + (1-alpha) * ema[t-1], alpha = 2/(period+1). Returns
// ema[last].
func EMA(closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 || len(closes) < period {
		return decimal.Zero, ErrInsufficientData
	}

	alpha := decimal.NewFromFloat(2.0 / float64(period+1))
	oneMinusAlpha := decimal.NewFromInt(1).Sub(alpha)

	ema := closes[0]
	for _, c := range closes[1:] {
		ema = alpha.Mul(c).Add(oneMinusAlpha.Mul(ema))
	}
	return ema, nil
}
