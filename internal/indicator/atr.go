package indicator

import "github.com/shopspring/decimal"

// trueRanges computes true range per bar (spec.md §4.2): max(high-low,
// |high-prevClose|, |low-prevClose|). The result has one fewer element
// than candles, since bar 0 has no previous close.
func trueRanges(candles []Candle) []decimal.Decimal {
	trs := make([]decimal.Decimal, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		c := candles[i]
		prevClose := candles[i-1].Close

		hl := c.High.Sub(c.Low).Abs()
		hc := c.High.Sub(prevClose).Abs()
		lc := c.Low.Sub(prevClose).Abs()

		tr := hl
		if hc.GreaterThan(tr) {
			tr = hc
		}
		if lc.GreaterThan(tr) {
			tr = lc
		}
		trs = append(trs, tr)
	}
	return trs
}

// atrSeries computes the rolling simple mean of true range over windows
// of size period, one value per bar once enough true ranges have
// accumulated. atrSeries[0] corresponds to the first full window.
func atrSeries(trs []decimal.Decimal, period int) []decimal.Decimal {
	if len(trs) < period {
		return nil
	}
	out := make([]decimal.Decimal, 0, len(trs)-period+1)
	for end := period; end <= len(trs); end++ {
		out = append(out, meanDecimal(trs[end-period:end]))
	}
	return out
}

// ATR returns the current ATR(period) and the ratio of that value to the
// rolling mean of the ATR series (spec.md §3 "atrRatio"). A flat series
// with zero mean ATR reports a neutral ratio of 1 rather than dividing
// by zero.
func ATR(candles []Candle, period int) (atr decimal.Decimal, atrRatio float64, err error) {
	if period <= 0 || len(candles) < period+1 {
		return decimal.Zero, 0, ErrInsufficientData
	}

	trs := trueRanges(candles)
	series := atrSeries(trs, period)
	if len(series) == 0 {
		return decimal.Zero, 0, ErrInsufficientData
	}

	atr = series[len(series)-1]
	mean := meanDecimal(series)
	if mean.IsZero() {
		return atr, 1, nil
	}
	ratio, _ := atr.Div(mean).Float64()
	return atr, ratio, nil
}

func meanDecimal(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}
