package indicator

import "math"

const (
	rocShortBars  = 5
	rocMediumBars = 15
	rocLongBars   = 30
)

// Decline computes the rate-of-change decline-velocity score and its
// severity bucket over the last 30+ bars of candles (spec.md §4.2
// "Decline velocity").
func Decline(candles []Candle) (DeclineReport, error) {
	if len(candles) < rocLongBars+1 {
		return DeclineReport{}, ErrInsufficientData
	}

	last := len(candles) - 1
	rocShort := rateOfChange(candles, last, rocShortBars)
	rocMedium := rateOfChange(candles, last, rocMediumBars)
	rocLong := rateOfChange(candles, last, rocLongBars)

	smoothness := 1.0
	if rocShort < 0 && rocMedium < 0 && rocMedium != 0 {
		smoothness = rocShort / rocMedium
	}

	volumeRatio := meanVolume(candles, 5) / meanVolume(candles, 30)

	severity := 0.0
	if rocShort < 0 {
		severity = math.Min(100, math.Abs(rocShort)*2000)
	}

	acceleration := 0.0
	if smoothness > 1 {
		acceleration = 50 * clampFloat(smoothness, 1, 4)
	}

	volume := 0.0
	if volumeRatio > 1 {
		volume = math.Min(30, (volumeRatio-1)*30)
	}

	velocityScore := math.Min(100, severity+acceleration+volume)
	kind := classifyDecline(velocityScore)

	return DeclineReport{
		RocShort:      rocShort,
		RocMedium:     rocMedium,
		RocLong:       rocLong,
		Smoothness:    smoothness,
		VolumeRatio:   volumeRatio,
		VelocityScore: velocityScore,
		Kind:          kind,
		IsDangerous:   kind == Fast || kind == Crash,
		IsSafe:        kind == Slow,
	}, nil
}

func rateOfChange(candles []Candle, last, bars int) float64 {
	cur, _ := candles[last].Close.Float64()
	prev, _ := candles[last-bars].Close.Float64()
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev
}

func meanVolume(candles []Candle, bars int) float64 {
	if bars > len(candles) {
		bars = len(candles)
	}
	sum := 0.0
	window := candles[len(candles)-bars:]
	for _, c := range window {
		f, _ := c.Volume.Float64()
		sum += f
	}
	if bars == 0 {
		return 0
	}
	return sum / float64(bars)
}

func classifyDecline(score float64) DeclineKind {
	switch {
	case score < 20:
		return Slow
	case score < 40:
		return Moderate
	case score < 70:
		return Fast
	default:
		return Crash
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
