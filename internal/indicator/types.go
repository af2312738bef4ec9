// Package indicator computes pure, side-effect-free numeric signals over
// candle sequences: EMA, ATR, Bollinger-band width, historical volatility,
// and a composite decline-velocity score. No function in this package
// performs I/O, reads the clock, or retains state between calls.
package indicator

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInsufficientData is returned when an input series has fewer bars
// than a function's required window.
var ErrInsufficientData = errors.New("insufficient data")

// Candle is one OHLCV bar, ordered oldest-to-newest within any series
// passed to this package.
type Candle struct {
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// VolatilityReport is the output of the volatility classifier (spec.md
// §4.2 / §3 "Volatility Report").
type VolatilityReport struct {
	ATR              decimal.Decimal
	ATRRatio         float64
	BBWidthPct       float64
	HistoricalVolPct float64
	IsHigh           bool
}

// DeclineKind buckets a velocity score into a named severity tier.
type DeclineKind int

const (
	Slow DeclineKind = iota
	Moderate
	Fast
	Crash
)

func (k DeclineKind) String() string {
	switch k {
	case Slow:
		return "Slow"
	case Moderate:
		return "Moderate"
	case Fast:
		return "Fast"
	case Crash:
		return "Crash"
	default:
		return "Unknown"
	}
}

// DeclineReport is the output of the decline-velocity classifier
// (spec.md §4.2 / §3 "Decline Report").
type DeclineReport struct {
	RocShort     float64
	RocMedium    float64
	RocLong      float64
	Smoothness   float64
	VolumeRatio  float64
	VelocityScore float64
	Kind         DeclineKind
	IsDangerous  bool
	IsSafe       bool
}

// VolatilityThresholds are the configurable cutoffs behind isHigh; the
// zero value is NOT usable, use DefaultVolatilityThresholds.
type VolatilityThresholds struct {
	ATRRatioMax   float64
	BBWidthPctMax float64
	HistVolPctMax float64
}
