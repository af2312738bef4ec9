// Package alert defines the one-way outbound notification contract
// (spec.md §4.5 "Alert Sink") and its implementations. The sink is
// best-effort: a failed notification is logged but never fails the tick.
package alert

import "github.com/shopspring/decimal"

// PositionAction names which lifecycle transition a PositionUpdate
// event reports.
type PositionAction string

const (
	Opened  PositionAction = "Opened"
	Added   PositionAction = "Added"
	Reduced PositionAction = "Reduced"
	Closed  PositionAction = "Closed"
)

// PositionUpdate reports a completed Open/Add/Reduce/Close action with
// the post-action position snapshot (spec.md §4.5).
type PositionUpdate struct {
	Symbol          string
	Action          PositionAction
	Side            string
	Qty             decimal.Decimal
	Price           decimal.Decimal
	PostSizeContracts decimal.Decimal
	PostValueUsd    decimal.Decimal
	PostPctOfEquity float64
	Equity          decimal.Decimal
}

// VolatilityHigh reports that the volatility classifier flagged a
// symbol as high-volatility.
type VolatilityHigh struct {
	Symbol     string
	ATRRatio   float64
	BBWidthPct float64
	HistVolPct float64
}

// DeclineVelocity reports a dangerous decline-velocity classification.
type DeclineVelocity struct {
	Symbol    string
	Kind      string
	Score     float64
	RocShort  float64
	RocMedium float64
}

// MarginWarning reports marginLevel dropping below the warning
// threshold (1.5, spec.md §4.4).
type MarginWarning struct {
	Symbol           string
	MarginLevel      float64
	Equity           decimal.Decimal
	PositionValueUsd decimal.Decimal
}

// ExecutionError reports a non-retryable or retry-exhausted failure at
// a named stage.
type ExecutionError struct {
	Symbol    string
	Stage     string
	ErrorKind string
	Message   string
}

// Started reports process startup, gated by the BOT_STARTUP config flag.
type Started struct {
	Instruments []string
	Testnet     bool
}

// Sink is the outbound notification contract. Every method is
// best-effort: implementations log their own failures rather than
// returning an error that could abort a tick.
type Sink interface {
	PositionUpdate(PositionUpdate)
	VolatilityHigh(VolatilityHigh)
	DeclineVelocity(DeclineVelocity)
	MarginWarning(MarginWarning)
	ExecutionError(ExecutionError)
	Started(Started)
}
