// Package engine implements the pure martingale-averaging decision core
// (spec.md §4.3). Decide is a deterministic function of its inputs: no
// I/O, no clock reads, no randomness — all of that lives in the Adapter
// below it (spec.md §3 "the engine is deterministic in its inputs").
package engine

import (
	"github.com/shopspring/decimal"

	"phemex-martingale-bot/internal/cfg"
	"phemex-martingale-bot/internal/indicator"
)

// Position is a tagged variant: a zero SizeContracts means "absent",
// matching spec.md §9's "dynamic-typed position dictionary" redesign note
// — callers never probe a separate boolean, they check IsAbsent().
type Position struct {
	Side               cfg.Side
	SizeContracts      decimal.Decimal
	EntryPrice         decimal.Decimal
	Leverage           int
	UnrealizedPnl      decimal.Decimal
	PositionMarginUsd  decimal.Decimal
	LiquidationPrice   decimal.NullDecimal
	MaintenanceMargin  decimal.Decimal
}

// IsAbsent reports whether there is effectively no position. Per spec.md
// §4.3 tie-break: stale data where sizeContracts != 0 but value is zero is
// also treated as absent.
func (p Position) IsAbsent() bool {
	if p.SizeContracts.IsZero() {
		return true
	}
	value := p.SizeContracts.Mul(p.EntryPrice)
	return value.IsZero()
}

// PositionValueUsd is size * entry price — the notional value of the
// position at entry.
func (p Position) PositionValueUsd() decimal.Decimal {
	return p.SizeContracts.Mul(p.EntryPrice)
}

// MarginLevel is the headroom-to-liquidation proxy spec.md §4.3 and §9
// fix as (positionMargin + unrealizedPnl) / maintenanceMargin.
func (p Position) MarginLevel() float64 {
	if p.MaintenanceMargin.IsZero() {
		return 0
	}
	level := p.PositionMarginUsd.Add(p.UnrealizedPnl).Div(p.MaintenanceMargin)
	f, _ := level.Float64()
	return f
}

// MarketSnapshot is the per-tick market state (spec.md §3).
type MarketSnapshot struct {
	BestBid decimal.Decimal
	BestAsk decimal.Decimal
	LastPrice decimal.Decimal
	EmaFast decimal.Decimal
	EmaSlow decimal.Decimal
	Volatility indicator.VolatilityReport
	Decline indicator.DeclineReport
}

// Account is the per-tick equity snapshot (spec.md §3).
type Account struct {
	TotalEquityUsd     decimal.Decimal
	AvailableEquityUsd decimal.Decimal
}

// MarginUsageFraction is positionMargin / totalEquity.
func (a Account) MarginUsageFraction(position Position) float64 {
	if a.TotalEquityUsd.IsZero() {
		return 0
	}
	f, _ := position.PositionMarginUsd.Div(a.TotalEquityUsd).Float64()
	return f
}

// ActionKind enumerates the ActionPlan tagged-union variants (spec.md §3).
type ActionKind int

const (
	NoOp ActionKind = iota
	OpenPosition
	AddToPosition
	ReducePosition
	ClosePosition
)

func (k ActionKind) String() string {
	switch k {
	case NoOp:
		return "none"
	case OpenPosition:
		return "open"
	case AddToPosition:
		return "add"
	case ReducePosition:
		return "reduce"
	case ClosePosition:
		return "close"
	default:
		return "unknown"
	}
}

// ActionPlan is the engine's sole output type: a tagged union over the
// five variants in spec.md §3. Only the fields relevant to Kind are
// populated. An AddToPosition is only built with a positive Quantity and
// FractionOfSize is always 0.5 or 0.33. The OpenPosition quantity and the
// limit prices of opens and adds are computed from the inputs without a
// positivity check, so a zero bid/ask yields a zero LimitPrice.
type ActionPlan struct {
	Kind ActionKind

	// OpenPosition / AddToPosition
	Side        cfg.Side
	Quantity    decimal.Decimal
	LimitPrice  decimal.Decimal
	Rationale   string

	// ReducePosition
	FractionOfSize float64

	// NoOp
	Reason string
}

func noOp(reason string) ActionPlan {
	return ActionPlan{Kind: NoOp, Reason: reason}
}
