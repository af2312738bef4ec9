package engine

import (
	"math"

	"github.com/shopspring/decimal"

	"phemex-martingale-bot/internal/cfg"
	"phemex-martingale-bot/internal/common"
)

// Decide implements the fixed-priority decision table of spec.md §4.3.
// It is a pure function: the same inputs always produce the same
// ActionPlan (spec.md §8 property 1), and all five branches are evaluated
// in order with the first match winning.
func Decide(config cfg.InstrumentConfig, position Position, market MarketSnapshot, account Account) ActionPlan {
	if account.TotalEquityUsd.Sign() <= 0 {
		return noOp("account has no equity")
	}

	absent := position.IsAbsent()

	if !absent {
		if plan, ok := marginCriticalOverride(config, position, market, account); ok {
			return plan
		}
		if position.UnrealizedPnl.IsPositive() {
			return manageProfitablePosition(config, position, account)
		}
		if plan, ok := addToLosingPosition(config, position, market, account); ok {
			return plan
		}
	} else if config.AutomaticMode {
		return openFromFlat(config, market, account)
	}

	return noOp("no applicable rule")
}

// marginCriticalOverride is spec.md §4.3 branch 1: liquidation protection
// beats every safety gate.
func marginCriticalOverride(config cfg.InstrumentConfig, position Position, market MarketSnapshot, account Account) (ActionPlan, bool) {
	if position.MarginLevel() < common.DefaultMarginCriticalLevel {
		qty := addSizeQty(position, config, market.LastPrice)
		if qty.Sign() <= 0 {
			return ActionPlan{}, false
		}
		return ActionPlan{
			Kind:       AddToPosition,
			Side:       position.Side,
			Quantity:   qty,
			LimitPrice: addLimitPrice(position.Side, market),
			Rationale:  "liquidation protection",
		}, true
	}
	return ActionPlan{}, false
}

// manageProfitablePosition is spec.md §4.3 branch 2: the reduce/close
// ladder applied once a position is sitting in profit.
func manageProfitablePosition(config cfg.InstrumentConfig, position Position, account Account) ActionPlan {
	positionFraction := account.MarginUsageFraction(position)

	pnlFractionOfMargin := 0.0
	if !position.PositionMarginUsd.IsZero() {
		pnlFractionOfMargin, _ = position.UnrealizedPnl.Div(position.PositionMarginUsd).Float64()
	}

	profitTriggerMet := pnlFractionOfMargin >= config.ProfitPnlTarget &&
		position.UnrealizedPnl.GreaterThanOrEqual(account.TotalEquityUsd.Mul(decimal.NewFromFloat(config.ProfitBalanceThreshold)))

	switch {
	case positionFraction > 0.10 && profitTriggerMet:
		return ActionPlan{Kind: ReducePosition, FractionOfSize: 0.5, Rationale: "profit target reached; position oversized, reducing by half"}
	case positionFraction > 0.075:
		return ActionPlan{Kind: ReducePosition, FractionOfSize: 0.33, Rationale: "position oversized relative to equity; partial reduce"}
	case profitTriggerMet:
		return ActionPlan{Kind: ClosePosition, Rationale: "profit target and balance threshold reached"}
	case pnlFractionOfMargin < config.ProfitPnlTarget:
		return noOp("profitable, below reduce/close thresholds")
	default:
		return noOp("profit below balance threshold")
	}
}

// addToLosingPosition is spec.md §4.3 branch 3.
func addToLosingPosition(config cfg.InstrumentConfig, position Position, market MarketSnapshot, account Account) (ActionPlan, bool) {
	if !trendAgainstPosition(position.Side, market) {
		return ActionPlan{}, false
	}
	if !dropPredicateMet(config, position, market) {
		return ActionPlan{}, false
	}
	if market.Volatility.IsHigh || market.Decline.IsDangerous {
		return ActionPlan{}, false
	}

	qty := addSizeQty(position, config, market.LastPrice)
	if qty.Sign() <= 0 {
		return ActionPlan{}, false
	}

	ceilingPct := config.PositionCeilingPct
	relaxed := market.Decline.IsSafe
	if relaxed {
		ceilingPct *= 1.5
	}

	addMargin := qty.Mul(market.LastPrice).Div(decimal.NewFromInt(int64(config.Leverage)))
	projectedMargin := position.PositionMarginUsd.Add(addMargin)
	projectedFraction := 0.0
	if !account.TotalEquityUsd.IsZero() {
		projectedFraction, _ = projectedMargin.Div(account.TotalEquityUsd).Float64()
	}

	if projectedFraction > ceilingPct {
		if !config.MaxMarginPct.Valid {
			return ActionPlan{}, false
		}
		maxMarginPct, _ := config.MaxMarginPct.Decimal.Float64()
		if maxMarginPct <= 0 {
			return ActionPlan{}, false
		}
		currentUsage := account.MarginUsageFraction(position)
		taper := math.Pow(clamp((maxMarginPct-currentUsage)/maxMarginPct, 0, 1), 2)
		if taper <= 0 {
			return ActionPlan{Kind: NoOp, Reason: "margin cap reached"}, true
		}
		qty = qty.Mul(decimal.NewFromFloat(taper))
		if qty.Sign() <= 0 {
			return ActionPlan{Kind: NoOp, Reason: "margin cap reached"}, true
		}
	}

	return ActionPlan{
		Kind:       AddToPosition,
		Side:       position.Side,
		Quantity:   qty,
		LimitPrice: addLimitPrice(position.Side, market),
		Rationale:  "martingale add: price against position beyond trigger",
	}, true
}

// openFromFlat is spec.md §4.3 branch 4.
func openFromFlat(config cfg.InstrumentConfig, market MarketSnapshot, account Account) ActionPlan {
	trendOK := false
	var reason string
	switch config.Side {
	case cfg.Long:
		trendOK = market.LastPrice.GreaterThan(market.EmaSlow)
		reason = "price below slow EMA; waiting for long trend"
	case cfg.Short:
		trendOK = market.LastPrice.LessThan(market.EmaSlow)
		reason = "price above slow EMA; waiting for short trend"
	}
	if !trendOK {
		return noOp(reason)
	}
	if market.Volatility.IsHigh {
		return noOp("volatility too high to open")
	}
	if market.Decline.IsDangerous {
		return noOp("decline velocity too dangerous to open")
	}

	equity := account.TotalEquityUsd
	qty := equity.Mul(decimal.NewFromFloat(config.InitialEntryPct)).
		Mul(decimal.NewFromInt(int64(config.Leverage))).
		Div(market.LastPrice)

	limit := market.BestBid
	if config.Side == cfg.Short {
		limit = market.BestAsk
	}

	return ActionPlan{
		Kind:       OpenPosition,
		Side:       config.Side,
		Quantity:   qty,
		LimitPrice: limit,
		Rationale:  "flat, trend and safety gates satisfied",
	}
}

// trendAgainstPosition is the branch-3 trend predicate: price has moved
// against the position relative to its fast EMA.
func trendAgainstPosition(positionSide cfg.Side, market MarketSnapshot) bool {
	switch positionSide {
	case cfg.Long:
		return market.LastPrice.LessThan(market.EmaFast)
	case cfg.Short:
		return market.LastPrice.GreaterThan(market.EmaFast)
	default:
		return false
	}
}

// dropPredicateMet checks the price has moved at least addTriggerDropPct
// against the entry.
func dropPredicateMet(config cfg.InstrumentConfig, position Position, market MarketSnapshot) bool {
	if position.EntryPrice.IsZero() {
		return false
	}
	var movePct float64
	switch position.Side {
	case cfg.Long:
		movePct, _ = position.EntryPrice.Sub(market.LastPrice).Div(position.EntryPrice).Float64()
	case cfg.Short:
		movePct, _ = market.LastPrice.Sub(position.EntryPrice).Div(position.EntryPrice).Float64()
	}
	return movePct >= config.AddTriggerDropPct
}

// addSizeQty implements the martingale add-sizing rule of spec.md §4.3:
// addQty = (positionValue * leverage * max(L, addTriggerDropPct)) / lastPrice
// where L = |unrealizedPnl| / positionValue.
func addSizeQty(position Position, config cfg.InstrumentConfig, lastPrice decimal.Decimal) decimal.Decimal {
	positionValue := position.PositionValueUsd()
	if positionValue.Sign() <= 0 || lastPrice.Sign() <= 0 {
		return decimal.Zero
	}
	lossFraction, _ := position.UnrealizedPnl.Abs().Div(positionValue).Float64()
	factor := math.Max(lossFraction, config.AddTriggerDropPct)

	return positionValue.
		Mul(decimal.NewFromInt(int64(config.Leverage))).
		Mul(decimal.NewFromFloat(factor)).
		Div(lastPrice)
}

// addLimitPrice: best bid for Long adds, best ask for Short adds (passive
// maker side), per spec.md §4.3.
func addLimitPrice(side cfg.Side, market MarketSnapshot) decimal.Decimal {
	if side == cfg.Short {
		return market.BestAsk
	}
	return market.BestBid
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
