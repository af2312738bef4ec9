package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"phemex-martingale-bot/internal/alert"
	"phemex-martingale-bot/internal/audit"
	"phemex-martingale-bot/internal/cfg"
	"phemex-martingale-bot/internal/common"
	"phemex-martingale-bot/internal/engine"
	"phemex-martingale-bot/internal/indicator"
	"phemex-martingale-bot/internal/metrics"
)

const (
	emaFastPeriod = 50
	emaSlowPeriod = 200
	candleLimit   = emaSlowPeriod * 3
)

// Workflow is the per-instrument, per-tick orchestrator (spec.md §4.4).
// One Workflow is shared across every instrument in a tick; the Adapter
// and Sink it wraps must be safe for concurrent use if instruments are
// run in parallel (spec.md §5).
type Workflow struct {
	Adapter    Adapter
	Sink       alert.Sink
	Audit      *audit.Store     // optional; nil disables audit persistence
	Metrics    *metrics.Metrics // optional; nil disables metrics
	Breaker    *CircuitBreaker  // optional; nil disables the error-rate breaker
	Thresholds indicator.VolatilityThresholds
	Clock      func() time.Time
}

// Outcome is the result of running one instrument through the workflow:
// the symbol, outcome, action and reason fields of the structured log
// record (spec.md §6); the record's numeric fields are only logged.
type Outcome struct {
	Symbol  string
	Outcome string // managed, skipped, error
	Action  string
	Reason  string
}

func (w *Workflow) now() time.Time {
	if w.Clock != nil {
		return w.Clock()
	}
	return time.Now()
}

// RunInstrument executes the full prepare→gather→gate→decide→execute→
// alert→log sequence for one instrument. It never returns an error to
// the caller: every failure is caught at this boundary and reflected only
// in the returned Outcome. Insufficient indicator data yields a "skipped"
// Outcome with no alert; every other failure is turned into an
// ExecutionError alert and an "error" Outcome, so
// one instrument's failure cannot abort the tick (spec.md §4.4 "Failure
// semantics").
func (w *Workflow) RunInstrument(ctx context.Context, config cfg.InstrumentConfig) Outcome {
	if _, err := w.Adapter.CancelAllOpen(ctx, config.Symbol); err != nil {
		return w.fail(config.Symbol, "prepare", err)
	}
	if err := w.Adapter.SetLeverage(ctx, config.Symbol, config.Side, config.Leverage); err != nil {
		return w.fail(config.Symbol, "prepare", err)
	}

	position, market, account, err := w.gather(ctx, config)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientData) {
			return w.skip(config.Symbol, "insufficient data for indicators", position, market, account)
		}
		return w.fail(config.Symbol, "gather", err)
	}

	if reason, skip := relevanceGate(config, position, market); skip {
		return w.skip(config.Symbol, reason, position, market, account)
	}

	plan := engine.Decide(config, position, market, account)
	if w.Metrics != nil {
		w.Metrics.ActionsByKind.WithLabelValues(config.Symbol, plan.Kind.String()).Inc()
	}

	if plan.Kind == engine.NoOp {
		return w.skip(config.Symbol, plan.Reason, position, market, account)
	}

	if w.Breaker != nil && w.Breaker.Tripped() {
		w.notify(config.Symbol, alert.ExecutionError{
			Symbol: config.Symbol, Stage: "execute", ErrorKind: "CircuitBreakerOpen",
			Message: "execution error rate exceeded threshold; suppressing new orders for the rest of this tick",
		})
		return w.skip(config.Symbol, "circuit breaker open", position, market, account)
	}

	if err := w.execute(ctx, config, position, market, plan); err != nil {
		if w.Breaker != nil {
			w.Breaker.RecordAttempt(true)
		}
		return w.fail(config.Symbol, "execute", err)
	}
	if w.Breaker != nil {
		w.Breaker.RecordAttempt(false)
	}

	w.alertOnOutcome(ctx, config, position, market, account, plan)
	return w.manage(config.Symbol, plan, position, market, account)
}

func (w *Workflow) gather(ctx context.Context, config cfg.InstrumentConfig) (engine.Position, engine.MarketSnapshot, engine.Account, error) {
	position, err := w.Adapter.GetPosition(ctx, config.Symbol)
	if err != nil {
		return engine.Position{}, engine.MarketSnapshot{}, engine.Account{}, err
	}

	bestBid, bestAsk, lastPrice, err := w.Adapter.GetTicker(ctx, config.Symbol)
	if err != nil {
		return engine.Position{}, engine.MarketSnapshot{}, engine.Account{}, err
	}

	candles, err := w.Adapter.GetCandles(ctx, config.Symbol, config.EmaIntervalMinutes, candleLimit)
	if err != nil {
		return engine.Position{}, engine.MarketSnapshot{}, engine.Account{}, err
	}

	totalEquity, availableEquity, err := w.Adapter.GetEquity(ctx)
	if err != nil {
		return engine.Position{}, engine.MarketSnapshot{}, engine.Account{}, err
	}

	closes := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	emaFast, err := indicator.EMA(closes, emaFastPeriod)
	if err != nil {
		return engine.Position{}, engine.MarketSnapshot{}, engine.Account{}, err
	}
	emaSlow, err := indicator.EMA(closes, emaSlowPeriod)
	if err != nil {
		return engine.Position{}, engine.MarketSnapshot{}, engine.Account{}, err
	}
	volatility, err := indicator.Volatility(candles, config.EmaIntervalMinutes, w.Thresholds)
	if err != nil {
		return engine.Position{}, engine.MarketSnapshot{}, engine.Account{}, err
	}
	decline, err := indicator.Decline(candles)
	if err != nil {
		return engine.Position{}, engine.MarketSnapshot{}, engine.Account{}, err
	}

	market := engine.MarketSnapshot{
		BestBid: bestBid, BestAsk: bestAsk, LastPrice: lastPrice,
		EmaFast: emaFast, EmaSlow: emaSlow,
		Volatility: volatility, Decline: decline,
	}
	account := engine.Account{TotalEquityUsd: totalEquity, AvailableEquityUsd: availableEquity}

	return position, market, account, nil
}

// relevanceGate implements spec.md §4.4 step 3: a cheap prefilter that
// skips the majority of ticks without invoking the engine. It is an
// optimization, not a source of truth — engine.Decide remains
// authoritative for every case that reaches it.
func relevanceGate(config cfg.InstrumentConfig, position engine.Position, market engine.MarketSnapshot) (reason string, skip bool) {
	if position.IsAbsent() {
		trendOK := (config.Side == cfg.Long && market.LastPrice.GreaterThan(market.EmaSlow)) ||
			(config.Side == cfg.Short && market.LastPrice.LessThan(market.EmaSlow))
		if !trendOK && !config.AutomaticMode {
			return "waiting for trend", true
		}
		return "", false
	}

	healthyMargin := position.MarginLevel() >= common.DefaultMarginCriticalLevel
	trendAligned := (position.Side == cfg.Long && market.LastPrice.GreaterThanOrEqual(market.EmaFast)) ||
		(position.Side == cfg.Short && market.LastPrice.LessThanOrEqual(market.EmaFast))
	profitTriggerPossible := position.UnrealizedPnl.IsPositive()

	if healthyMargin && trendAligned && !profitTriggerPossible {
		return "holding; nothing to do", true
	}
	return "", false
}

func (w *Workflow) execute(ctx context.Context, config cfg.InstrumentConfig, position engine.Position, market engine.MarketSnapshot, plan engine.ActionPlan) error {
	switch plan.Kind {
	case engine.OpenPosition, engine.AddToPosition:
		_, err := w.Adapter.PlaceLimit(ctx, config.Symbol, plan.Side, plan.Quantity, plan.LimitPrice, false)
		return err
	case engine.ReducePosition:
		qty := position.SizeContracts.Mul(decimal.NewFromFloat(plan.FractionOfSize))
		_, err := w.Adapter.PlaceLimit(ctx, config.Symbol, position.Side.Opposite(), qty, reduceLimitPrice(position.Side, market), true)
		return err
	case engine.ClosePosition:
		return w.Adapter.ClosePosition(ctx, config.Symbol)
	default:
		return nil
	}
}

// reduceLimitPrice picks the passive resting price for a reduce order:
// selling out of a Long rests at the ask, buying back a Short rests at
// the bid — the mirror image of addLimitPrice's entry-side passive
// quoting.
func reduceLimitPrice(positionSide cfg.Side, market engine.MarketSnapshot) decimal.Decimal {
	if positionSide == cfg.Long {
		return market.BestAsk
	}
	return market.BestBid
}

func (w *Workflow) alertOnOutcome(ctx context.Context, config cfg.InstrumentConfig, preSnapshot engine.Position, market engine.MarketSnapshot, account engine.Account, plan engine.ActionPlan) {
	action := positionAction(plan.Kind)
	if action != "" {
		post, err := w.Adapter.GetPosition(ctx, config.Symbol)
		if err != nil {
			log.Warn().Str("symbol", config.Symbol).Err(err).Msg("post-action position fetch failed")
		} else {
			postValue := post.PositionValueUsd()
			pctOfEquity := 0.0
			if !account.TotalEquityUsd.IsZero() {
				pctOfEquity, _ = postValue.Div(account.TotalEquityUsd).Float64()
			}
			w.notify(config.Symbol, alert.PositionUpdate{
				Symbol: config.Symbol, Action: action, Side: string(plan.Side),
				Qty: plan.Quantity, Price: plan.LimitPrice,
				PostSizeContracts: post.SizeContracts, PostValueUsd: postValue,
				PostPctOfEquity: pctOfEquity, Equity: account.TotalEquityUsd,
			})
		}
	}

	if market.Volatility.IsHigh {
		w.notify(config.Symbol, alert.VolatilityHigh{
			Symbol: config.Symbol, ATRRatio: market.Volatility.ATRRatio,
			BBWidthPct: market.Volatility.BBWidthPct, HistVolPct: market.Volatility.HistoricalVolPct,
		})
	}
	if market.Decline.IsDangerous {
		w.notify(config.Symbol, alert.DeclineVelocity{
			Symbol: config.Symbol, Kind: market.Decline.Kind.String(), Score: market.Decline.VelocityScore,
			RocShort: market.Decline.RocShort, RocMedium: market.Decline.RocMedium,
		})
	}
	if !preSnapshot.IsAbsent() && preSnapshot.MarginLevel() < common.DefaultMarginWarningLevel {
		w.notify(config.Symbol, alert.MarginWarning{
			Symbol: config.Symbol, MarginLevel: preSnapshot.MarginLevel(),
			Equity: account.TotalEquityUsd, PositionValueUsd: preSnapshot.PositionValueUsd(),
		})
	}
}

func positionAction(kind engine.ActionKind) alert.PositionAction {
	switch kind {
	case engine.OpenPosition:
		return alert.Opened
	case engine.AddToPosition:
		return alert.Added
	case engine.ReducePosition:
		return alert.Reduced
	case engine.ClosePosition:
		return alert.Closed
	default:
		return ""
	}
}

func (w *Workflow) notify(symbol string, event any) {
	switch e := event.(type) {
	case alert.PositionUpdate:
		w.Sink.PositionUpdate(e)
	case alert.VolatilityHigh:
		w.Sink.VolatilityHigh(e)
	case alert.DeclineVelocity:
		w.Sink.DeclineVelocity(e)
	case alert.MarginWarning:
		w.Sink.MarginWarning(e)
	case alert.ExecutionError:
		w.Sink.ExecutionError(e)
	}
	if w.Audit != nil {
		if err := w.Audit.AppendAlert(symbol, alertKind(event), event); err != nil {
			log.Warn().Err(err).Msg("audit append failed")
			if w.Metrics != nil {
				w.Metrics.AlertFailures.Inc()
			}
		}
	}
}

func alertKind(event any) string {
	switch event.(type) {
	case alert.PositionUpdate:
		return "position_update"
	case alert.VolatilityHigh:
		return "volatility_high"
	case alert.DeclineVelocity:
		return "decline_velocity"
	case alert.MarginWarning:
		return "margin_warning"
	case alert.ExecutionError:
		return "execution_error"
	default:
		return "unknown"
	}
}

func (w *Workflow) fail(symbol, stage string, err error) Outcome {
	w.Sink.ExecutionError(alert.ExecutionError{
		Symbol: symbol, Stage: stage, ErrorKind: errorKind(err), Message: err.Error(),
	})
	w.logOutcome(symbol, "error", "none", err.Error(), engine.Position{}, engine.MarketSnapshot{}, engine.Account{})
	if w.Metrics != nil {
		w.Metrics.InstrumentsByOutcome.WithLabelValues(symbol, "error").Inc()
	}
	return Outcome{Symbol: symbol, Outcome: "error", Action: "none", Reason: err.Error()}
}

func (w *Workflow) skip(symbol, reason string, position engine.Position, market engine.MarketSnapshot, account engine.Account) Outcome {
	w.logOutcome(symbol, "skipped", "none", reason, position, market, account)
	if w.Metrics != nil {
		w.Metrics.InstrumentsByOutcome.WithLabelValues(symbol, "skipped").Inc()
	}
	return Outcome{Symbol: symbol, Outcome: "skipped", Action: "none", Reason: reason}
}

func (w *Workflow) manage(symbol string, plan engine.ActionPlan, position engine.Position, market engine.MarketSnapshot, account engine.Account) Outcome {
	w.logOutcome(symbol, "managed", plan.Kind.String(), plan.Rationale, position, market, account)
	if w.Metrics != nil {
		w.Metrics.InstrumentsByOutcome.WithLabelValues(symbol, "managed").Inc()
	}
	return Outcome{Symbol: symbol, Outcome: "managed", Action: plan.Kind.String(), Reason: plan.Rationale}
}

func (w *Workflow) logOutcome(symbol, outcome, action, reason string, position engine.Position, market engine.MarketSnapshot, account engine.Account) {
	record := audit.OutcomeRecord{
		Timestamp: w.now(), Symbol: symbol, Outcome: outcome, Action: action, Reason: reason,
		Price: market.LastPrice.String(), PositionSizeContracts: position.SizeContracts.String(),
		PositionValueUsd: position.PositionValueUsd().String(), Equity: account.TotalEquityUsd.String(),
		UnrealizedPnl: position.UnrealizedPnl.String(), MarginLevel: position.MarginLevel(),
		VolatilityHigh: market.Volatility.IsHigh, DeclineKind: market.Decline.Kind.String(),
	}
	log.Info().
		Time("timestamp", record.Timestamp).
		Str("symbol", symbol).Str("outcome", outcome).Str("action", action).Str("reason", reason).
		Str("price", record.Price).Str("positionSizeContracts", record.PositionSizeContracts).
		Str("positionValueUsd", record.PositionValueUsd).Str("equity", record.Equity).
		Str("unrealizedPnl", record.UnrealizedPnl).Float64("marginLevel", record.MarginLevel).
		Bool("volatilityHigh", record.VolatilityHigh).Str("declineKind", record.DeclineKind).
		Msg("instrument outcome")

	if w.Audit != nil {
		if err := w.Audit.AppendOutcome(record); err != nil {
			log.Warn().Err(err).Msg("audit append failed")
		}
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, indicator.ErrInsufficientData):
		return "InsufficientData"
	default:
		return "Unknown"
	}
}
