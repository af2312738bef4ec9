package backtest

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"phemex-martingale-bot/internal/cfg"
	"phemex-martingale-bot/internal/engine"
	"phemex-martingale-bot/internal/indicator"
)

// Fill records one simulated order execution, for the Reporter.
type Fill struct {
	Index      int
	Side       cfg.Side
	Qty        decimal.Decimal
	Price      decimal.Decimal
	ReduceOnly bool
	Commission decimal.Decimal
}

// Simulator replays a historical candle series and fills every order at
// its requested limit price, crediting/debiting equity and commission
// immediately — a simplification appropriate to an averaging strategy
// whose orders rest passively rather than race the book (spec.md §1
// "replaces the exchange adapter with a simulator"). One Simulator
// tracks exactly one instrument's position and equity across the whole
// replay.
type Simulator struct {
	candles       []indicator.Candle
	cursor        int
	equity        decimal.Decimal
	position      engine.Position
	commissionPct decimal.Decimal
	leverage      int
	fills         []Fill
}

// NewSimulator seeds a Simulator with a full historical candle series
// and starting equity; cursor starts at the first index with enough
// trailing history for the slowest indicator (EMA-200).
func NewSimulator(candles []indicator.Candle, startingEquity decimal.Decimal, commissionPct decimal.Decimal) *Simulator {
	return &Simulator{
		candles:       candles,
		cursor:        200,
		equity:        startingEquity,
		commissionPct: commissionPct,
	}
}

// Done reports whether the replay has reached the end of the series.
func (s *Simulator) Done() bool {
	return s.cursor >= len(s.candles)
}

// Advance moves the replay cursor forward one candle.
func (s *Simulator) Advance() {
	s.cursor++
}

// Fills returns every simulated execution so far, for reporting.
func (s *Simulator) Fills() []Fill {
	return s.fills
}

func (s *Simulator) current() indicator.Candle {
	return s.candles[s.cursor]
}

// GetPosition implements workflow.Adapter.
func (s *Simulator) GetPosition(ctx context.Context, symbol string) (engine.Position, error) {
	return s.position, nil
}

// GetTicker implements workflow.Adapter. A simulated bid/ask spread of
// one tenth of one percent straddles the candle close.
func (s *Simulator) GetTicker(ctx context.Context, symbol string) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	last := s.current().Close
	spread := last.Mul(decimal.NewFromFloat(0.0005))
	return last.Sub(spread), last.Add(spread), last, nil
}

// GetCandles implements workflow.Adapter: the trailing `limit` candles
// ending at the replay cursor, oldest first.
func (s *Simulator) GetCandles(ctx context.Context, symbol string, intervalMinutes, limit int) ([]indicator.Candle, error) {
	start := s.cursor - limit + 1
	if start < 0 {
		start = 0
	}
	out := make([]indicator.Candle, s.cursor-start+1)
	copy(out, s.candles[start:s.cursor+1])
	return out, nil
}

// GetEquity implements workflow.Adapter: total equity minus the margin
// currently committed to the open position is available equity.
func (s *Simulator) GetEquity(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	available := s.equity.Sub(s.position.PositionMarginUsd)
	return s.equity, available, nil
}

// SetLeverage implements workflow.Adapter: recorded for use the next
// time an order opens the position.
func (s *Simulator) SetLeverage(ctx context.Context, symbol string, side cfg.Side, leverage int) error {
	s.leverage = leverage
	return nil
}

// CancelAllOpen implements workflow.Adapter. The simulator never leaves
// resting unfilled orders between ticks, so there is nothing to cancel.
func (s *Simulator) CancelAllOpen(ctx context.Context, symbol string) (int, error) {
	return 0, nil
}

// PlaceLimit implements workflow.Adapter: fills immediately at
// limitPrice and updates position/equity/commission bookkeeping.
func (s *Simulator) PlaceLimit(ctx context.Context, symbol string, side cfg.Side, qty, limitPrice decimal.Decimal, reduceOnly bool) (string, error) {
	if qty.Sign() <= 0 || limitPrice.Sign() <= 0 {
		return "", fmt.Errorf("backtest: invalid order qty=%s price=%s", qty, limitPrice)
	}

	commission := qty.Mul(limitPrice).Mul(s.commissionPct)
	s.equity = s.equity.Sub(commission)
	s.fills = append(s.fills, Fill{Index: s.cursor, Side: side, Qty: qty, Price: limitPrice, ReduceOnly: reduceOnly, Commission: commission})

	if reduceOnly {
		s.reduce(qty, limitPrice)
	} else {
		s.openOrAdd(side, qty, limitPrice)
	}
	return fmt.Sprintf("sim-%d", len(s.fills)), nil
}

// ClosePosition implements workflow.Adapter: fully exits at the current
// candle's close.
func (s *Simulator) ClosePosition(ctx context.Context, symbol string) error {
	if s.position.IsAbsent() {
		return nil
	}
	s.reduce(s.position.SizeContracts, s.current().Close)
	return nil
}

func (s *Simulator) openOrAdd(side cfg.Side, qty, price decimal.Decimal) {
	leverage := maxInt(s.leverage, 1)
	if s.position.IsAbsent() {
		s.position = engine.Position{
			Side: side, SizeContracts: qty, EntryPrice: price,
			Leverage:          leverage,
			PositionMarginUsd: qty.Mul(price).Div(decimal.NewFromInt(int64(leverage))),
			MaintenanceMargin: qty.Mul(price).Mul(decimal.NewFromFloat(0.005)),
		}
		return
	}

	totalQty := s.position.SizeContracts.Add(qty)
	weightedEntry := s.position.EntryPrice.Mul(s.position.SizeContracts).Add(price.Mul(qty)).Div(totalQty)
	addedMargin := qty.Mul(price).Div(decimal.NewFromInt(int64(s.position.Leverage)))

	s.position.SizeContracts = totalQty
	s.position.EntryPrice = weightedEntry
	s.position.PositionMarginUsd = s.position.PositionMarginUsd.Add(addedMargin)
	s.position.MaintenanceMargin = totalQty.Mul(weightedEntry).Mul(decimal.NewFromFloat(0.005))
	s.position.UnrealizedPnl = s.unrealizedPnl(price)
}

func (s *Simulator) reduce(qty, price decimal.Decimal) {
	if s.position.IsAbsent() {
		return
	}
	if qty.GreaterThan(s.position.SizeContracts) {
		qty = s.position.SizeContracts
	}

	realized := s.realizedPnl(qty, price)
	s.equity = s.equity.Add(realized)

	releasedMargin := s.position.PositionMarginUsd.Mul(qty).Div(s.position.SizeContracts)
	remaining := s.position.SizeContracts.Sub(qty)

	if remaining.IsZero() {
		s.position = engine.Position{}
		return
	}

	s.position.SizeContracts = remaining
	s.position.PositionMarginUsd = s.position.PositionMarginUsd.Sub(releasedMargin)
	s.position.MaintenanceMargin = remaining.Mul(s.position.EntryPrice).Mul(decimal.NewFromFloat(0.005))
	s.position.UnrealizedPnl = s.unrealizedPnl(s.current().Close)
}

func (s *Simulator) unrealizedPnl(price decimal.Decimal) decimal.Decimal {
	diff := price.Sub(s.position.EntryPrice)
	if s.position.Side == cfg.Short {
		diff = diff.Neg()
	}
	return diff.Mul(s.position.SizeContracts)
}

func (s *Simulator) realizedPnl(qty, price decimal.Decimal) decimal.Decimal {
	diff := price.Sub(s.position.EntryPrice)
	if s.position.Side == cfg.Short {
		diff = diff.Neg()
	}
	return diff.Mul(qty)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
