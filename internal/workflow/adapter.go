// Package workflow implements the per-instrument, per-tick orchestrator
// (spec.md §4.4): prepare, gather, relevance gate, decide, execute,
// alert, and structured log, in that strict sequential order.
package workflow

import (
	"context"

	"github.com/shopspring/decimal"

	"phemex-martingale-bot/internal/cfg"
	"phemex-martingale-bot/internal/engine"
	"phemex-martingale-bot/internal/indicator"
)

// Adapter is the exchange-facing boundary the Workflow drives. Both
// phemex.Client and the backtest simulator implement it, so the
// Workflow is agnostic to which one is wired in (spec.md §1: the
// backtesting driver "consumes the same strategy interface but replaces
// the exchange adapter with a simulator").
type Adapter interface {
	GetPosition(ctx context.Context, symbol string) (engine.Position, error)
	// GetTicker returns (bestBid, bestAsk, lastPrice) per spec.md §4.1.
	GetTicker(ctx context.Context, symbol string) (bestBid, bestAsk, lastPrice decimal.Decimal, err error)
	GetCandles(ctx context.Context, symbol string, intervalMinutes, limit int) ([]indicator.Candle, error)
	GetEquity(ctx context.Context) (total, available decimal.Decimal, err error)
	SetLeverage(ctx context.Context, symbol string, side cfg.Side, leverage int) error
	CancelAllOpen(ctx context.Context, symbol string) (int, error)
	PlaceLimit(ctx context.Context, symbol string, side cfg.Side, qty, limitPrice decimal.Decimal, reduceOnly bool) (string, error)
	ClosePosition(ctx context.Context, symbol string) error
}
