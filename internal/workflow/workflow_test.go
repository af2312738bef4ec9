package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phemex-martingale-bot/internal/alert"
	"phemex-martingale-bot/internal/cfg"
	"phemex-martingale-bot/internal/engine"
	"phemex-martingale-bot/internal/indicator"
)

type fakeAdapter struct {
	position engine.Position
	bid, ask, last decimal.Decimal
	candles  []indicator.Candle
	equity, available decimal.Decimal

	cancelErr   error
	leverageErr error
	positionErr error
	tickerErr   error
	candlesErr  error
	equityErr   error
	placeErr    error
	closeErr    error

	placeCalls int
	closeCalls int
}

func (f *fakeAdapter) GetPosition(ctx context.Context, symbol string) (engine.Position, error) {
	return f.position, f.positionErr
}
func (f *fakeAdapter) GetTicker(ctx context.Context, symbol string) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	return f.bid, f.ask, f.last, f.tickerErr
}
func (f *fakeAdapter) GetCandles(ctx context.Context, symbol string, intervalMinutes, limit int) ([]indicator.Candle, error) {
	return f.candles, f.candlesErr
}
func (f *fakeAdapter) GetEquity(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	return f.equity, f.available, f.equityErr
}
func (f *fakeAdapter) SetLeverage(ctx context.Context, symbol string, side cfg.Side, leverage int) error {
	return f.leverageErr
}
func (f *fakeAdapter) CancelAllOpen(ctx context.Context, symbol string) (int, error) {
	return 0, f.cancelErr
}
func (f *fakeAdapter) PlaceLimit(ctx context.Context, symbol string, side cfg.Side, qty, limitPrice decimal.Decimal, reduceOnly bool) (string, error) {
	f.placeCalls++
	return "order-1", f.placeErr
}
func (f *fakeAdapter) ClosePosition(ctx context.Context, symbol string) error {
	f.closeCalls++
	return f.closeErr
}

type fakeSink struct {
	positionUpdates []alert.PositionUpdate
	executionErrors []alert.ExecutionError
	marginWarnings  []alert.MarginWarning
}

func (f *fakeSink) PositionUpdate(e alert.PositionUpdate)   { f.positionUpdates = append(f.positionUpdates, e) }
func (f *fakeSink) VolatilityHigh(alert.VolatilityHigh)      {}
func (f *fakeSink) DeclineVelocity(alert.DeclineVelocity)    {}
func (f *fakeSink) MarginWarning(e alert.MarginWarning)      { f.marginWarnings = append(f.marginWarnings, e) }
func (f *fakeSink) ExecutionError(e alert.ExecutionError)    { f.executionErrors = append(f.executionErrors, e) }
func (f *fakeSink) Started(alert.Started)                   {}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// risingCandles builds a monotonically-increasing close series long
// enough to satisfy every indicator's minimum window.
func risingCandles(n int, start float64) []indicator.Candle {
	candles := make([]indicator.Candle, n)
	price := start
	for i := range candles {
		price += 1
		candles[i] = indicator.Candle{
			Open: decimal.NewFromFloat(price - 1), High: decimal.NewFromFloat(price + 0.5),
			Low: decimal.NewFromFloat(price - 1.5), Close: decimal.NewFromFloat(price),
			Volume: decimal.NewFromInt(100),
		}
	}
	return candles
}

func baseConfig() cfg.InstrumentConfig {
	return cfg.InstrumentConfig{
		Symbol: "BTCUSDT", Side: cfg.Long, AutomaticMode: true,
		Leverage: 10, EmaIntervalMinutes: 1,
		ProfitPnlTarget: 0.10, ProfitBalanceThreshold: 0.003,
		PositionCeilingPct: 0.10, InitialEntryPct: 0.006, AddTriggerDropPct: 0.02,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRunInstrument_OpensFromFlat(t *testing.T) {
	adapter := &fakeAdapter{
		position: engine.Position{},
		bid:      dec("30000"), ask: dec("30001"), last: dec("30005"),
		candles:  risingCandles(300, 20000),
		equity:   dec("100000"), available: dec("100000"),
	}
	sink := &fakeSink{}
	w := &Workflow{Adapter: adapter, Sink: sink, Thresholds: indicator.VolatilityThresholds{ATRRatioMax: 100, BBWidthPctMax: 100, HistVolPctMax: 100}, Clock: fixedClock(time.Unix(0, 0))}

	outcome := w.RunInstrument(context.Background(), baseConfig())

	require.Equal(t, "managed", outcome.Outcome)
	assert.Equal(t, "open", outcome.Action)
	assert.Equal(t, 1, adapter.placeCalls)
	assert.Len(t, sink.positionUpdates, 1)
	assert.Equal(t, alert.Opened, sink.positionUpdates[0].Action)
}

func TestRunInstrument_PrepareFailureIsolatesInstrument(t *testing.T) {
	adapter := &fakeAdapter{cancelErr: errors.New("exchange unreachable")}
	sink := &fakeSink{}
	w := &Workflow{Adapter: adapter, Sink: sink, Clock: fixedClock(time.Unix(0, 0))}

	outcome := w.RunInstrument(context.Background(), baseConfig())

	assert.Equal(t, "error", outcome.Outcome)
	require.Len(t, sink.executionErrors, 1)
	assert.Equal(t, "prepare", sink.executionErrors[0].Stage)
	assert.Equal(t, 0, adapter.placeCalls)
}

func TestRunInstrument_InsufficientDataSkipsWithoutError(t *testing.T) {
	adapter := &fakeAdapter{
		position: engine.Position{},
		bid:      dec("30000"), ask: dec("30001"), last: dec("30005"),
		candles:  risingCandles(5, 20000),
		equity:   dec("100000"), available: dec("100000"),
	}
	sink := &fakeSink{}
	w := &Workflow{Adapter: adapter, Sink: sink, Clock: fixedClock(time.Unix(0, 0))}

	outcome := w.RunInstrument(context.Background(), baseConfig())

	assert.Equal(t, "skipped", outcome.Outcome)
	assert.Empty(t, sink.executionErrors)
}

func TestRunInstrument_RelevanceGateSkipsHealthyHeldPosition(t *testing.T) {
	candles := risingCandles(300, 20000)
	position := engine.Position{
		Side: cfg.Long, SizeContracts: dec("1"), EntryPrice: dec("30010"),
		Leverage: 10, UnrealizedPnl: dec("-5"),
		PositionMarginUsd: dec("3001"), MaintenanceMargin: dec("10"),
	}
	adapter := &fakeAdapter{
		position: position,
		bid:      dec("30200"), ask: dec("30201"), last: dec("30205"),
		candles:  candles,
		equity:   dec("100000"), available: dec("100000"),
	}
	sink := &fakeSink{}
	w := &Workflow{Adapter: adapter, Sink: sink, Thresholds: indicator.VolatilityThresholds{ATRRatioMax: 100, BBWidthPctMax: 100, HistVolPctMax: 100}, Clock: fixedClock(time.Unix(0, 0))}

	outcome := w.RunInstrument(context.Background(), baseConfig())

	assert.Equal(t, "skipped", outcome.Outcome)
	assert.Equal(t, 0, adapter.placeCalls)
}

func TestRunInstrument_MarginCriticalTriggersAdd(t *testing.T) {
	candles := risingCandles(300, 20000)
	position := engine.Position{
		Side: cfg.Long, SizeContracts: dec("1"), EntryPrice: dec("30010"),
		Leverage: 10, UnrealizedPnl: dec("-8"),
		PositionMarginUsd: dec("10"), MaintenanceMargin: dec("10"),
	}
	adapter := &fakeAdapter{
		position: position,
		bid:      dec("29000"), ask: dec("29001"), last: dec("29005"),
		candles:  candles,
		equity:   dec("100000"), available: dec("100000"),
	}
	sink := &fakeSink{}
	w := &Workflow{Adapter: adapter, Sink: sink, Thresholds: indicator.VolatilityThresholds{ATRRatioMax: 100, BBWidthPctMax: 100, HistVolPctMax: 100}, Clock: fixedClock(time.Unix(0, 0))}

	outcome := w.RunInstrument(context.Background(), baseConfig())

	require.Equal(t, "managed", outcome.Outcome)
	assert.Equal(t, "add", outcome.Action)
	assert.Equal(t, 1, adapter.placeCalls)
}

func TestRunInstrument_ExecuteFailureReportsErrorOutcome(t *testing.T) {
	adapter := &fakeAdapter{
		position: engine.Position{},
		bid:      dec("30000"), ask: dec("30001"), last: dec("30005"),
		candles:  risingCandles(300, 20000),
		equity:   dec("100000"), available: dec("100000"),
		placeErr: errors.New("rejected"),
	}
	sink := &fakeSink{}
	w := &Workflow{Adapter: adapter, Sink: sink, Thresholds: indicator.VolatilityThresholds{ATRRatioMax: 100, BBWidthPctMax: 100, HistVolPctMax: 100}, Clock: fixedClock(time.Unix(0, 0))}

	outcome := w.RunInstrument(context.Background(), baseConfig())

	assert.Equal(t, "error", outcome.Outcome)
	require.Len(t, sink.executionErrors, 1)
	assert.Equal(t, "execute", sink.executionErrors[0].Stage)
}

func TestRunInstrument_OneInstrumentFailureDoesNotAffectAnother(t *testing.T) {
	failing := &fakeAdapter{cancelErr: errors.New("down")}
	healthy := &fakeAdapter{
		position: engine.Position{},
		bid:      dec("30000"), ask: dec("30001"), last: dec("30005"),
		candles:  risingCandles(300, 20000),
		equity:   dec("100000"), available: dec("100000"),
	}
	sink := &fakeSink{}
	w1 := &Workflow{Adapter: failing, Sink: sink, Clock: fixedClock(time.Unix(0, 0))}
	w2 := &Workflow{Adapter: healthy, Sink: sink, Thresholds: indicator.VolatilityThresholds{ATRRatioMax: 100, BBWidthPctMax: 100, HistVolPctMax: 100}, Clock: fixedClock(time.Unix(0, 0))}

	outcome1 := w1.RunInstrument(context.Background(), baseConfig())
	outcome2 := w2.RunInstrument(context.Background(), cfg.InstrumentConfig{
		Symbol: "ETHUSDT", Side: cfg.Long, AutomaticMode: true,
		Leverage: 10, EmaIntervalMinutes: 1,
		ProfitPnlTarget: 0.10, ProfitBalanceThreshold: 0.003,
		PositionCeilingPct: 0.10, InitialEntryPct: 0.006, AddTriggerDropPct: 0.02,
	})

	assert.Equal(t, "error", outcome1.Outcome)
	assert.Equal(t, "managed", outcome2.Outcome)
	assert.Equal(t, 1, healthy.placeCalls)
}
