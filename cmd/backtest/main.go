// Command backtest replays one instrument's historical candles through
// the same workflow.Workflow the live tick entrypoint uses, substituting
// backtest.Simulator for the Phemex adapter (spec.md §1: the simulator
// "consumes the same strategy interface but replaces the exchange
// adapter"). It is a standalone diagnostic tool, not part of the
// production deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"phemex-martingale-bot/internal/alert"
	"phemex-martingale-bot/internal/backtest"
	"phemex-martingale-bot/internal/cfg"
	"phemex-martingale-bot/internal/common"
	"phemex-martingale-bot/internal/indicator"
	"phemex-martingale-bot/internal/workflow"
)

func main() {
	csvPath := flag.String("candles", "", "path to a CSV of historical OHLCV candles")
	symbol := flag.String("symbol", "BTCUSD", "instrument symbol to replay")
	side := flag.String("side", string(cfg.Long), "position side: Long or Short")
	automatic := flag.Bool("automatic", true, "run in automatic-reentry mode")
	equity := flag.Float64("equity", 10000, "starting equity in USD")
	commissionPct := flag.Float64("commission", 0.0006, "taker commission rate, e.g. 0.0006 for 6bps")
	reportPath := flag.String("report", "backtest-report.txt", "path to write the summary report")
	maxMarginPct := flag.Float64("max-margin-pct", 0, "optional margin-usage cap driving the taper branch; 0 disables it")
	flag.Parse()

	if *csvPath == "" {
		log.Error().Msg("candles: -candles is required")
		os.Exit(1)
	}

	records, err := backtest.LoadCandlesCSV(*csvPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load candles")
		os.Exit(1)
	}
	candles := make([]indicator.Candle, len(records))
	for i, r := range records {
		candles[i] = r.Candle
	}
	if len(candles) < 201 {
		log.Error().Int("count", len(candles)).Msg("need at least 201 candles for the slowest indicator's warmup")
		os.Exit(1)
	}

	startingEquity := decimal.NewFromFloat(*equity)
	sim := backtest.NewSimulator(candles, startingEquity, decimal.NewFromFloat(*commissionPct))

	instrument := cfg.InstrumentConfig{
		Symbol:                 *symbol,
		Side:                   cfg.Side(*side),
		AutomaticMode:          *automatic,
		Leverage:               common.DefaultLeverage,
		EmaIntervalMinutes:     common.DefaultEmaIntervalMinutes,
		ProfitPnlTarget:        common.DefaultProfitPnlTarget,
		ProfitBalanceThreshold: common.DefaultProfitBalanceThreshold,
		PositionCeilingPct:     common.DefaultPositionCeilingPct,
		InitialEntryPct:        common.DefaultInitialEntryPct,
		AddTriggerDropPct:      common.DefaultAddTriggerDropPct,
	}
	if *maxMarginPct > 0 {
		instrument.MaxMarginPct = decimal.NullDecimal{Decimal: decimal.NewFromFloat(*maxMarginPct), Valid: true}
	}

	w := &workflow.Workflow{
		Adapter: sim,
		Sink:    &alert.LogSink{},
		Thresholds: indicator.VolatilityThresholds{
			ATRRatioMax:   common.DefaultVolatilityATRRatio,
			BBWidthPctMax: common.DefaultVolatilityBBWidthPct,
			HistVolPctMax: common.DefaultVolatilityHistVol,
		},
	}

	ctx := context.Background()
	ticks := 0
	for !sim.Done() {
		outcome := w.RunInstrument(ctx, instrument)
		ticks++
		if outcome.Outcome == "error" {
			log.Warn().Str("reason", outcome.Reason).Int("tick", ticks).Msg("replay tick reported an error")
		}
		sim.Advance()
	}

	results := backtest.Summarize(sim, startingEquity)
	if err := results.WriteSummary(*reportPath); err != nil {
		log.Error().Err(err).Msg("failed to write report")
		os.Exit(1)
	}

	fmt.Printf("replay complete: %d ticks, final equity %s, report written to %s\n",
		ticks, results.FinalEquity.StringFixed(2), *reportPath)
}
