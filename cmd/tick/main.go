// Command tick is the entrypoint for one or more martingale-averaging
// ticks against Phemex: it loads configuration, wires the exchange
// adapter, alert sink, metrics, and audit store, then runs the workflow
// for every configured instrument — either once (for cron-style
// invocation) or on a repeating interval (for a long-running process),
// per spec.md §5's "two supported deployment shapes".
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"phemex-martingale-bot/internal/alert"
	"phemex-martingale-bot/internal/audit"
	"phemex-martingale-bot/internal/cfg"
	"phemex-martingale-bot/internal/common"
	"phemex-martingale-bot/internal/exchange/phemex"
	"phemex-martingale-bot/internal/indicator"
	"phemex-martingale-bot/internal/metrics"
	"phemex-martingale-bot/internal/workflow"
)

// circuitBreakerErrorRate is the error-rate threshold past which the
// per-tick CircuitBreaker suppresses new order placement (spec.md §6
// supplement, grounded on the teacher's exec.CircuitBreakerState).
const circuitBreakerErrorRate = 0.5

func main() {
	loop := flag.Bool("loop", false, "run ticks repeatedly at TICK_INTERVAL instead of exiting after one")
	parallel := flag.Bool("parallel", false, "process instruments concurrently within a tick")
	flag.Parse()

	settings, err := cfg.Load()
	if err != nil {
		log.Error().Err(err).Msg("configuration load failed")
		os.Exit(1)
	}

	m := metrics.New()

	client := phemex.New(settings.APIKey, settings.APISecret, settings.BaseURL, settings.RESTTimeout, settings.RateLimitRPS, settings.RateLimitBurst, m)

	sink := newSink(settings)

	var auditStore *audit.Store
	if settings.DataPath != "" {
		auditStore, err = audit.Open(settings.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("audit store initialization failed, continuing without persistence")
		} else {
			defer auditStore.Close()
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go serveMetrics(ctx, settings.MetricsPort)

	if settings.BotStartup {
		symbols := make([]string, len(settings.Instruments))
		for i, ic := range settings.Instruments {
			symbols[i] = ic.Symbol
		}
		sink.Started(alert.Started{Instruments: symbols, Testnet: settings.Testnet})
	}

	runOnce := func() {
		tickCtx, tickCancel := context.WithTimeout(ctx, settings.TickDeadline)
		defer tickCancel()
		runTick(tickCtx, settings, client, sink, auditStore, m, *parallel)
	}

	if !*loop {
		runOnce()
		return
	}

	ticker := time.NewTicker(settings.TickInterval)
	defer ticker.Stop()
	runOnce()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received, exiting loop")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runTick runs the workflow for every configured instrument once, using
// a fresh CircuitBreaker per tick (spec.md §6 supplement).
func runTick(ctx context.Context, settings cfg.Settings, client *phemex.Client, sink alert.Sink, auditStore *audit.Store, m *metrics.Metrics, parallel bool) {
	start := time.Now()
	defer func() { m.TickDurationSeconds.Observe(time.Since(start).Seconds()) }()

	m.TicksTotal.Inc()
	breaker := workflow.NewCircuitBreaker(circuitBreakerErrorRate)

	w := &workflow.Workflow{
		Adapter:    client,
		Sink:       sink,
		Audit:      auditStore,
		Metrics:    m,
		Breaker:    breaker,
		Thresholds: indicator.VolatilityThresholds{
			ATRRatioMax:   common.DefaultVolatilityATRRatio,
			BBWidthPctMax: common.DefaultVolatilityBBWidthPct,
			HistVolPctMax: common.DefaultVolatilityHistVol,
		},
	}

	run := func(ic cfg.InstrumentConfig) {
		outcome := w.RunInstrument(ctx, applySymbolOverrides(settings, ic))
		log.Info().Str("symbol", outcome.Symbol).Str("outcome", outcome.Outcome).
			Str("action", outcome.Action).Str("reason", outcome.Reason).Msg("tick outcome")
	}

	if !parallel {
		for _, ic := range settings.Instruments {
			run(ic)
		}
		return
	}

	var wg sync.WaitGroup
	for _, ic := range settings.Instruments {
		wg.Add(1)
		go func(ic cfg.InstrumentConfig) {
			defer wg.Done()
			run(ic)
		}(ic)
	}
	wg.Wait()
}

// applySymbolOverrides layers the per-symbol strategy override (if any)
// onto an instrument's defaults, per spec.md §6 supplement "per-symbol
// config overrides".
func applySymbolOverrides(settings cfg.Settings, ic cfg.InstrumentConfig) cfg.InstrumentConfig {
	sc := settings.GetSymbolConfig(ic)
	ic.ProfitPnlTarget = sc.ProfitPnlTarget
	ic.ProfitBalanceThreshold = sc.ProfitBalanceThreshold
	ic.PositionCeilingPct = sc.PositionCeilingPct
	ic.InitialEntryPct = sc.InitialEntryPct
	ic.AddTriggerDropPct = sc.AddTriggerDropPct
	ic.MaxMarginPct = sc.MaxMarginPct
	return ic
}

func newSink(settings cfg.Settings) alert.Sink {
	if settings.TelegramBotToken == "" || settings.TelegramChatID == 0 {
		return &alert.LogSink{}
	}
	telegramSink, err := alert.NewTelegramSink(settings.TelegramBotToken, settings.TelegramChatID)
	if err != nil {
		log.Warn().Err(err).Msg("telegram sink initialization failed, falling back to log-only alerts")
		return &alert.LogSink{}
	}
	return telegramSink
}

func serveMetrics(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server failed")
	}
}
