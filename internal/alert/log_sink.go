package alert

import "github.com/rs/zerolog/log"

// LogSink logs every event instead of notifying a human: margin warnings
// at warn level, execution errors at error level, everything else at info.
// Used when no Telegram credentials are configured, so the Workflow
// always has a Sink to call without a nil check at every call site.
type LogSink struct{}

func (LogSink) PositionUpdate(e PositionUpdate) {
	log.Info().Str("symbol", e.Symbol).Str("action", string(e.Action)).
		Str("side", e.Side).Str("qty", e.Qty.String()).Str("price", e.Price.String()).
		Msg("position update")
}

func (LogSink) VolatilityHigh(e VolatilityHigh) {
	log.Info().Str("symbol", e.Symbol).Float64("atrRatio", e.ATRRatio).
		Float64("bbWidthPct", e.BBWidthPct).Float64("histVolPct", e.HistVolPct).
		Msg("volatility high")
}

func (LogSink) DeclineVelocity(e DeclineVelocity) {
	log.Info().Str("symbol", e.Symbol).Str("kind", e.Kind).Float64("score", e.Score).
		Msg("decline velocity")
}

func (LogSink) MarginWarning(e MarginWarning) {
	log.Warn().Str("symbol", e.Symbol).Float64("marginLevel", e.MarginLevel).
		Msg("margin warning")
}

func (LogSink) ExecutionError(e ExecutionError) {
	log.Error().Str("symbol", e.Symbol).Str("stage", e.Stage).Str("kind", e.ErrorKind).
		Str("message", e.Message).Msg("execution error")
}

func (LogSink) Started(e Started) {
	log.Info().Strs("instruments", e.Instruments).Bool("testnet", e.Testnet).Msg("bot started")
}
