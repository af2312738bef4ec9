package alert

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// TelegramSink sends every event as a formatted chat message. Grounded
// on polybot's bot.TelegramBot: a thin wrapper around tgbotapi.BotAPI
// with no retry — a send failure is logged and dropped.
type TelegramSink struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSink authenticates against the Telegram Bot API using
// token and targets chatID for every message.
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram sink: %w", err)
	}
	return &TelegramSink{api: api, chatID: chatID}, nil
}

func (t *TelegramSink) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("telegram send failed")
	}
}

func (t *TelegramSink) PositionUpdate(e PositionUpdate) {
	t.send(fmt.Sprintf("%s %s %s qty=%s price=%s postSize=%s postValue=%s (%.2f%% of equity) equity=%s",
		e.Symbol, e.Action, e.Side, e.Qty.String(), e.Price.String(),
		e.PostSizeContracts.String(), e.PostValueUsd.String(), e.PostPctOfEquity*100, e.Equity.String()))
}

func (t *TelegramSink) VolatilityHigh(e VolatilityHigh) {
	t.send(fmt.Sprintf("volatility high: %s atrRatio=%.3f bbWidthPct=%.3f histVolPct=%.3f",
		e.Symbol, e.ATRRatio, e.BBWidthPct, e.HistVolPct))
}

func (t *TelegramSink) DeclineVelocity(e DeclineVelocity) {
	t.send(fmt.Sprintf("decline velocity: %s kind=%s score=%.1f rocShort=%.4f rocMedium=%.4f",
		e.Symbol, e.Kind, e.Score, e.RocShort, e.RocMedium))
}

func (t *TelegramSink) MarginWarning(e MarginWarning) {
	t.send(fmt.Sprintf("margin warning: %s marginLevel=%.3f equity=%s positionValue=%s",
		e.Symbol, e.MarginLevel, e.Equity.String(), e.PositionValueUsd.String()))
}

func (t *TelegramSink) ExecutionError(e ExecutionError) {
	t.send(fmt.Sprintf("execution error: %s stage=%s kind=%s: %s", e.Symbol, e.Stage, e.ErrorKind, e.Message))
}

func (t *TelegramSink) Started(e Started) {
	mode := "mainnet"
	if e.Testnet {
		mode = "testnet"
	}
	t.send(fmt.Sprintf("bot started (%s): %v", mode, e.Instruments))
}
