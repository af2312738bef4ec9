package phemex

import (
	"strings"

	"github.com/shopspring/decimal"

	"phemex-martingale-bot/internal/cfg"
	"phemex-martingale-bot/internal/engine"
	"phemex-martingale-bot/internal/indicator"
)

// priceScale is the "ep" scaled-integer factor Phemex's wire protocol
// uses for price fields (spec.md §6: "scaled by 10^4"). The Adapter
// converts to/from decimal at its boundary and never exposes scaled
// integers upward.
const priceScale = 10000

func epToDecimal(ep int64) decimal.Decimal {
	return decimal.New(ep, 0).Div(decimal.New(priceScale, 0))
}

func decimalToEp(d decimal.Decimal) int64 {
	return d.Mul(decimal.New(priceScale, 0)).Round(0).IntPart()
}

// wire response shapes, named after Phemex's published field conventions.

type positionWire struct {
	Symbol            string `json:"symbol"`
	Side              string `json:"side"`
	Size              string `json:"size"`
	AvgEntryPriceEp   int64  `json:"avgEntryPriceEp"`
	LeverageRr        int    `json:"leverageRr"`
	UnrealisedPnlRv   string `json:"unRealisedPnlRv"`
	PositionMarginRv  string `json:"positionMarginRv"`
	MaintMarginReqRv  string `json:"maintMarginReqRv"`
	LiquidationPriceEp int64 `json:"liquidationPriceEp"`
}

// toDomain maps the wire shape directly into engine.Position — the
// Adapter's boundary per spec.md §9's "dynamic-typed position
// dictionary" redesign note — so no duplicate position type exists
// above this package.
func (w positionWire) toDomain() (engine.Position, error) {
	size, err := decimal.NewFromString(w.Size)
	if err != nil {
		return engine.Position{}, ErrValidation
	}
	entry := epToDecimal(w.AvgEntryPriceEp)
	pnl, _ := decimal.NewFromString(w.UnrealisedPnlRv)
	margin, _ := decimal.NewFromString(w.PositionMarginRv)
	maint, _ := decimal.NewFromString(w.MaintMarginReqRv)

	var liq decimal.NullDecimal
	if w.LiquidationPriceEp != 0 {
		liq = decimal.NewNullDecimal(epToDecimal(w.LiquidationPriceEp))
	}

	return engine.Position{
		Side:              sideFromWire(w.Side),
		SizeContracts:     size,
		EntryPrice:        entry,
		Leverage:          w.LeverageRr,
		UnrealizedPnl:     pnl,
		PositionMarginUsd: margin,
		MaintenanceMargin: maint,
		LiquidationPrice:  liq,
	}, nil
}

func sideFromWire(s string) cfg.Side {
	if strings.EqualFold(s, "Sell") || strings.EqualFold(s, "Short") {
		return cfg.Short
	}
	return cfg.Long
}

type candleWire struct {
	Timestamp int64  `json:"timestamp"`
	OpenEp    int64  `json:"openEp"`
	HighEp    int64  `json:"highEp"`
	LowEp     int64  `json:"lowEp"`
	CloseEp   int64  `json:"closeEp"`
	Volume    string `json:"volume"`
}

func (w candleWire) toDomain() indicator.Candle {
	volume, _ := decimal.NewFromString(w.Volume)
	return indicator.Candle{
		Open:   epToDecimal(w.OpenEp),
		High:   epToDecimal(w.HighEp),
		Low:    epToDecimal(w.LowEp),
		Close:  epToDecimal(w.CloseEp),
		Volume: volume,
	}
}

type accountWire struct {
	TotalEquityRv     string `json:"totalEquityRv"`
	AvailableEquityRv string `json:"availableEquityRv"`
}

func (w accountWire) toDomain() (decimal.Decimal, decimal.Decimal, error) {
	total, err := decimal.NewFromString(w.TotalEquityRv)
	if err != nil {
		return decimal.Zero, decimal.Zero, ErrValidation
	}
	avail, _ := decimal.NewFromString(w.AvailableEquityRv)
	return total, avail, nil
}
