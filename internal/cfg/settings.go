package cfg

import "github.com/shopspring/decimal"

// Side is the direction of a position or order.
type Side string

const (
	Long  Side = "Long"
	Short Side = "Short"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Long {
		return Short
	}
	return Long
}

// InstrumentConfig is the immutable per-tick configuration for one traded
// symbol (spec.md §3 "Instrument Config").
type InstrumentConfig struct {
	Symbol                  string
	Side                    Side
	AutomaticMode           bool
	Leverage                int
	EmaIntervalMinutes      int
	ProfitPnlTarget         float64
	ProfitBalanceThreshold  float64
	PositionCeilingPct      float64
	InitialEntryPct         float64
	AddTriggerDropPct       float64
	MaxMarginPct            decimal.NullDecimal // optional
}

// SymbolConfig holds per-symbol overrides layered under global defaults,
// grounded on the teacher's cfg.SymbolConfig / GetSymbolConfig pattern.
type SymbolConfig struct {
	ProfitPnlTarget        float64             `yaml:"profitPnlTarget"`
	ProfitBalanceThreshold float64             `yaml:"profitBalanceThreshold"`
	PositionCeilingPct     float64             `yaml:"positionCeilingPct"`
	InitialEntryPct        float64             `yaml:"initialEntryPct"`
	AddTriggerDropPct      float64             `yaml:"addTriggerDropPct"`
	MaxMarginPct           decimal.NullDecimal `yaml:"maxMarginPct"`
}
