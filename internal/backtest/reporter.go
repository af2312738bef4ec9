package backtest

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// Results summarizes one replay, grounded on the teacher's backtest
// Results/Reporter split (performance + trading statistics), scoped
// down to what a single-instrument martingale replay can report.
type Results struct {
	InitialEquity   decimal.Decimal
	FinalEquity     decimal.Decimal
	TotalCommission decimal.Decimal
	Fills           []Fill
}

// Summarize builds a Results from a finished Simulator.
func Summarize(s *Simulator, initialEquity decimal.Decimal) Results {
	var commission decimal.Decimal
	for _, f := range s.fills {
		commission = commission.Add(f.Commission)
	}
	return Results{
		InitialEquity:   initialEquity,
		FinalEquity:     s.equity,
		TotalCommission: commission,
		Fills:           s.fills,
	}
}

// WriteSummary writes a human-readable report to path, adapted from the
// teacher's Reporter.generateSummary text layout.
func (r Results) WriteSummary(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("backtest: create summary: %w", err)
	}
	defer file.Close()

	pnl := r.FinalEquity.Sub(r.InitialEquity)
	pnlPct := 0.0
	if !r.InitialEquity.IsZero() {
		pnlPct, _ = pnl.Div(r.InitialEquity).Float64()
		pnlPct *= 100
	}

	fmt.Fprintf(file, "BACKTEST RESULTS SUMMARY\n")
	fmt.Fprintf(file, "========================\n\n")
	fmt.Fprintf(file, "Initial Equity: %s\n", r.InitialEquity.StringFixed(2))
	fmt.Fprintf(file, "Final Equity:   %s\n", r.FinalEquity.StringFixed(2))
	fmt.Fprintf(file, "Total PnL:      %s (%.2f%%)\n", pnl.StringFixed(2), pnlPct)
	fmt.Fprintf(file, "Total Commission: %s\n\n", r.TotalCommission.StringFixed(2))
	fmt.Fprintf(file, "Total Fills: %d\n", len(r.Fills))
	for _, f := range r.Fills {
		fmt.Fprintf(file, "  [%d] %s qty=%s price=%s reduceOnly=%v commission=%s\n",
			f.Index, f.Side, f.Qty.String(), f.Price.String(), f.ReduceOnly, f.Commission.StringFixed(4))
	}
	return nil
}
