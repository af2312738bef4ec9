// Package backtest implements a historical-data simulator satisfying the
// same workflow.Adapter interface the live Phemex client does (spec.md
// §1: "the historical backtesting driver... consumes the same strategy
// interface but replaces the exchange adapter with a simulator"). It is
// an external collaborator, not part of the decision core.
package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"phemex-martingale-bot/internal/indicator"
)

// CandleRecord is one parsed row of historical OHLCV data, timestamped
// for ordering.
type CandleRecord struct {
	Timestamp time.Time
	Candle    indicator.Candle
}

// LoadCandlesCSV reads a CSV file with a header row containing at least
// timestamp, open, high, low, close, volume columns and returns the
// records sorted oldest-first, adapted from the teacher's
// DataLoader.LoadFromCSV header-index parsing approach.
func LoadCandlesCSV(path string) ([]CandleRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backtest: open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("backtest: read header: %w", err)
	}

	indices := make(map[string]int, len(header))
	for i, col := range header {
		indices[col] = i
	}
	required := []string{"timestamp", "open", "high", "low", "close", "volume"}
	for _, col := range required {
		if _, ok := indices[col]; !ok {
			return nil, fmt.Errorf("backtest: CSV missing required column %q", col)
		}
	}

	var records []CandleRecord
	for {
		row, err := reader.Read()
		if err != nil {
			break
		}

		ts, err := time.Parse("2006-01-02 15:04:05", row[indices["timestamp"]])
		if err != nil {
			continue
		}
		open, errO := decimal.NewFromString(row[indices["open"]])
		high, errH := decimal.NewFromString(row[indices["high"]])
		low, errL := decimal.NewFromString(row[indices["low"]])
		closePrice, errC := decimal.NewFromString(row[indices["close"]])
		volume, errV := decimal.NewFromString(row[indices["volume"]])
		if errO != nil || errH != nil || errL != nil || errC != nil || errV != nil {
			continue
		}

		records = append(records, CandleRecord{
			Timestamp: ts,
			Candle:    indicator.Candle{Open: open, High: high, Low: low, Close: closePrice, Volume: volume},
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })

	if len(records) == 0 {
		return nil, fmt.Errorf("backtest: no usable rows in %s", path)
	}
	return records, nil
}
