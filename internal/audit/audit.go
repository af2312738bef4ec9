// Package audit provides append-only persistence of per-instrument
// outcome records and alert events, adapted from the teacher's bbolt
// trade/depth store. It is write-only from the decision path's
// perspective: nothing here is ever read back into Engine or Workflow
// logic, honoring spec.md §1's "does not persist its own state between
// ticks" non-goal — this is a supplementary audit trail, not decision
// state.
package audit

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	outcomesBucket = "outcomes"
	alertsBucket   = "alerts"
)

// Store is a bbolt-backed append-only log.
type Store struct {
	db *bbolt.DB
}

// Open creates (or reuses) a BoltDB file under dataPath and ensures both
// buckets exist.
func Open(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "audit.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(outcomesBucket)); err != nil {
			return fmt.Errorf("create outcomes bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(alertsBucket)); err != nil {
			return fmt.Errorf("create alerts bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OutcomeRecord mirrors the structured log record shape (spec.md §6).
type OutcomeRecord struct {
	Timestamp             time.Time `json:"timestamp"`
	Symbol                string    `json:"symbol"`
	Outcome               string    `json:"outcome"`
	Action                string    `json:"action"`
	Reason                string    `json:"reason"`
	Price                 string    `json:"price"`
	PositionSizeContracts string    `json:"positionSizeContracts"`
	PositionValueUsd      string    `json:"positionValueUsd"`
	Equity                string    `json:"equity"`
	UnrealizedPnl         string    `json:"unrealizedPnl"`
	MarginLevel           float64   `json:"marginLevel"`
	VolatilityHigh        bool      `json:"volatilityHigh"`
	DeclineKind           string    `json:"declineKind"`
}

// AppendOutcome persists one per-instrument outcome record.
func (s *Store) AppendOutcome(record OutcomeRecord) error {
	return s.appendJSON(outcomesBucket, record.Symbol, record.Timestamp, record)
}

// AppendAlert persists one alert event, keyed by kind for later
// inspection.
func (s *Store) AppendAlert(symbol, kind string, payload any) error {
	return s.appendJSON(alertsBucket, symbol+"_"+kind, time.Now(), payload)
}

func (s *Store) appendJSON(bucket, keyPrefix string, ts time.Time, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("audit: marshal: %w", err)
	}
	key := fmt.Sprintf("%s_%d", keyPrefix, ts.UnixNano())

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}
