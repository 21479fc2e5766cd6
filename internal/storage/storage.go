// Package storage persists the audit trail of accepted wagers and
// completed settlements. Writes here are best-effort side effects of
// ledger mutations that have already succeeded: failures are logged
// and swallowed, never rolled back into the authoritative state.
package storage

import (
	"context"
	"time"

	"github.com/pricebet/pricebet/pkg/types"
)

// WagerRecord is the audit row for one accepted wager.
type WagerRecord struct {
	ID          string
	MarketID    uint64
	User        string
	Side        types.Side
	Amount      uint64
	Fee         uint64
	NetReceived uint64
	PlacedAt    time.Time
}

// SettlementRecord is the audit row for one completed settlement.
type SettlementRecord struct {
	ID          string
	MarketID    uint64
	Outcome     types.Outcome
	PriceE10    uint64
	OracleToken string
	SettledAt   time.Time
}

// Storage is the interface for the audit trail.
type Storage interface {
	// RecordWager stores an accepted wager.
	RecordWager(ctx context.Context, w *WagerRecord) error

	// RecordSettlement stores a completed settlement.
	RecordSettlement(ctx context.Context, s *SettlementRecord) error

	// Close closes the storage connection.
	Close() error
}
