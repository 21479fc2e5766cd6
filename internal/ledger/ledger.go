// Package ledger defines the authoritative market store contract and a
// reference in-memory implementation. Every lifecycle guard is
// enforced inside the ledger itself, atomically with the mutation it
// protects — the off-chain monitors are unsynchronized, retry-safe
// workers, and the ledger's status-guarded transitions are the only
// idempotency mechanism the system relies on.
package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pricebet/pricebet/internal/fees"
	"github.com/pricebet/pricebet/pkg/types"
)

// InitParams are the parameters for creating a market.
type InitParams struct {
	AssetIndex   uint8          `json:"asset_index"`
	ThresholdE10 uint64         `json:"threshold_e10"`
	DeadlineMS   int64          `json:"deadline_ms"`
	Creator      common.Address `json:"creator"`
	FeeTreasury  common.Address `json:"fee_treasury"`
	FeeBurn      common.Address `json:"fee_burn"`
	// UserFunded markets start in PENDING_INIT and require seed
	// verification; protocol-operated markets start ACTIVE.
	UserFunded bool `json:"user_funded"`
}

// Ledger is the durable, guard-enforcing store of markets and
// positions.
type Ledger interface {
	// Initialize creates a market. Fails if the deadline is outside
	// [1 day, 30 days] from now, or the asset index is out of range.
	Initialize(ctx context.Context, p InitParams) (*types.Market, error)

	// Activate moves a user-funded market from PENDING_INIT to ACTIVE
	// after verifying pool seeding and deadline against the ledger's
	// own state.
	Activate(ctx context.Context, id uint64) error

	// GetMarket returns the authoritative market record.
	GetMarket(ctx context.Context, id uint64) (*types.Market, error)

	// ListMarkets returns all markets.
	ListMarkets(ctx context.Context) ([]*types.Market, error)

	// GetPosition returns a user's position; the zero position if the
	// user has never wagered.
	GetPosition(ctx context.Context, id uint64, user common.Address) (types.Position, error)

	// Buy places a wager on one side. Fails outside ACTIVE status,
	// inside the lockout window, or below the minimum bet. Returns the
	// fee breakdown applied.
	Buy(ctx context.Context, id uint64, user common.Address, side types.Side, amount uint64) (*fees.Quote, error)

	// SwitchPosition moves amount from the opposite side to dest,
	// applying the one-time haircut. Fails if the user has already
	// switched once in this market or the source position is
	// insufficient. Returns the net amount credited.
	SwitchPosition(ctx context.Context, id uint64, user common.Address, dest types.Side, amount uint64) (uint64, error)

	// SettleWithOracle settles against a qualifying oracle log entry.
	// Fails before the deadline or if already settled; the rejection of
	// a second attempt is the system's exactly-once guard.
	SettleWithOracle(ctx context.Context, id uint64, entry types.OracleEntry) (types.Outcome, error)

	// SettleWithManualPrice settles with an operator-supplied price,
	// same guards as the oracle path. Recovery path for oracle outages.
	SettleWithManualPrice(ctx context.Context, id uint64, priceE10 uint64, timestampMS int64) (types.Outcome, error)

	// Claim pays out the caller's winning position. Fails before
	// settlement, with no winning amount, or on a repeat claim.
	Claim(ctx context.Context, id uint64, user common.Address) (*fees.ClaimBreakdown, error)
}
