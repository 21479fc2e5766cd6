package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// Status is the lifecycle state of a market. Transitions are monotonic:
// a market never moves to a lower status.
type Status uint8

const (
	// StatusPendingInit is a user-funded market awaiting seed verification.
	StatusPendingInit Status = iota
	// StatusActive accepts wagers.
	StatusActive
	// StatusLocked is inside the pre-deadline lockout window; wagers rejected.
	StatusLocked
	// StatusAwaiting is past deadline, waiting for a qualifying oracle update.
	StatusAwaiting
	// StatusSettled is terminal; outcome is fixed and claims are open.
	StatusSettled
)

func (s Status) String() string {
	switch s {
	case StatusPendingInit:
		return "PENDING_INIT"
	case StatusActive:
		return "ACTIVE"
	case StatusLocked:
		return "LOCKED"
	case StatusAwaiting:
		return "AWAITING"
	case StatusSettled:
		return "SETTLED"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the resolved result of a settled market.
type Outcome uint8

const (
	OutcomeUnresolved Outcome = iota
	OutcomeYes
	OutcomeNo
)

func (o Outcome) String() string {
	switch o {
	case OutcomeYes:
		return "YES"
	case OutcomeNo:
		return "NO"
	default:
		return "UNRESOLVED"
	}
}

// Side selects one of the two wager pools.
type Side uint8

const (
	SideYes Side = iota
	SideNo
)

func (s Side) String() string {
	if s == SideYes {
		return "YES"
	}
	return "NO"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// ThresholdDecimals is the fixed-point scale of oracle prices and
// market thresholds (10 decimal places).
const ThresholdDecimals = 10

// MaxAssetIndex is the highest supported oracle asset slot.
const MaxAssetIndex = 9

// Market is a binary price-threshold prediction market.
// The ledger owns the authoritative copy; the mirror holds a
// JSON-encoded, possibly stale copy for display and monitors.
type Market struct {
	ID            uint64         `json:"id"`
	LedgerAddress common.Address `json:"ledger_address"`
	Creator       common.Address `json:"creator"`
	AssetIndex    uint8          `json:"asset_index"`
	ThresholdE10  uint64         `json:"threshold_e10"`
	DeadlineMS    int64          `json:"deadline_ms"`
	Status        Status         `json:"status"`
	YesPool       uint64         `json:"yes_pool"`
	NoPool        uint64         `json:"no_pool"`
	Outcome       Outcome        `json:"outcome"`
	CreatedAtMS   int64          `json:"created_at_ms"`
	FeeTreasury   common.Address `json:"fee_treasury"`
	FeeBurn       common.Address `json:"fee_burn"`
}

// Pool returns the pool total for a side.
func (m *Market) Pool(side Side) uint64 {
	if side == SideYes {
		return m.YesPool
	}
	return m.NoPool
}

// WinningSide maps the settled outcome to the winning pool side.
// Only meaningful once the market is settled.
func (m *Market) WinningSide() Side {
	if m.Outcome == OutcomeYes {
		return SideYes
	}
	return SideNo
}

// Duration returns the total market duration in milliseconds.
func (m *Market) Duration() int64 {
	return m.DeadlineMS - m.CreatedAtMS
}

// Remaining returns milliseconds until the deadline at the given
// wall-clock time. Negative once past deadline.
func (m *Market) Remaining(nowMS int64) int64 {
	return m.DeadlineMS - nowMS
}
