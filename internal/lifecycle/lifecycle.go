// Package lifecycle defines the market status state machine:
//
//	PENDING_INIT -> ACTIVE -> LOCKED -> AWAITING -> SETTLED
//
// Transitions are driven by periodic polling, so the machine tolerates
// skipped intermediate states (a market discovered past deadline while
// still ACTIVE moves straight to AWAITING). Status never regresses:
// re-observing a market already in a later state than the computed
// target is a no-op, not an error.
package lifecycle

import (
	"time"

	"github.com/pricebet/pricebet/pkg/types"
)

// DefaultLockoutWindow is how long before the deadline wagering closes.
const DefaultLockoutWindow = 30 * time.Minute

// CanTransition reports whether moving from one status to another is
// legal. Forward jumps over intermediate states are allowed; backward
// moves never are. SETTLED is terminal.
func CanTransition(from, to types.Status) bool {
	if from == types.StatusSettled {
		return false
	}
	return to > from
}

// TimeTarget computes the time-derived status for a market at nowMS,
// given its deadline and lockout window. It never returns SETTLED:
// that transition additionally requires a qualifying oracle signal and
// a successful ledger settlement, and PENDING_INIT additionally
// requires ledger-verified seeding, so both are decided elsewhere.
func TimeTarget(nowMS, deadlineMS int64, lockout time.Duration) types.Status {
	if nowMS >= deadlineMS {
		return types.StatusAwaiting
	}
	if nowMS >= deadlineMS-lockout.Milliseconds() {
		return types.StatusLocked
	}
	return types.StatusActive
}

// Advance returns the status a market should move to at nowMS, and
// whether that is a change. The current status wins whenever it is
// already at or past the time-derived target, and PENDING_INIT is
// never advanced by time alone (seed verification gates it).
func Advance(current types.Status, nowMS, deadlineMS int64, lockout time.Duration) (types.Status, bool) {
	if current == types.StatusPendingInit || current == types.StatusSettled {
		return current, false
	}
	target := TimeTarget(nowMS, deadlineMS, lockout)
	if !CanTransition(current, target) {
		return current, false
	}
	return target, true
}

// VerifyActivation checks the PENDING_INIT -> ACTIVE guard against an
// authoritative ledger read: both pools hold exactly the seed amount
// and the deadline is strictly in the future. The mirror must never be
// consulted for this.
func VerifyActivation(m *types.Market, seed uint64, nowMS int64) error {
	if m.Status != types.StatusPendingInit {
		return &types.GuardError{Code: types.GuardMarketNotActive, Reason: "market is not pending initialization"}
	}
	if m.YesPool != seed || m.NoPool != seed {
		return &types.GuardError{Code: types.GuardMarketNotActive, Reason: "pools do not hold the exact seed amount"}
	}
	if m.DeadlineMS <= nowMS {
		return &types.GuardError{Code: types.GuardMarketNotActive, Reason: "deadline is not in the future"}
	}
	return nil
}
