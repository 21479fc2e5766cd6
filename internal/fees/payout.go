package fees

import (
	"github.com/pricebet/pricebet/internal/fixedmath"
	"github.com/pricebet/pricebet/pkg/types"
)

// ClaimFeeBps is the flat 0.2% deducted from every claim payout.
// Distinct from the bet-time fee model.
const ClaimFeeBps = 20

// FeeSplit is the three-way distribution of collected fees, in basis
// points summing to 10_000. The ratio has changed between protocol
// revisions, so it is configuration data threaded through the
// calculator, never a hard-coded formula.
type FeeSplit struct {
	CreatorBps  uint64 `json:"creator_bps"`
	BurnBps     uint64 `json:"burn_bps"`
	TreasuryBps uint64 `json:"treasury_bps"`
}

// Historical protocol splits.
var (
	// SplitCreatorRevShare is the 20/40/40 creator/burn/treasury split
	// used by user-funded markets.
	SplitCreatorRevShare = FeeSplit{CreatorBps: 2000, BurnBps: 4000, TreasuryBps: 4000}
	// SplitProtocol is the 50/50 treasury/burn split used by
	// protocol-operated markets with no creator share.
	SplitProtocol = FeeSplit{CreatorBps: 0, BurnBps: 5000, TreasuryBps: 5000}
)

// Validate checks that the split covers exactly 100%.
func (s FeeSplit) Validate() error {
	if s.CreatorBps+s.BurnBps+s.TreasuryBps != fixedmath.BasisPoints {
		return &types.ValidationError{Field: "fee_split", Reason: "shares must sum to 10000 bps"}
	}
	return nil
}

// Distribution is a fee amount divided per a FeeSplit.
type Distribution struct {
	Creator  uint64 `json:"creator"`
	Burn     uint64 `json:"burn"`
	Treasury uint64 `json:"treasury"`
}

// Total returns the distributed sum.
func (d Distribution) Total() uint64 {
	return d.Creator + d.Burn + d.Treasury
}

// Distribute divides a fee amount three ways. Creator and burn shares
// truncate; the treasury absorbs the integer-division remainder so the
// parts always sum exactly to fee.
func (s FeeSplit) Distribute(fee uint64) (Distribution, error) {
	creator, err := fixedmath.ApplyBps(fee, s.CreatorBps)
	if err != nil {
		return Distribution{}, err
	}
	burn, err := fixedmath.ApplyBps(fee, s.BurnBps)
	if err != nil {
		return Distribution{}, err
	}
	treasury, err := fixedmath.Sub(fee, creator+burn)
	if err != nil {
		return Distribution{}, err
	}
	return Distribution{Creator: creator, Burn: burn, Treasury: treasury}, nil
}

// GrossPayout returns userWinningAmount * totalPool / winningPool,
// truncating down. Under-pays by at most one minor unit per claim:
// rounding always favors pool solvency over precision.
func GrossPayout(winningAmount, totalPool, winningPool uint64) (uint64, error) {
	return fixedmath.MulDiv(winningAmount, totalPool, winningPool)
}

// ClaimBreakdown is the full arithmetic of one claim.
type ClaimBreakdown struct {
	Gross uint64       `json:"gross"`
	Fee   uint64       `json:"fee"`
	Net   uint64       `json:"net"`
	Split Distribution `json:"split"`
}

// QuoteClaim computes a winner's payout: the proportional gross share
// of the combined pool, the flat claim fee, and its distribution.
func QuoteClaim(winningAmount, totalPool, winningPool uint64, split FeeSplit) (*ClaimBreakdown, error) {
	gross, err := GrossPayout(winningAmount, totalPool, winningPool)
	if err != nil {
		return nil, err
	}

	fee, err := fixedmath.ApplyBps(gross, ClaimFeeBps)
	if err != nil {
		return nil, err
	}

	net, err := fixedmath.Sub(gross, fee)
	if err != nil {
		return nil, err
	}

	dist, err := split.Distribute(fee)
	if err != nil {
		return nil, err
	}

	return &ClaimBreakdown{Gross: gross, Fee: fee, Net: net, Split: dist}, nil
}
