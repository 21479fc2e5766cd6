// Package fees implements the bet-time fee model, the one-time
// position-switch haircut, and the proportional claim payout. All
// functions are pure: fixed-point integer math over pool sizes, bet
// size, time remaining, and total duration. No I/O, no state.
package fees

import (
	"github.com/pricebet/pricebet/internal/fixedmath"
)

// Fee model constants, in basis points unless noted.
const (
	// BaseFeeBps is the flat 0.2% charged on every wager.
	BaseFeeBps = 20
	// MaxLateFeeBps caps the combined time + imbalance rate at 20%.
	MaxLateFeeBps = 2000
	// MaxImbalanceFeeBps caps the imbalance component at 5%.
	MaxImbalanceFeeBps = 500
	// EarlySwitchHaircutBps applies when at least half the market
	// duration remains at switch time.
	EarlySwitchHaircutBps = 1500
	// LateSwitchHaircutBps applies in the back half of the market.
	LateSwitchHaircutBps = 2500
)

// Time-fee bands over tau = remaining/totalDuration, expressed as
// thresholds in bps of duration. A deliberate step function, not an
// interpolation.
var timeFeeBands = []struct {
	minTauBps uint64
	feeBps    uint64
}{
	{minTauBps: 5000, feeBps: 0},
	{minTauBps: 2000, feeBps: 150},
	{minTauBps: 1000, feeBps: 300},
	{minTauBps: 500, feeBps: 500},
	{minTauBps: 0, feeBps: 800},
}

// BaseFee returns the flat 0.2% component of a wager's fee.
func BaseFee(bet uint64) (uint64, error) {
	return fixedmath.ApplyBps(bet, BaseFeeBps)
}

// TimeFeeBps returns the time-pressure component of the late fee.
// remaining and total are in the same unit (milliseconds). A
// non-positive remaining falls in the lowest band; a non-positive
// total is treated the same way.
func TimeFeeBps(remaining, total int64) uint64 {
	if total <= 0 || remaining <= 0 {
		return timeFeeBands[len(timeFeeBands)-1].feeBps
	}
	if remaining > total {
		remaining = total
	}
	tauBps := uint64(remaining) * fixedmath.BasisPoints / uint64(total)
	for _, band := range timeFeeBands {
		if tauBps >= band.minTauBps {
			return band.feeBps
		}
	}
	return timeFeeBands[len(timeFeeBands)-1].feeBps
}

// ImbalanceFeeBps returns (1 - min/max) * 5% as basis points, capped
// at MaxImbalanceFeeBps. Returns 0 when either pool is zero; pools
// are seeded non-zero at creation so that case is guarded upstream.
func ImbalanceFeeBps(yesPool, noPool uint64) uint64 {
	if yesPool == 0 || noPool == 0 {
		return 0
	}
	minPool, maxPool := yesPool, noPool
	if minPool > maxPool {
		minPool, maxPool = maxPool, minPool
	}
	ratio, err := fixedmath.MulDiv(minPool, MaxImbalanceFeeBps, maxPool)
	if err != nil {
		// minPool <= maxPool, so the quotient is at most 500.
		return 0
	}
	return MaxImbalanceFeeBps - ratio
}

// LateFeeBps combines the time and imbalance components, capped at
// MaxLateFeeBps.
func LateFeeBps(remaining, total int64, yesPool, noPool uint64) uint64 {
	rate := TimeFeeBps(remaining, total) + ImbalanceFeeBps(yesPool, noPool)
	if rate > MaxLateFeeBps {
		rate = MaxLateFeeBps
	}
	return rate
}

// Quote is the full fee breakdown for one wager.
type Quote struct {
	Bet             uint64 `json:"bet"`
	BaseFee         uint64 `json:"base_fee"`
	TimeFeeBps      uint64 `json:"time_fee_bps"`
	ImbalanceFeeBps uint64 `json:"imbalance_fee_bps"`
	LateFeeBps      uint64 `json:"late_fee_bps"`
	LateFee         uint64 `json:"late_fee"`
	TotalFee        uint64 `json:"total_fee"`
	NetReceived     uint64 `json:"net_received"`
}

// QuoteBet computes the fee breakdown for a wager of bet minor units
// placed with the given time remaining and pool state.
// totalFee = baseFee + (bet - baseFee) * lateRate.
func QuoteBet(bet uint64, remaining, total int64, yesPool, noPool uint64) (*Quote, error) {
	base, err := BaseFee(bet)
	if err != nil {
		return nil, err
	}

	afterBase, err := fixedmath.Sub(bet, base)
	if err != nil {
		return nil, err
	}

	timeBps := TimeFeeBps(remaining, total)
	imbBps := ImbalanceFeeBps(yesPool, noPool)
	lateBps := timeBps + imbBps
	if lateBps > MaxLateFeeBps {
		lateBps = MaxLateFeeBps
	}

	lateFee, err := fixedmath.ApplyBps(afterBase, lateBps)
	if err != nil {
		return nil, err
	}

	totalFee, err := fixedmath.Add(base, lateFee)
	if err != nil {
		return nil, err
	}

	net, err := fixedmath.Sub(bet, totalFee)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Bet:             bet,
		BaseFee:         base,
		TimeFeeBps:      timeBps,
		ImbalanceFeeBps: imbBps,
		LateFeeBps:      lateBps,
		LateFee:         lateFee,
		TotalFee:        totalFee,
		NetReceived:     net,
	}, nil
}

// SwitchHaircutBps returns the one-time haircut rate for moving a
// position to the other side: 15% with at least half the duration
// remaining, 25% after.
func SwitchHaircutBps(remaining, total int64) uint64 {
	if total > 0 && remaining > 0 && uint64(remaining)*fixedmath.BasisPoints/uint64(total) >= 5000 {
		return EarlySwitchHaircutBps
	}
	return LateSwitchHaircutBps
}

// SwitchNet returns the amount credited to the destination side and
// the haircut retained when switching amount minor units.
func SwitchNet(amount uint64, remaining, total int64) (net, haircut uint64, err error) {
	haircut, err = fixedmath.ApplyBps(amount, SwitchHaircutBps(remaining, total))
	if err != nil {
		return 0, 0, err
	}
	net, err = fixedmath.Sub(amount, haircut)
	if err != nil {
		return 0, 0, err
	}
	return net, haircut, nil
}
