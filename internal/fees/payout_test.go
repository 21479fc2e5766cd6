package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeSplitValidate(t *testing.T) {
	require.NoError(t, SplitCreatorRevShare.Validate())
	require.NoError(t, SplitProtocol.Validate())

	bad := FeeSplit{CreatorBps: 2000, BurnBps: 4000, TreasuryBps: 3000}
	require.Error(t, bad.Validate())
}

func TestDistributeSumsExactly(t *testing.T) {
	fees := []uint64{0, 1, 3, 99, 100, 12_345, 20_000, 1_000_001}

	for _, fee := range fees {
		for _, split := range []FeeSplit{SplitCreatorRevShare, SplitProtocol} {
			dist, err := split.Distribute(fee)
			require.NoError(t, err)
			// Treasury absorbs the truncation remainder: parts always
			// sum back to the fee exactly.
			assert.Equal(t, fee, dist.Total(), "fee=%d split=%+v", fee, split)
		}
	}
}

func TestDistributeCreatorShare(t *testing.T) {
	dist, err := SplitCreatorRevShare.Distribute(10_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000), dist.Creator)
	assert.Equal(t, uint64(4_000), dist.Burn)
	assert.Equal(t, uint64(4_000), dist.Treasury)

	dist, err = SplitProtocol.Distribute(10_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), dist.Creator)
	assert.Equal(t, uint64(5_000), dist.Burn)
	assert.Equal(t, uint64(5_000), dist.Treasury)
}

func TestGrossPayoutTruncatesDown(t *testing.T) {
	// 3 winners of 10 each, pool total 100, winning pool 30:
	// each gross = 10*100/30 = 33 (33.33 truncated).
	gross, err := GrossPayout(10, 100, 30)
	require.NoError(t, err)
	assert.Equal(t, uint64(33), gross)

	_, err = GrossPayout(10, 100, 0)
	require.Error(t, err)
}

func TestQuoteClaim(t *testing.T) {
	// Winner holds 10 units of a 30-unit winning pool, total pool 100.
	b, err := QuoteClaim(10*unit, 100*unit, 30*unit, SplitProtocol)
	require.NoError(t, err)

	assert.Equal(t, uint64(33_333_333), b.Gross)
	assert.Equal(t, uint64(66_666), b.Fee) // 0.2% truncated
	assert.Equal(t, uint64(33_266_667), b.Net)
	assert.Equal(t, b.Fee, b.Split.Total())
}

func TestClaimSolvency(t *testing.T) {
	// Sum of net payouts plus collected claim fees never exceeds the
	// total pool, for assorted winner distributions.
	cases := []struct {
		name     string
		winners  []uint64
		loserSum uint64
	}{
		{name: "even-thirds", winners: []uint64{10 * unit, 10 * unit, 10 * unit}, loserSum: 70 * unit},
		{name: "uneven", winners: []uint64{1, 7, 13, 5 * unit}, loserSum: 42 * unit},
		{name: "single-winner", winners: []uint64{3 * unit}, loserSum: 97 * unit},
		{name: "dust-amounts", winners: []uint64{1, 1, 1, 1, 1, 1, 1}, loserSum: 999},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var winningPool uint64
			for _, w := range tc.winners {
				winningPool += w
			}
			totalPool := winningPool + tc.loserSum

			var paid, feesCollected uint64
			for _, w := range tc.winners {
				b, err := QuoteClaim(w, totalPool, winningPool, SplitCreatorRevShare)
				require.NoError(t, err)
				paid += b.Net
				feesCollected += b.Fee
			}

			assert.LessOrEqual(t, paid+feesCollected, totalPool,
				"over-payment: paid=%d fees=%d pool=%d", paid, feesCollected, totalPool)
		})
	}
}
