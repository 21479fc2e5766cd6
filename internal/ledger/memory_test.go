package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pricebet/pricebet/internal/fees"
	"github.com/pricebet/pricebet/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	unit  = uint64(1_000_000)
	seed  = 10 * unit
	dayMS = int64(24 * 60 * 60 * 1000)
)

var (
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	treasury = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	burn     = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

// testLedger returns a ledger on a controllable clock starting at t0.
func testLedger(t *testing.T, t0 int64) (*Memory, *int64) {
	t.Helper()
	now := t0
	l := NewMemory(MemoryConfig{
		Seed:    seed,
		MinBet:  unit,
		Lockout: 30 * time.Minute,
		Split:   fees.SplitProtocol,
		Now:     func() int64 { return atomic.LoadInt64(&now) },
		Logger:  zap.NewNop(),
	})
	return l, &now
}

func initMarket(t *testing.T, l *Memory, t0 int64) *types.Market {
	t.Helper()
	m, err := l.Initialize(context.Background(), InitParams{
		AssetIndex:   3,
		ThresholdE10: 50_000 * 1e10,
		DeadlineMS:   t0 + 10*dayMS,
		Creator:      alice,
		FeeTreasury:  treasury,
		FeeBurn:      burn,
	})
	require.NoError(t, err)
	return m
}

func TestInitializeValidation(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	l, _ := testLedger(t, t0)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*InitParams)
	}{
		{name: "asset-index-out-of-range", mutate: func(p *InitParams) { p.AssetIndex = 10 }},
		{name: "zero-threshold", mutate: func(p *InitParams) { p.ThresholdE10 = 0 }},
		{name: "duration-too-short", mutate: func(p *InitParams) { p.DeadlineMS = t0 + dayMS - 1 }},
		{name: "duration-too-long", mutate: func(p *InitParams) { p.DeadlineMS = t0 + 31*dayMS }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := InitParams{
				AssetIndex:   0,
				ThresholdE10: 1e10,
				DeadlineMS:   t0 + 5*dayMS,
				Creator:      alice,
			}
			tt.mutate(&p)
			_, err := l.Initialize(ctx, p)
			require.Error(t, err)
			assert.True(t, types.IsValidation(err), "want validation error, got %v", err)
		})
	}

	m := initMarket(t, l, t0)
	assert.Equal(t, types.StatusActive, m.Status)
	assert.Equal(t, seed, m.YesPool)
	assert.Equal(t, seed, m.NoPool)
}

func TestUserFundedActivation(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	l, _ := testLedger(t, t0)
	ctx := context.Background()

	m, err := l.Initialize(ctx, InitParams{
		AssetIndex:   1,
		ThresholdE10: 1e10,
		DeadlineMS:   t0 + 5*dayMS,
		Creator:      alice,
		UserFunded:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPendingInit, m.Status)

	// No wagers before activation.
	_, err = l.Buy(ctx, m.ID, bob, types.SideYes, 2*unit)
	assert.True(t, types.IsGuard(err, types.GuardMarketNotActive))

	require.NoError(t, l.Activate(ctx, m.ID))

	got, err := l.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, got.Status)

	_, err = l.Buy(ctx, m.ID, bob, types.SideYes, 2*unit)
	require.NoError(t, err)
}

func TestBuyGuards(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	l, now := testLedger(t, t0)
	ctx := context.Background()
	m := initMarket(t, l, t0)

	// Below minimum bet.
	_, err := l.Buy(ctx, m.ID, bob, types.SideYes, unit-1)
	assert.True(t, types.IsGuard(err, types.GuardBelowMinimumBet))

	// Unknown market.
	_, err = l.Buy(ctx, 999, bob, types.SideYes, 2*unit)
	assert.True(t, types.IsGuard(err, types.GuardMarketNotFound))

	// Inside lockout window.
	atomic.StoreInt64(now, m.DeadlineMS-15*60*1000)
	_, err = l.Buy(ctx, m.ID, bob, types.SideYes, 2*unit)
	assert.True(t, types.IsGuard(err, types.GuardInsideLockout))

	// Past deadline.
	atomic.StoreInt64(now, m.DeadlineMS+1)
	_, err = l.Buy(ctx, m.ID, bob, types.SideYes, 2*unit)
	assert.True(t, types.IsGuard(err, types.GuardMarketNotActive))
}

func TestBuyCreditsNetToPool(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	l, _ := testLedger(t, t0)
	ctx := context.Background()
	m := initMarket(t, l, t0)

	// Fresh market: tau = 1.0 and balanced pools, only base fee.
	q, err := l.Buy(ctx, m.ID, bob, types.SideYes, 10*unit)
	require.NoError(t, err)
	assert.Equal(t, uint64(20_000), q.TotalFee)
	assert.Equal(t, 10*unit-20_000, q.NetReceived)

	got, err := l.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, seed+q.NetReceived, got.YesPool)
	assert.Equal(t, seed, got.NoPool)

	pos, err := l.GetPosition(ctx, m.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, q.NetReceived, pos.YesAmount)
	assert.Equal(t, uint64(0), pos.NoAmount)

	// Fees accrued per the configured split.
	assert.Equal(t, q.TotalFee, l.FeeTotals(m.ID).Total())
}

func TestSwitchPositionOnce(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	l, _ := testLedger(t, t0)
	ctx := context.Background()
	m := initMarket(t, l, t0)

	q, err := l.Buy(ctx, m.ID, bob, types.SideYes, 10*unit)
	require.NoError(t, err)

	// Amount exceeding the source position fails without mutating.
	_, err = l.SwitchPosition(ctx, m.ID, bob, types.SideNo, q.NetReceived+1)
	assert.True(t, types.IsGuard(err, types.GuardInsufficientPosition))
	pos, _ := l.GetPosition(ctx, m.ID, bob)
	assert.False(t, pos.Switched)
	assert.Equal(t, q.NetReceived, pos.YesAmount)

	// Valid switch: tau = 1.0, 15% haircut.
	moved := 4 * unit
	net, err := l.SwitchPosition(ctx, m.ID, bob, types.SideNo, moved)
	require.NoError(t, err)
	assert.Equal(t, moved*8500/10000, net)

	pos, _ = l.GetPosition(ctx, m.ID, bob)
	assert.True(t, pos.Switched)
	assert.Equal(t, q.NetReceived-moved, pos.YesAmount)
	assert.Equal(t, net, pos.NoAmount)

	got, _ := l.GetMarket(ctx, m.ID)
	assert.Equal(t, seed+q.NetReceived-moved, got.YesPool)
	assert.Equal(t, seed+net, got.NoPool)
	// Pools never drop below the seed.
	assert.GreaterOrEqual(t, got.YesPool, seed)
	assert.GreaterOrEqual(t, got.NoPool, seed)

	// A second switch always fails, regardless of amount.
	_, err = l.SwitchPosition(ctx, m.ID, bob, types.SideYes, 1)
	assert.True(t, types.IsGuard(err, types.GuardAlreadySwitched))
}

func TestSettleGuardsAndOutcome(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	l, now := testLedger(t, t0)
	ctx := context.Background()
	m := initMarket(t, l, t0)

	entry := types.OracleEntry{
		Token:       "state-1",
		TimestampMS: m.DeadlineMS + 1_000,
		PriceE10:    60_000 * 1e10,
		Valid:       true,
	}

	// Before deadline.
	_, err := l.SettleWithOracle(ctx, m.ID, entry)
	assert.True(t, types.IsGuard(err, types.GuardBeforeDeadline))

	atomic.StoreInt64(now, m.DeadlineMS+2_000)

	// Oracle update timestamped before the deadline never settles.
	stale := entry
	stale.TimestampMS = m.DeadlineMS - 1
	_, err = l.SettleWithOracle(ctx, m.ID, stale)
	assert.True(t, types.IsGuard(err, types.GuardBeforeDeadline))

	// Price above threshold resolves YES.
	outcome, err := l.SettleWithOracle(ctx, m.ID, entry)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeYes, outcome)

	// Second settlement hits the status guard.
	_, err = l.SettleWithOracle(ctx, m.ID, entry)
	assert.True(t, types.IsGuard(err, types.GuardAlreadySettled))

	// Manual path obeys the same guard.
	_, err = l.SettleWithManualPrice(ctx, m.ID, 1, m.DeadlineMS+1)
	assert.True(t, types.IsGuard(err, types.GuardAlreadySettled))
}

func TestSettleBelowThresholdResolvesNo(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	l, now := testLedger(t, t0)
	ctx := context.Background()
	m := initMarket(t, l, t0)

	atomic.StoreInt64(now, m.DeadlineMS+1)
	outcome, err := l.SettleWithManualPrice(ctx, m.ID, m.ThresholdE10-1, m.DeadlineMS+1)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeNo, outcome)
}

func TestSettleRaceExactlyOnce(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	l, now := testLedger(t, t0)
	ctx := context.Background()
	m := initMarket(t, l, t0)
	atomic.StoreInt64(now, m.DeadlineMS+1_000)

	entry := types.OracleEntry{
		Token:       "state-9",
		TimestampMS: m.DeadlineMS + 500,
		PriceE10:    m.ThresholdE10,
		Valid:       true,
	}

	const racers = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		guards    atomic.Int32
	)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.SettleWithOracle(ctx, m.ID, entry)
			switch {
			case err == nil:
				successes.Add(1)
			case types.IsGuard(err, types.GuardAlreadySettled):
				guards.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(racers-1), guards.Load())

	got, _ := l.GetMarket(ctx, m.ID)
	assert.Equal(t, types.StatusSettled, got.Status)
}

func TestClaimGuardsAndSolvency(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	l, now := testLedger(t, t0)
	ctx := context.Background()
	m := initMarket(t, l, t0)

	_, err := l.Buy(ctx, m.ID, bob, types.SideYes, 20*unit)
	require.NoError(t, err)
	_, err = l.Buy(ctx, m.ID, carol, types.SideYes, 5*unit)
	require.NoError(t, err)
	_, err = l.Buy(ctx, m.ID, alice, types.SideNo, 30*unit)
	require.NoError(t, err)

	// Claims before settlement are rejected.
	_, err = l.Claim(ctx, m.ID, bob)
	assert.True(t, types.IsGuard(err, types.GuardNotSettled))

	atomic.StoreInt64(now, m.DeadlineMS+1)
	_, err = l.SettleWithManualPrice(ctx, m.ID, m.ThresholdE10+1, m.DeadlineMS+1)
	require.NoError(t, err)

	settled, _ := l.GetMarket(ctx, m.ID)
	totalPool := settled.YesPool + settled.NoPool

	// Losing side has nothing to claim.
	_, err = l.Claim(ctx, m.ID, alice)
	assert.True(t, types.IsGuard(err, types.GuardNothingToClaim))

	b1, err := l.Claim(ctx, m.ID, bob)
	require.NoError(t, err)
	b2, err := l.Claim(ctx, m.ID, carol)
	require.NoError(t, err)

	// Once claimed, no further payout ever.
	_, err = l.Claim(ctx, m.ID, bob)
	assert.True(t, types.IsGuard(err, types.GuardAlreadyClaimed))

	paid := b1.Net + b2.Net
	claimFees := b1.Fee + b2.Fee
	assert.Equal(t, paid, l.ClaimedTotal(m.ID))
	assert.LessOrEqual(t, paid+claimFees, totalPool,
		"payouts plus fees exceed the pool")
}
