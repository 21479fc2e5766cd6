package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pricebet/pricebet/internal/fees"
	"github.com/pricebet/pricebet/internal/fixedmath"
	"github.com/pricebet/pricebet/internal/lifecycle"
	"github.com/pricebet/pricebet/pkg/types"
	"go.uber.org/zap"
)

// Duration bounds for new markets.
const (
	MinMarketDuration = 24 * time.Hour
	MaxMarketDuration = 30 * 24 * time.Hour
)

// MemoryConfig holds configuration for the in-memory ledger.
type MemoryConfig struct {
	// Seed is credited to both pools at initialization.
	Seed uint64
	// MinBet is the smallest accepted wager.
	MinBet uint64
	// Lockout is the pre-deadline window in which wagers are rejected.
	Lockout time.Duration
	// Split distributes collected fees and haircuts.
	Split fees.FeeSplit
	// Now returns the current ledger time in epoch milliseconds.
	// Defaults to wall clock; injectable for tests.
	Now    func() int64
	Logger *zap.Logger
}

// Memory is the reference Ledger implementation. A single mutex makes
// every operation a serializable transaction, which is what gives the
// status guards their atomicity.
type Memory struct {
	cfg       MemoryConfig
	mu        sync.Mutex
	nextID    uint64
	markets   map[uint64]*types.Market
	positions map[uint64]map[common.Address]*types.Position
	accrued   map[uint64]fees.Distribution
	claimed   map[uint64]uint64
	logger    *zap.Logger
}

// NewMemory creates an in-memory ledger.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Now == nil {
		cfg.Now = func() int64 { return time.Now().UnixMilli() }
	}
	if cfg.Lockout == 0 {
		cfg.Lockout = lifecycle.DefaultLockoutWindow
	}
	return &Memory{
		cfg:       cfg,
		nextID:    1,
		markets:   make(map[uint64]*types.Market),
		positions: make(map[uint64]map[common.Address]*types.Position),
		accrued:   make(map[uint64]fees.Distribution),
		claimed:   make(map[uint64]uint64),
		logger:    cfg.Logger,
	}
}

// Initialize creates a market with both pools seeded.
func (l *Memory) Initialize(ctx context.Context, p InitParams) (*types.Market, error) {
	if p.AssetIndex > types.MaxAssetIndex {
		return nil, &types.ValidationError{Field: "asset_index", Reason: "exceeds maximum oracle slot"}
	}
	if p.ThresholdE10 == 0 {
		return nil, &types.ValidationError{Field: "threshold_e10", Reason: "must be positive"}
	}
	if err := l.cfg.Split.Validate(); err != nil {
		return nil, err
	}

	now := l.cfg.Now()
	duration := p.DeadlineMS - now
	if duration < MinMarketDuration.Milliseconds() || duration > MaxMarketDuration.Milliseconds() {
		return nil, &types.ValidationError{Field: "deadline_ms", Reason: "duration must be between 1 and 30 days"}
	}

	status := types.StatusActive
	if p.UserFunded {
		status = types.StatusPendingInit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++

	m := &types.Market{
		ID:           id,
		Creator:      p.Creator,
		AssetIndex:   p.AssetIndex,
		ThresholdE10: p.ThresholdE10,
		DeadlineMS:   p.DeadlineMS,
		Status:       status,
		YesPool:      l.cfg.Seed,
		NoPool:       l.cfg.Seed,
		Outcome:      types.OutcomeUnresolved,
		CreatedAtMS:  now,
		FeeTreasury:  p.FeeTreasury,
		FeeBurn:      p.FeeBurn,
	}
	l.markets[id] = m
	l.positions[id] = make(map[common.Address]*types.Position)

	OperationsTotal.WithLabelValues("initialize", "ok").Inc()
	l.logger.Info("market-initialized",
		zap.Uint64("market-id", id),
		zap.Uint8("asset-index", p.AssetIndex),
		zap.Int64("deadline-ms", p.DeadlineMS),
		zap.String("status", status.String()))

	return snapshot(m), nil
}

// Activate verifies seeding and flips PENDING_INIT to ACTIVE.
func (l *Memory) Activate(ctx context.Context, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.market(id)
	if err != nil {
		return err
	}

	if err := lifecycle.VerifyActivation(m, l.cfg.Seed, l.cfg.Now()); err != nil {
		OperationsTotal.WithLabelValues("activate", "rejected").Inc()
		return err
	}

	m.Status = types.StatusActive
	OperationsTotal.WithLabelValues("activate", "ok").Inc()
	l.logger.Info("market-activated", zap.Uint64("market-id", id))
	return nil
}

// GetMarket returns a copy of the authoritative record.
func (l *Memory) GetMarket(ctx context.Context, id uint64) (*types.Market, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.market(id)
	if err != nil {
		return nil, err
	}
	return snapshot(m), nil
}

// ListMarkets returns copies of all markets.
func (l *Memory) ListMarkets(ctx context.Context) ([]*types.Market, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*types.Market, 0, len(l.markets))
	for _, m := range l.markets {
		out = append(out, snapshot(m))
	}
	return out, nil
}

// GetPosition returns a user's position, zero-valued if absent.
func (l *Memory) GetPosition(ctx context.Context, id uint64, user common.Address) (types.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.market(id); err != nil {
		return types.Position{}, err
	}
	if pos, ok := l.positions[id][user]; ok {
		return *pos, nil
	}
	return types.Position{}, nil
}

// Buy places a wager. The fee quote is computed and the net amount
// credited inside the same transaction that checks the guards.
func (l *Memory) Buy(ctx context.Context, id uint64, user common.Address, side types.Side, amount uint64) (*fees.Quote, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.market(id)
	if err != nil {
		return nil, err
	}

	now := l.cfg.Now()
	if m.Status != types.StatusActive || now >= m.DeadlineMS {
		OperationsTotal.WithLabelValues("buy", "rejected").Inc()
		return nil, &types.GuardError{Code: types.GuardMarketNotActive, Reason: "market is not accepting wagers"}
	}
	if now >= m.DeadlineMS-l.cfg.Lockout.Milliseconds() {
		OperationsTotal.WithLabelValues("buy", "rejected").Inc()
		return nil, &types.GuardError{Code: types.GuardInsideLockout, Reason: "inside pre-deadline lockout window"}
	}
	if amount < l.cfg.MinBet {
		OperationsTotal.WithLabelValues("buy", "rejected").Inc()
		return nil, &types.GuardError{Code: types.GuardBelowMinimumBet, Reason: "wager below minimum bet"}
	}

	quote, err := fees.QuoteBet(amount, m.Remaining(now), m.Duration(), m.YesPool, m.NoPool)
	if err != nil {
		OperationsTotal.WithLabelValues("buy", "arithmetic_error").Inc()
		return nil, err
	}

	pool := m.Pool(side)
	newPool, err := fixedmath.Add(pool, quote.NetReceived)
	if err != nil {
		OperationsTotal.WithLabelValues("buy", "arithmetic_error").Inc()
		return nil, err
	}

	pos := l.position(id, user)
	newStake, err := fixedmath.Add(pos.Amount(side), quote.NetReceived)
	if err != nil {
		OperationsTotal.WithLabelValues("buy", "arithmetic_error").Inc()
		return nil, err
	}

	if err := l.accrue(id, quote.TotalFee); err != nil {
		OperationsTotal.WithLabelValues("buy", "arithmetic_error").Inc()
		return nil, err
	}

	setPool(m, side, newPool)
	setStake(pos, side, newStake)

	OperationsTotal.WithLabelValues("buy", "ok").Inc()
	WagerVolume.Add(float64(amount))
	l.logger.Debug("wager-accepted",
		zap.Uint64("market-id", id),
		zap.String("side", side.String()),
		zap.Uint64("amount", amount),
		zap.Uint64("net", quote.NetReceived),
		zap.Uint64("fee", quote.TotalFee))

	return quote, nil
}

// SwitchPosition moves stake across sides with the one-time haircut.
// A failed switch mutates nothing.
func (l *Memory) SwitchPosition(ctx context.Context, id uint64, user common.Address, dest types.Side, amount uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.market(id)
	if err != nil {
		return 0, err
	}

	now := l.cfg.Now()
	if m.Status != types.StatusActive || now >= m.DeadlineMS {
		OperationsTotal.WithLabelValues("switch", "rejected").Inc()
		return 0, &types.GuardError{Code: types.GuardMarketNotActive, Reason: "market is not accepting position changes"}
	}

	pos := l.position(id, user)
	if pos.Switched {
		OperationsTotal.WithLabelValues("switch", "rejected").Inc()
		return 0, &types.GuardError{Code: types.GuardAlreadySwitched, Reason: "only one switch is permitted per market"}
	}

	src := dest.Opposite()
	if pos.Amount(src) < amount || amount == 0 {
		OperationsTotal.WithLabelValues("switch", "rejected").Inc()
		return 0, &types.GuardError{Code: types.GuardInsufficientPosition, Reason: "source-side position is insufficient"}
	}

	net, haircut, err := fees.SwitchNet(amount, m.Remaining(now), m.Duration())
	if err != nil {
		OperationsTotal.WithLabelValues("switch", "arithmetic_error").Inc()
		return 0, err
	}

	srcPool, err := fixedmath.Sub(m.Pool(src), amount)
	if err != nil {
		OperationsTotal.WithLabelValues("switch", "arithmetic_error").Inc()
		return 0, err
	}
	destPool, err := fixedmath.Add(m.Pool(dest), net)
	if err != nil {
		OperationsTotal.WithLabelValues("switch", "arithmetic_error").Inc()
		return 0, err
	}
	destStake, err := fixedmath.Add(pos.Amount(dest), net)
	if err != nil {
		OperationsTotal.WithLabelValues("switch", "arithmetic_error").Inc()
		return 0, err
	}
	if err := l.accrue(id, haircut); err != nil {
		OperationsTotal.WithLabelValues("switch", "arithmetic_error").Inc()
		return 0, err
	}

	setPool(m, src, srcPool)
	setPool(m, dest, destPool)
	setStake(pos, src, pos.Amount(src)-amount)
	setStake(pos, dest, destStake)
	pos.Switched = true

	OperationsTotal.WithLabelValues("switch", "ok").Inc()
	l.logger.Debug("position-switched",
		zap.Uint64("market-id", id),
		zap.String("dest", dest.String()),
		zap.Uint64("amount", amount),
		zap.Uint64("net", net))

	return net, nil
}

// SettleWithOracle settles using a qualifying oracle entry.
func (l *Memory) SettleWithOracle(ctx context.Context, id uint64, entry types.OracleEntry) (types.Outcome, error) {
	if !entry.Valid {
		return types.OutcomeUnresolved, &types.ValidationError{Field: "oracle_entry", Reason: "entry is malformed"}
	}
	return l.settle(id, entry.PriceE10, entry.TimestampMS, "settle_oracle")
}

// SettleWithManualPrice settles with an operator-supplied price.
func (l *Memory) SettleWithManualPrice(ctx context.Context, id uint64, priceE10 uint64, timestampMS int64) (types.Outcome, error) {
	return l.settle(id, priceE10, timestampMS, "settle_manual")
}

func (l *Memory) settle(id uint64, priceE10 uint64, timestampMS int64, op string) (types.Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.market(id)
	if err != nil {
		return types.OutcomeUnresolved, err
	}

	// The status guard below is the exactly-once mechanism for the
	// whole system: a racing second settlement observes SETTLED and is
	// rejected atomically.
	if m.Status == types.StatusSettled {
		OperationsTotal.WithLabelValues(op, "rejected").Inc()
		return types.OutcomeUnresolved, &types.GuardError{Code: types.GuardAlreadySettled, Reason: "market is already settled"}
	}
	if m.Status == types.StatusPendingInit {
		OperationsTotal.WithLabelValues(op, "rejected").Inc()
		return types.OutcomeUnresolved, &types.GuardError{Code: types.GuardMarketNotActive, Reason: "market was never activated"}
	}

	now := l.cfg.Now()
	if now < m.DeadlineMS {
		OperationsTotal.WithLabelValues(op, "rejected").Inc()
		return types.OutcomeUnresolved, &types.GuardError{Code: types.GuardBeforeDeadline, Reason: "deadline has not passed"}
	}
	if timestampMS < m.DeadlineMS {
		OperationsTotal.WithLabelValues(op, "rejected").Inc()
		return types.OutcomeUnresolved, &types.GuardError{Code: types.GuardBeforeDeadline, Reason: "price update precedes the deadline"}
	}

	outcome := types.OutcomeNo
	if priceE10 >= m.ThresholdE10 {
		outcome = types.OutcomeYes
	}

	m.Status = types.StatusSettled
	m.Outcome = outcome

	OperationsTotal.WithLabelValues(op, "ok").Inc()
	l.logger.Info("market-settled",
		zap.Uint64("market-id", id),
		zap.Uint64("price-e10", priceE10),
		zap.Uint64("threshold-e10", m.ThresholdE10),
		zap.String("outcome", outcome.String()))

	return outcome, nil
}

// Claim pays out a winning position once.
func (l *Memory) Claim(ctx context.Context, id uint64, user common.Address) (*fees.ClaimBreakdown, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.market(id)
	if err != nil {
		return nil, err
	}

	if m.Status != types.StatusSettled {
		OperationsTotal.WithLabelValues("claim", "rejected").Inc()
		return nil, &types.GuardError{Code: types.GuardNotSettled, Reason: "market is not settled"}
	}

	pos := l.position(id, user)
	if pos.Claimed {
		OperationsTotal.WithLabelValues("claim", "rejected").Inc()
		return nil, &types.GuardError{Code: types.GuardAlreadyClaimed, Reason: "payout already issued"}
	}

	winning := pos.Amount(m.WinningSide())
	if winning == 0 {
		OperationsTotal.WithLabelValues("claim", "rejected").Inc()
		return nil, &types.GuardError{Code: types.GuardNothingToClaim, Reason: "no winning-side position"}
	}

	totalPool, err := fixedmath.Add(m.YesPool, m.NoPool)
	if err != nil {
		OperationsTotal.WithLabelValues("claim", "arithmetic_error").Inc()
		return nil, err
	}

	breakdown, err := fees.QuoteClaim(winning, totalPool, m.Pool(m.WinningSide()), l.cfg.Split)
	if err != nil {
		OperationsTotal.WithLabelValues("claim", "arithmetic_error").Inc()
		return nil, err
	}

	if err := l.accrue(id, breakdown.Fee); err != nil {
		OperationsTotal.WithLabelValues("claim", "arithmetic_error").Inc()
		return nil, err
	}

	pos.Claimed = true
	l.claimed[id] += breakdown.Net

	OperationsTotal.WithLabelValues("claim", "ok").Inc()
	l.logger.Debug("claim-paid",
		zap.Uint64("market-id", id),
		zap.Uint64("gross", breakdown.Gross),
		zap.Uint64("net", breakdown.Net))

	return breakdown, nil
}

// FeeTotals returns the accrued fee distribution for a market.
func (l *Memory) FeeTotals(id uint64) fees.Distribution {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accrued[id]
}

// ClaimedTotal returns the sum of net payouts issued for a market.
func (l *Memory) ClaimedTotal(id uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.claimed[id]
}

// market looks up by id; callers hold the mutex.
func (l *Memory) market(id uint64) (*types.Market, error) {
	m, ok := l.markets[id]
	if !ok {
		return nil, &types.GuardError{Code: types.GuardMarketNotFound, Reason: "no such market"}
	}
	return m, nil
}

// position returns the live position record, creating it on first use.
func (l *Memory) position(id uint64, user common.Address) *types.Position {
	pos, ok := l.positions[id][user]
	if !ok {
		pos = &types.Position{}
		l.positions[id][user] = pos
	}
	return pos
}

// accrue distributes a collected fee or haircut per the configured
// split and adds it to the market's running totals.
func (l *Memory) accrue(id uint64, fee uint64) error {
	dist, err := l.cfg.Split.Distribute(fee)
	if err != nil {
		return err
	}
	acc := l.accrued[id]
	acc.Creator += dist.Creator
	acc.Burn += dist.Burn
	acc.Treasury += dist.Treasury
	l.accrued[id] = acc
	return nil
}

func snapshot(m *types.Market) *types.Market {
	cp := *m
	return &cp
}

func setPool(m *types.Market, side types.Side, v uint64) {
	if side == types.SideYes {
		m.YesPool = v
	} else {
		m.NoPool = v
	}
}

func setStake(p *types.Position, side types.Side, v uint64) {
	if side == types.SideYes {
		p.YesAmount = v
	} else {
		p.NoAmount = v
	}
}
