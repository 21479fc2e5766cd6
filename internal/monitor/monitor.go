// Package monitor holds the periodic reconciliation loops that keep
// mirrored market records honest: the lifecycle monitor advances
// time-derived statuses and activates seeded markets, and the pool
// sync monitor refreshes mirrored pool balances from the ledger.
package monitor

import (
	"context"
	"time"

	"github.com/pricebet/pricebet/internal/ledger"
	"github.com/pricebet/pricebet/internal/lifecycle"
	"github.com/pricebet/pricebet/internal/mirror"
	"github.com/pricebet/pricebet/pkg/types"
	"go.uber.org/zap"
)

// Lifecycle is the status-advancement monitor. It never writes status
// backward and never settles; settlement belongs to the orchestrator.
type Lifecycle struct {
	ledger   ledger.Ledger
	mirror   *mirror.Mirror
	lockout  time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() int64
}

// LifecycleConfig holds lifecycle monitor configuration.
type LifecycleConfig struct {
	Ledger   ledger.Ledger
	Mirror   *mirror.Mirror
	Lockout  time.Duration
	Interval time.Duration
	Logger   *zap.Logger
	// Now is injectable for tests; defaults to wall clock.
	Now func() int64
}

// NewLifecycle creates a lifecycle monitor.
func NewLifecycle(cfg *LifecycleConfig) *Lifecycle {
	now := cfg.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	lockout := cfg.Lockout
	if lockout == 0 {
		lockout = lifecycle.DefaultLockoutWindow
	}
	return &Lifecycle{
		ledger:   cfg.Ledger,
		mirror:   cfg.Mirror,
		lockout:  lockout,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		now:      now,
	}
}

// Run starts the polling loop until ctx is cancelled.
func (s *Lifecycle) Run(ctx context.Context) error {
	s.logger.Info("lifecycle-monitor-starting", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("lifecycle-monitor-stopping")
			return ctx.Err()
		case <-ticker.C:
			s.Cycle(ctx)
		}
	}
}

// Cycle runs one pass over all markets.
func (s *Lifecycle) Cycle(ctx context.Context) {
	markets, err := s.ledger.ListMarkets(ctx)
	if err != nil {
		s.logger.Error("list-markets-failed", zap.Error(err))
		return
	}

	nowMS := s.now()
	for _, m := range markets {
		switch m.Status {
		case types.StatusPendingInit:
			s.tryActivate(ctx, m)
		case types.StatusSettled:
			// Terminal; the orchestrator already reconciled the mirror.
		default:
			s.advance(m, nowMS)
		}
	}
}

// tryActivate attempts PENDING_INIT -> ACTIVE. Unseeded markets stay
// pending; that is expected, not an error.
func (s *Lifecycle) tryActivate(ctx context.Context, m *types.Market) {
	if err := s.ledger.Activate(ctx, m.ID); err != nil {
		if types.IsGuard(err, types.GuardMarketNotActive) {
			return
		}
		s.logger.Warn("activation-failed", zap.Uint64("market-id", m.ID), zap.Error(err))
		return
	}

	ActivationsTotal.Inc()
	s.logger.Info("market-activated", zap.Uint64("market-id", m.ID))

	fresh, err := s.ledger.GetMarket(ctx, m.ID)
	if err != nil {
		s.logger.Warn("post-activation-read-failed", zap.Uint64("market-id", m.ID), zap.Error(err))
		return
	}
	if err := s.mirror.PutMarket(fresh); err != nil {
		s.logger.Warn("mirror-write-failed", zap.Uint64("market-id", m.ID), zap.Error(err))
	}
}

// advance writes the time-derived status to the mirrored record. The
// ledger derives wagering eligibility from time directly, so only the
// mirror carries the displayed status forward.
func (s *Lifecycle) advance(m *types.Market, nowMS int64) {
	mirrored, ok := s.mirror.GetMarket(m.ID)
	if !ok {
		mirrored = m
	}

	target, changed := lifecycle.Advance(mirrored.Status, nowMS, m.DeadlineMS, s.lockout)
	if !changed {
		return
	}

	mirrored.Status = target
	if err := s.mirror.PutMarket(mirrored); err != nil {
		s.logger.Warn("mirror-write-failed", zap.Uint64("market-id", m.ID), zap.Error(err))
		return
	}

	TransitionsTotal.WithLabelValues(target.String()).Inc()
	s.logger.Info("market-status-advanced",
		zap.Uint64("market-id", m.ID),
		zap.String("status", target.String()))
}

// PoolSync refreshes mirrored pool balances and positions metadata
// from the ledger so API reads stay close to authoritative state.
type PoolSync struct {
	ledger   ledger.Ledger
	mirror   *mirror.Mirror
	interval time.Duration
	logger   *zap.Logger
}

// PoolSyncConfig holds pool sync monitor configuration.
type PoolSyncConfig struct {
	Ledger   ledger.Ledger
	Mirror   *mirror.Mirror
	Interval time.Duration
	Logger   *zap.Logger
}

// NewPoolSync creates a pool sync monitor.
func NewPoolSync(cfg *PoolSyncConfig) *PoolSync {
	return &PoolSync{
		ledger:   cfg.Ledger,
		mirror:   cfg.Mirror,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Run starts the polling loop until ctx is cancelled.
func (s *PoolSync) Run(ctx context.Context) error {
	s.logger.Info("pool-sync-starting", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("pool-sync-stopping")
			return ctx.Err()
		case <-ticker.C:
			s.Cycle(ctx)
		}
	}
}

// Cycle copies pool balances from the ledger into the mirrored records,
// preserving any displayed status that is ahead of the ledger's.
func (s *PoolSync) Cycle(ctx context.Context) {
	markets, err := s.ledger.ListMarkets(ctx)
	if err != nil {
		s.logger.Error("list-markets-failed", zap.Error(err))
		return
	}

	synced := 0
	for _, m := range markets {
		if mirrored, ok := s.mirror.GetMarket(m.ID); ok &&
			lifecycle.CanTransition(m.Status, mirrored.Status) {
			m.Status = mirrored.Status
		}
		if err := s.mirror.PutMarket(m); err != nil {
			s.logger.Warn("mirror-write-failed", zap.Uint64("market-id", m.ID), zap.Error(err))
			continue
		}
		synced++
	}

	PoolSyncsTotal.Add(float64(synced))
	s.logger.Debug("pool-sync-cycle-complete", zap.Int("markets", synced))
}
