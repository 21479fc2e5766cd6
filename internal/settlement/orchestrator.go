// Package settlement runs the orchestrator that turns qualifying
// oracle updates into ledger settlements. It is deliberately
// coordination-free: several instances may poll the same markets
// concurrently, and correctness rests entirely on the ledger's atomic
// status-guarded settle plus retry-on-failure here. No off-chain lock
// exists, and none should be added — it would create a second, weaker
// source of truth.
package settlement

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pricebet/pricebet/internal/ledger"
	"github.com/pricebet/pricebet/internal/mirror"
	"github.com/pricebet/pricebet/internal/oracle"
	"github.com/pricebet/pricebet/internal/storage"
	"github.com/pricebet/pricebet/pkg/types"
	"go.uber.org/zap"
)

// OracleClient is the action-log query surface the orchestrator needs.
type OracleClient interface {
	FetchLatestActions(ctx context.Context, account common.Address, after string, limit int) ([]types.OracleEntry, error)
}

// Orchestrator is the periodic settlement monitor.
type Orchestrator struct {
	ledger        ledger.Ledger
	mirror        *mirror.Mirror
	oracleClient  OracleClient
	oracleAccount common.Address
	storage       storage.Storage
	interval      time.Duration
	logger        *zap.Logger
	now           func() int64
}

// Config holds orchestrator configuration.
type Config struct {
	Ledger        ledger.Ledger
	Mirror        *mirror.Mirror
	OracleClient  OracleClient
	OracleAccount common.Address
	Storage       storage.Storage
	Interval      time.Duration
	Logger        *zap.Logger
	// Now is injectable for tests; defaults to wall clock.
	Now func() int64
}

// New creates a settlement orchestrator.
func New(cfg *Config) *Orchestrator {
	now := cfg.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	return &Orchestrator{
		ledger:        cfg.Ledger,
		mirror:        cfg.Mirror,
		oracleClient:  cfg.OracleClient,
		oracleAccount: cfg.OracleAccount,
		storage:       cfg.Storage,
		interval:      cfg.Interval,
		logger:        cfg.Logger,
		now:           now,
	}
}

// Run starts the polling loop. Cycles never overlap for a single
// instance: the next tick is not serviced until the current cycle
// returns. Stops when ctx is cancelled; an in-flight cycle completes.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("settlement-orchestrator-starting",
		zap.Duration("interval", o.interval),
		zap.String("oracle-account", o.oracleAccount.Hex()))

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.Cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("settlement-orchestrator-stopping")
			return ctx.Err()
		case <-ticker.C:
			o.Cycle(ctx)
		}
	}
}

// Cycle examines every market awaiting settlement once. Errors inside
// a cycle are absorbed: every failure mode retries on the next tick.
func (o *Orchestrator) Cycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		CycleDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	markets, err := o.ledger.ListMarkets(ctx)
	if err != nil {
		o.logger.Error("list-markets-failed", zap.Error(err))
		return
	}

	nowMS := o.now()
	for _, m := range markets {
		if m.Status == types.StatusSettled || m.Status == types.StatusPendingInit {
			continue
		}
		if nowMS < m.DeadlineMS {
			continue
		}
		o.processMarket(ctx, m)
	}
}

// processMarket runs one detection-and-settle attempt for a market
// past its deadline.
func (o *Orchestrator) processMarket(ctx context.Context, m *types.Market) {
	marker, _ := o.mirror.Marker(m.ID)

	entries, err := o.oracleClient.FetchLatestActions(ctx, o.oracleAccount, marker, oracle.DefaultQueryLimit)
	if err != nil {
		// Transient oracle failure reads as "no update yet"; the next
		// cycle retries from the same baseline.
		o.logger.Warn("oracle-query-failed",
			zap.Uint64("market-id", m.ID),
			zap.Error(err))
		return
	}

	sig := oracle.Evaluate(marker, entries, m.DeadlineMS)
	if !sig.Qualified {
		if sig.Marker != "" && sig.Marker != marker {
			o.mirror.SetMarker(m.ID, sig.Marker)
			o.logger.Debug("detection-baseline-updated",
				zap.Uint64("market-id", m.ID),
				zap.String("marker", sig.Marker))
		}
		return
	}

	DetectionsTotal.Inc()
	o.logger.Info("qualifying-oracle-update-detected",
		zap.Uint64("market-id", m.ID),
		zap.String("token", sig.Entry.Token),
		zap.Int64("oracle-timestamp-ms", sig.Entry.TimestampMS),
		zap.Int64("deadline-ms", m.DeadlineMS))

	outcome, err := o.ledger.SettleWithOracle(ctx, m.ID, sig.Entry)
	if err != nil {
		if types.IsGuard(err, types.GuardAlreadySettled) {
			// Another instance won the race. Reconcile and consume the
			// marker as if this instance had settled.
			o.logger.Info("market-settled-elsewhere", zap.Uint64("market-id", m.ID))
			SettlementRacesLostTotal.Inc()
			o.reconcile(ctx, m.ID)
			o.mirror.DeleteMarker(m.ID)
			return
		}

		// Transient submission failure: retain the marker so the next
		// cycle retries from the same detection window.
		SettlementFailuresTotal.Inc()
		o.logger.Error("settlement-failed",
			zap.Uint64("market-id", m.ID),
			zap.Error(err))
		return
	}

	SettlementsTotal.Inc()
	o.logger.Info("market-settled",
		zap.Uint64("market-id", m.ID),
		zap.String("outcome", outcome.String()))

	o.reconcile(ctx, m.ID)
	o.mirror.DeleteMarker(m.ID)
	o.recordSettlement(ctx, m.ID, outcome, sig.Entry)
}

// reconcile refreshes the mirrored record from the ledger. Mirror
// failures are cosmetic; the authoritative mutation already succeeded.
func (o *Orchestrator) reconcile(ctx context.Context, id uint64) {
	m, err := o.ledger.GetMarket(ctx, id)
	if err != nil {
		o.logger.Warn("reconcile-read-failed", zap.Uint64("market-id", id), zap.Error(err))
		return
	}
	if err := o.mirror.PutMarket(m); err != nil {
		o.logger.Warn("reconcile-mirror-write-failed", zap.Uint64("market-id", id), zap.Error(err))
	}
}

// recordSettlement writes the audit row; failures are logged and
// swallowed.
func (o *Orchestrator) recordSettlement(ctx context.Context, id uint64, outcome types.Outcome, entry types.OracleEntry) {
	if o.storage == nil {
		return
	}
	rec := &storage.SettlementRecord{
		ID:          uuid.NewString(),
		MarketID:    id,
		Outcome:     outcome,
		PriceE10:    entry.PriceE10,
		OracleToken: entry.Token,
		SettledAt:   time.Now(),
	}
	if err := o.storage.RecordSettlement(ctx, rec); err != nil {
		o.logger.Warn("settlement-audit-write-failed",
			zap.Uint64("market-id", id),
			zap.Error(err))
	}
}
