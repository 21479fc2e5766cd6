// Package app wires the service together: the in-memory ledger, the
// metadata mirror, the settlement orchestrator, the lifecycle and
// pool-sync monitors, audit storage, and the HTTP API.
package app

import (
	"context"
	"sync"

	"github.com/pricebet/pricebet/internal/ledger"
	"github.com/pricebet/pricebet/internal/mirror"
	"github.com/pricebet/pricebet/internal/monitor"
	"github.com/pricebet/pricebet/internal/settlement"
	"github.com/pricebet/pricebet/internal/snapshot"
	"github.com/pricebet/pricebet/internal/storage"
	"github.com/pricebet/pricebet/pkg/config"
	"github.com/pricebet/pricebet/pkg/healthprobe"
	"github.com/pricebet/pricebet/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	ledger        ledger.Ledger
	mirror        *mirror.Mirror
	orchestrator  *settlement.Orchestrator
	lifecycleMon  *monitor.Lifecycle
	poolSyncMon   *monitor.PoolSync
	publisher     *snapshot.Publisher
	storage       storage.Storage
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
