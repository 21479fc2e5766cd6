package app

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("log-level", a.cfg.LogLevel),
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("fee-split-mode", a.cfg.FeeSplitMode))

	a.startComponents()

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("oracle-url", a.cfg.OracleBaseURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)
	a.healthChecker.SetReady("http", true)

	a.wg.Add(1)
	go a.runOrchestrator()
	a.healthChecker.SetReady("settlement", true)

	a.wg.Add(1)
	go a.runLifecycleMonitor()
	a.healthChecker.SetReady("lifecycle", true)

	a.wg.Add(1)
	go a.runPoolSyncMonitor()
	a.healthChecker.SetReady("pool-sync", true)
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runOrchestrator() {
	defer a.wg.Done()
	err := a.orchestrator.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("settlement-orchestrator-error", zap.Error(err))
	}
}

func (a *App) runLifecycleMonitor() {
	defer a.wg.Done()
	err := a.lifecycleMon.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("lifecycle-monitor-error", zap.Error(err))
	}
}

func (a *App) runPoolSyncMonitor() {
	defer a.wg.Done()
	err := a.poolSyncMon.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("pool-sync-monitor-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
