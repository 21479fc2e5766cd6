package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady("http", false)
	a.healthChecker.SetReady("settlement", false)
	a.healthChecker.SetReady("lifecycle", false)
	a.healthChecker.SetReady("pool-sync", false)

	// Cancel context to signal all monitors
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Wait for the monitors to finish their in-flight cycles
	a.wg.Wait()

	// Close storage last; monitors may write audit rows until they stop
	err = a.storage.Close()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.logger.Info("application-shutdown-complete")

	return nil
}
