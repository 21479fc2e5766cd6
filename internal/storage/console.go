package storage

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by logging records. Default when
// no postgres instance is configured.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// RecordWager logs an accepted wager.
func (c *ConsoleStorage) RecordWager(ctx context.Context, w *WagerRecord) error {
	c.logger.Info("wager",
		zap.String("wager-id", w.ID),
		zap.Uint64("market-id", w.MarketID),
		zap.String("user", w.User),
		zap.String("side", w.Side.String()),
		zap.Uint64("amount", w.Amount),
		zap.Uint64("fee", w.Fee),
		zap.Uint64("net", w.NetReceived))
	return nil
}

// RecordSettlement logs a completed settlement.
func (c *ConsoleStorage) RecordSettlement(ctx context.Context, s *SettlementRecord) error {
	c.logger.Info("settlement",
		zap.String("settlement-id", s.ID),
		zap.Uint64("market-id", s.MarketID),
		zap.String("outcome", s.Outcome.String()),
		zap.Uint64("price-e10", s.PriceE10),
		zap.String("oracle-token", s.OracleToken))
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
