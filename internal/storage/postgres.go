package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// newPostgresStorageWithDB wires an existing handle; used by tests.
func newPostgresStorageWithDB(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// RecordWager stores an accepted wager.
func (p *PostgresStorage) RecordWager(ctx context.Context, w *WagerRecord) error {
	query := `
		INSERT INTO wagers (
			id, market_id, user_address, side, amount, fee, net_received, placed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		w.ID,
		w.MarketID,
		w.User,
		w.Side.String(),
		w.Amount,
		w.Fee,
		w.NetReceived,
		w.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wager: %w", err)
	}

	p.logger.Debug("wager-recorded",
		zap.String("wager-id", w.ID),
		zap.Uint64("market-id", w.MarketID))

	return nil
}

// RecordSettlement stores a completed settlement.
func (p *PostgresStorage) RecordSettlement(ctx context.Context, s *SettlementRecord) error {
	query := `
		INSERT INTO settlements (
			id, market_id, outcome, price_e10, oracle_token, settled_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		s.ID,
		s.MarketID,
		s.Outcome.String(),
		s.PriceE10,
		s.OracleToken,
		s.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}

	p.logger.Debug("settlement-recorded",
		zap.String("settlement-id", s.ID),
		zap.Uint64("market-id", s.MarketID),
		zap.String("outcome", s.Outcome.String()))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
