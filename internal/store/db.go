// Package store records comparison runs and their per-page verdicts in
// PostgreSQL (through pgx) or SQLite (through modernc.org/sqlite), using
// ent's SQL builder for every statement.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFromSettings maps environment settings onto a store Config.
func ConfigFromSettings(c common.DatabaseConfig) Config {
	return Config{
		DSN:             c.DSN,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
		DialTimeout:     c.DialTimeout,
	}
}

// DB is an open history database.
type DB struct {
	drv     *entsql.Driver
	pool    *pgxpool.Pool
	dialect string
	logger  *slog.Logger
}

// IsPostgres reports whether dsn addresses a PostgreSQL server.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects to the database named by cfg.DSN: postgres:// URLs go
// through a pgx pool, anything else is handed to the SQLite driver
// ("sqlite://" prefix optional, ":memory:" for a private in-memory store).
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		return nil, common.NewAppError(common.CodeConfig, "DB_URL is empty", common.ErrInvalidInput)
	}
	if IsPostgres(cfg.DSN) {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(ctx, cfg, logger)
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError(common.CodeStore, "parse DSN", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "pdf-compare"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx, cancel := common.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError(common.CodeStore, "connect", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}

	// Wrap pool as *sql.DB for the ent driver
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &DB{drv: entsql.OpenDB(dialect.Postgres, db), pool: pool, dialect: dialect.Postgres, logger: logger}, nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := strings.TrimPrefix(cfg.DSN, "sqlite://")
	logger.Info("opening database", "dialect", dialect.SQLite, "dsn", dsn)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, common.NewAppError(common.CodeStore, "open sqlite", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	// One connection: an in-memory database exists per connection, and a
	// file database would otherwise report SQLITE_BUSY to concurrent writers.
	db.SetMaxOpenConns(1)
	out := &DB{drv: entsql.OpenDB(dialect.SQLite, db), dialect: dialect.SQLite, logger: logger}
	if err := out.Ping(ctx, cfg.DialTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	return out, nil
}

// Dialect is dialect.Postgres or dialect.SQLite.
func (db *DB) Dialect() string { return db.dialect }

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context, timeout time.Duration) error {
	db.logger.Debug("pinging database")
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()
	var err error
	if db.pool != nil {
		err = db.pool.Ping(ctx)
	} else {
		err = db.drv.DB().PingContext(ctx)
	}
	if err != nil {
		db.logger.Error("database ping failed", "error", err)
		return common.NewAppError(common.CodeStore, "ping", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	db.logger.Debug("database ping successful")
	return nil
}

// Close closes the database connections gracefully
func (db *DB) Close() error {
	db.logger.Info("closing database connections")
	err := db.drv.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	if err != nil {
		db.logger.Error("failed to close database", "error", err)
		return err
	}
	db.logger.Info("database connections closed")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS comparison_runs (
		id TEXT PRIMARY KEY,
		identifier TEXT NOT NULL,
		file1 TEXT NOT NULL,
		file2 TEXT NOT NULL,
		mode TEXT NOT NULL,
		strategy TEXT NOT NULL,
		status TEXT NOT NULL,
		start_page INTEGER NOT NULL DEFAULT 0,
		end_page INTEGER NOT NULL DEFAULT 0,
		page_count1 INTEGER NOT NULL DEFAULT 0,
		page_count2 INTEGER NOT NULL DEFAULT 0,
		mismatched_pages INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		started_at BIGINT NOT NULL,
		finished_at BIGINT NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS comparison_runs_started_at_idx ON comparison_runs (started_at)`,
	`CREATE TABLE IF NOT EXISTS comparison_pages (
		run_id TEXT NOT NULL REFERENCES comparison_runs (id) ON DELETE CASCADE,
		page INTEGER NOT NULL,
		matched INTEGER NOT NULL,
		differing INTEGER NOT NULL DEFAULT 0,
		image TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, page)
	)`,
}

// Migrate creates the tables when missing.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := db.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			db.logger.Error("migration failed", "error", err)
			return common.NewAppError(common.CodeStore, "migrate", fmt.Errorf("%w: %w", common.ErrDatabase, err))
		}
	}
	db.logger.Debug("schema ready")
	return nil
}
