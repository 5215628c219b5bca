package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/quizbot/core/logger"
)

const component = "db"

func init() {
	// sqlx only knows the bindvar style of mattn's "sqlite3" name.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Connect opens the database connection, configures the pool, and verifies connectivity.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN())
	took := logger.Took(start)
	if err != nil {
		logger.Error(ctx, component, "db.connect",
			append(target(cfg),
				slog.String("status", "fail"),
				slog.Duration("duration", took),
				logger.Err(err),
			)...,
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			_ = db.Close()
			logger.Error(ctx, component, "db.pragma", slog.String("status", "fail"), logger.Err(err))
			return nil, err
		}
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	logger.Info(ctx, component, "db.connect",
		append(target(cfg),
			slog.String("status", "ok"),
			slog.Int("pool_open", cfg.MaxConnections),
			slog.Duration("duration", took),
		)...,
	)
	return db, nil
}

func target(cfg Config) []slog.Attr {
	if cfg.Driver == DriverSQLite {
		return []slog.Attr{
			slog.String("driver", cfg.Driver),
			slog.String("path", cfg.SQLitePath),
		}
	}
	return []slog.Attr{
		slog.String("driver", cfg.Driver),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}
}

// SQLite allows a single writer; busy_timeout keeps a second one waiting instead of failing.
func applySQLitePragmas(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

// WaitForPostgres retries a ping until the server answers or timeout passes.
func WaitForPostgres(ctx context.Context, dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		db, err := sqlx.Open(DriverPostgres, dsn)
		if err == nil {
			err = db.PingContext(ctx)
			_ = db.Close()
			if err == nil {
				return nil
			}
		}
		lastErr = err
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout reached waiting for database: %w", lastErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}
